// sixchan/utils/storage.go
package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BackupStorage keeps database backup files somewhere durable.
type BackupStorage interface {
	// Store copies the file at localPath and returns where it now lives.
	Store(ctx context.Context, localPath string) (string, error)
	Delete(ctx context.Context, location string) error
}

// LocalStorage keeps backups in a directory on local disk.
type LocalStorage struct {
	Dir string
}

func (ls *LocalStorage) Store(ctx context.Context, localPath string) (string, error) {
	if err := os.MkdirAll(ls.Dir, 0755); err != nil {
		return "", fmt.Errorf("could not create backup directory %s: %w", ls.Dir, err)
	}
	dest := filepath.Join(ls.Dir, filepath.Base(localPath))
	if abs, err := filepath.Abs(localPath); err == nil {
		if absDest, err := filepath.Abs(dest); err == nil && abs == absDest {
			return dest, nil
		}
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to copy backup: %w", err)
	}
	return dest, out.Close()
}

func (ls *LocalStorage) Delete(ctx context.Context, location string) error {
	fullPath := filepath.Join(ls.Dir, filepath.Base(location))
	err := os.Remove(fullPath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// S3Storage keeps backups in an S3-compatible bucket.
type S3Storage struct {
	Client     *minio.Client
	BucketName string
	PublicURL  string
}

func NewS3Storage(ctx context.Context, endpoint, accessKey, secretKey, bucket, region, publicURL string, useSSL bool) (*S3Storage, error) {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	var creds *credentials.Credentials
	if accessKey == "" || secretKey == "" {
		// Fall back to the instance role when no keys are configured.
		creds = credentials.NewIAM("")
	} else {
		creds = credentials.NewStaticV4(accessKey, secretKey, "")
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := minioClient.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	if publicURL == "" {
		protocol := "http"
		if useSSL {
			protocol = "https"
		}
		publicURL = fmt.Sprintf("%s://%s.%s", protocol, bucket, endpoint)
	}

	return &S3Storage{
		Client:     minioClient,
		BucketName: bucket,
		PublicURL:  strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (s3 *S3Storage) objectKey(name string) string {
	return "backups/" + filepath.Base(name)
}

func (s3 *S3Storage) Store(ctx context.Context, localPath string) (string, error) {
	key := s3.objectKey(localPath)
	_, err := s3.Client.FPutObject(ctx, s3.BucketName, key, localPath, minio.PutObjectOptions{
		ContentType: "application/vnd.sqlite3",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}
	return fmt.Sprintf("%s/%s", s3.PublicURL, key), nil
}

func (s3 *S3Storage) Delete(ctx context.Context, location string) error {
	parts := strings.Split(location, "/")
	return s3.Client.RemoveObject(ctx, s3.BucketName, s3.objectKey(parts[len(parts)-1]), minio.RemoveObjectOptions{})
}
