package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sixchan/config"
	"sixchan/models"
	"sixchan/utils"

	"github.com/jmoiron/sqlx"
)

const accountColumns = "id, username, email, password_hash, activated, role, created_at"

// Signup creates an inactive account with its profile and an activation
// token. The token is returned for delivery by mail.
func (ds *DatabaseService) Signup(ctx context.Context, username, email, password, displayName string) (*models.UserAccount, string, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}
	ttl, _ := time.ParseDuration(config.ActivationTokenTTL)

	account := &models.UserAccount{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleGeneral,
		CreatedAt:    ds.now(),
	}
	token := utils.NewToken()
	err = ds.withTx(ctx, "Signup", func(tx *sqlx.Tx) error {
		if err := checkAccountFree(ctx, tx, username, email, 0); err != nil {
			return err
		}
		err := tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO user_accounts (username, email, password_hash, activated, role, created_at)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
			account.Username, account.Email, account.PasswordHash, false, account.Role, account.CreatedAt).Scan(&account.ID)
		if err != nil {
			return accountConflict(fmt.Errorf("failed to insert account: %w", translateError(err)))
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO user_profiles (account_id, display_name, introduction) VALUES (?, ?, ?)"),
			account.ID, displayName, ""); err != nil {
			return fmt.Errorf("failed to insert profile: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO activation_tokens (token, account_id, expires_at) VALUES (?, ?, ?)"),
			token, account.ID, ds.now().Add(ttl)); err != nil {
			return fmt.Errorf("failed to insert activation token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	ds.logger.Info("Account signed up", "account_id", account.ID)
	return account, token, nil
}

// checkAccountFree rejects a username or email already used by another account.
func checkAccountFree(ctx context.Context, tx *sqlx.Tx, username, email string, self int64) error {
	var n int
	if username != "" {
		if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM user_accounts WHERE username = ? AND id <> ?"), username, self); err != nil {
			return err
		}
		if n > 0 {
			return models.ErrUsernameTaken
		}
	}
	if email != "" {
		if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM user_accounts WHERE email = ? AND id <> ?"), email, self); err != nil {
			return err
		}
		if n > 0 {
			return models.ErrEmailTaken
		}
	}
	return nil
}

// accountConflict narrows a storage conflict to the column that caused it.
func accountConflict(err error) error {
	switch {
	case isUniqueViolationOn(err, "username"):
		return models.ErrUsernameTaken
	case isUniqueViolationOn(err, "email"):
		return models.ErrEmailTaken
	}
	return err
}

// Activate consumes an activation token. alreadyActive is true when the
// account had been activated before.
func (ds *DatabaseService) Activate(ctx context.Context, token string) (account *models.UserAccount, alreadyActive bool, err error) {
	err = ds.withTx(ctx, "Activate", func(tx *sqlx.Tx) error {
		var t models.ActivationToken
		if err := tx.GetContext(ctx, &t, tx.Rebind("SELECT token, account_id, expires_at FROM activation_tokens WHERE token = ?"), token); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("activation token: %w", models.ErrNotFound)
			}
			return err
		}
		if !ds.now().Before(t.ExpiresAt) {
			return fmt.Errorf("activation token: %w", models.ErrTokenExpired)
		}
		acc, err := getAccount(ctx, tx, "id", t.AccountID)
		if err != nil {
			return err
		}
		account = acc
		if acc.Activated {
			alreadyActive = true
			return nil
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE user_accounts SET activated = ? WHERE id = ?"), true, acc.ID); err != nil {
			return fmt.Errorf("failed to activate account: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM activation_tokens WHERE token = ?"), token); err != nil {
			return fmt.Errorf("failed to consume activation token: %w", err)
		}
		account.Activated = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return account, alreadyActive, nil
}

// Authenticate checks a username and password pair.
func (ds *DatabaseService) Authenticate(ctx context.Context, username, password string) (*models.UserAccount, error) {
	acc, err := getAccount(ctx, ds.DB, "username", username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}
	if !acc.Activated {
		return nil, models.ErrNotActivated
	}
	if !utils.CheckPassword(acc.PasswordHash, password) {
		return nil, models.ErrUnauthorized
	}
	return acc, nil
}

// GetAccount loads an account by id.
func (ds *DatabaseService) GetAccount(ctx context.Context, id int64) (*models.UserAccount, error) {
	return getAccount(ctx, ds.DB, "id", id)
}

// GetAccountByUsername loads an account by username.
func (ds *DatabaseService) GetAccountByUsername(ctx context.Context, username string) (*models.UserAccount, error) {
	return getAccount(ctx, ds.DB, "username", username)
}

func getAccount(ctx context.Context, q queryer, column string, value interface{}) (*models.UserAccount, error) {
	var acc models.UserAccount
	err := sqlx.GetContext(ctx, q, &acc, q.Rebind("SELECT "+accountColumns+" FROM user_accounts WHERE "+column+" = ?"), value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account: %w", models.ErrNotFound)
		}
		return nil, err
	}
	return &acc, nil
}

// GetProfile loads the profile of an account.
func (ds *DatabaseService) GetProfile(ctx context.Context, accountID int64) (*models.UserProfile, error) {
	var p models.UserProfile
	err := ds.DB.GetContext(ctx, &p, ds.DB.Rebind("SELECT account_id, display_name, introduction FROM user_profiles WHERE account_id = ?"), accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProfile replaces the display name and introduction. Past reses
// render with the new display name.
func (ds *DatabaseService) UpdateProfile(ctx context.Context, accountID int64, displayName, introduction string) error {
	result, err := ds.DB.ExecContext(ctx, ds.DB.Rebind("UPDATE user_profiles SET display_name = ?, introduction = ? WHERE account_id = ?"),
		displayName, introduction, accountID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("profile: %w", models.ErrNotFound)
	}
	return nil
}

// ChangeUsername renames an account.
func (ds *DatabaseService) ChangeUsername(ctx context.Context, accountID int64, username string) error {
	return ds.withTx(ctx, "ChangeUsername", func(tx *sqlx.Tx) error {
		if err := checkAccountFree(ctx, tx, username, "", accountID); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, tx.Rebind("UPDATE user_accounts SET username = ? WHERE id = ?"), username, accountID)
		if err != nil {
			return accountConflict(fmt.Errorf("failed to change username: %w", translateError(err)))
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("account: %w", models.ErrNotFound)
		}
		return nil
	})
}

// RequestEmailChange stores a confirmation token for a new address and
// returns it for delivery to that address.
func (ds *DatabaseService) RequestEmailChange(ctx context.Context, accountID int64, newEmail string) (string, error) {
	ttl, _ := time.ParseDuration(config.EmailChangeTokenTTL)
	token := utils.NewToken()
	err := ds.withTx(ctx, "RequestEmailChange", func(tx *sqlx.Tx) error {
		if err := checkAccountFree(ctx, tx, "", newEmail, accountID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO email_change_tokens (token, account_id, new_email, expires_at) VALUES (?, ?, ?, ?)"),
			token, accountID, newEmail, ds.now().Add(ttl))
		if err != nil {
			return fmt.Errorf("failed to insert email change token: %w", translateError(err))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ConfirmEmailChange applies a pending address change. Expired tokens are
// rejected and left unapplied.
func (ds *DatabaseService) ConfirmEmailChange(ctx context.Context, token string) (*models.UserAccount, error) {
	var account *models.UserAccount
	err := ds.withTx(ctx, "ConfirmEmailChange", func(tx *sqlx.Tx) error {
		var t models.EmailChangeToken
		err := tx.GetContext(ctx, &t, tx.Rebind("SELECT token, account_id, new_email, expires_at FROM email_change_tokens WHERE token = ?"), token)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("email change token: %w", models.ErrNotFound)
			}
			return err
		}
		if !ds.now().Before(t.ExpiresAt) {
			return fmt.Errorf("email change token: %w", models.ErrTokenExpired)
		}
		if err := checkAccountFree(ctx, tx, "", t.NewEmail, t.AccountID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE user_accounts SET email = ? WHERE id = ?"), t.NewEmail, t.AccountID); err != nil {
			return accountConflict(fmt.Errorf("failed to change email: %w", translateError(err)))
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM email_change_tokens WHERE token = ?"), token); err != nil {
			return fmt.Errorf("failed to consume email change token: %w", err)
		}
		account, err = getAccount(ctx, tx, "id", t.AccountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ChangePassword replaces the password after verifying the current one.
func (ds *DatabaseService) ChangePassword(ctx context.Context, accountID int64, current, next string) error {
	acc, err := ds.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(acc.PasswordHash, current) {
		return models.ErrUnauthorized
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	_, err = ds.DB.ExecContext(ctx, ds.DB.Rebind("UPDATE user_accounts SET password_hash = ? WHERE id = ?"), hash, accountID)
	return err
}

// SetRole changes an account's role.
func (ds *DatabaseService) SetRole(ctx context.Context, username string, role models.Role) error {
	if !role.Valid() {
		return models.InvalidArgument("unknown role %q", role)
	}
	result, err := ds.DB.ExecContext(ctx, ds.DB.Rebind("UPDATE user_accounts SET role = ? WHERE username = ?"), role, username)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("account '%s': %w", username, models.ErrNotFound)
	}
	ds.logger.Info("Role changed", "username", username, "role", role)
	return nil
}
