// sixchan/models/models.go
package models

import "time"

// --- Board hierarchy ---

type BoardCategory struct {
	ID     int64   `db:"id" json:"id"`
	Name   string  `db:"name" json:"name"`
	Boards []Board `db:"-" json:"boards"`
}

type Board struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CategoryID  int64     `db:"category_id" json:"category_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Thread struct {
	ID        string    `db:"id" json:"id"`
	BoardID   string    `db:"board_id" json:"board_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Res is one numbered post within a thread. Number is 1-based and gap-free.
type Res struct {
	ID            int64     `db:"id" json:"id"`
	ThreadID      string    `db:"thread_id" json:"thread_id"`
	Number        int       `db:"number" json:"number"`
	Who           string    `db:"who" json:"who"`
	Body          string    `db:"body" json:"-"`
	Inappropriate bool      `db:"inappropriate" json:"inappropriate"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// --- Accounts ---

type Role string

const (
	RoleGeneral       Role = "general"
	RoleModerator     Role = "moderator"
	RoleAdministrator Role = "administrator"
)

// CanModerate reports whether the role may resolve reports.
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdministrator
}

func (r Role) Valid() bool {
	switch r {
	case RoleGeneral, RoleModerator, RoleAdministrator:
		return true
	}
	return false
}

type UserAccount struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"-"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Activated    bool      `db:"activated" json:"activated"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type UserProfile struct {
	AccountID    int64  `db:"account_id" json:"-"`
	DisplayName  string `db:"display_name" json:"display_name"`
	Introduction string `db:"introduction" json:"introduction"`
}

type ActivationToken struct {
	Token     string    `db:"token"`
	AccountID int64     `db:"account_id"`
	ExpiresAt time.Time `db:"expires_at"`
}

type EmailChangeToken struct {
	Token     string    `db:"token"`
	AccountID int64     `db:"account_id"`
	NewEmail  string    `db:"new_email"`
	ExpiresAt time.Time `db:"expires_at"`
}

// --- Moderation ---

type ReportStatus string

const (
	ReportOpen   ReportStatus = "open"
	ReportClosed ReportStatus = "closed"
)

type ReportReason struct {
	ID   int64  `db:"id" json:"id"`
	Text string `db:"text" json:"text"`
}

type Report struct {
	ID         int64        `db:"id" json:"id"`
	ReasonID   int64        `db:"reason_id" json:"reason_id"`
	Detail     string       `db:"detail" json:"detail"`
	ResID      int64        `db:"res_id" json:"res_id"`
	ReportedBy *int64       `db:"reported_by" json:"-"`
	Status     ReportStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

type ModAction struct {
	ID          int64     `db:"id" json:"id"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
	ModeratorID int64     `db:"moderator_id" json:"moderator_id"`
	Action      string    `db:"action" json:"action"`
	TargetID    *int64    `db:"target_id" json:"target_id,omitempty"`
	Details     string    `db:"details" json:"details"`
}

type Favorite struct {
	AccountID int64     `db:"account_id"`
	ThreadID  string    `db:"thread_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Page represents a single link in the pagination control.
type Page struct {
	Number     int  `json:"number,omitempty"`
	IsCurrent  bool `json:"current,omitempty"`
	IsEllipsis bool `json:"gap,omitempty"`
}

// PageOf is one page of a paginated query.
type PageOf[T any] struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Items []T `json:"items"`
}

// --- Read projections ---

// ResView is a res as it is rendered: redaction and authorship applied.
type ResView struct {
	ID            int64     `json:"id"`
	Number        int       `json:"number"`
	Who           string    `json:"who"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	Username      string    `json:"username,omitempty"`
	Body          string    `json:"body"`
	Inappropriate bool      `json:"inappropriate"`
	CreatedAt     time.Time `json:"created_at"`
}

// ThreadOverview is a thread row on a board page.
type ThreadOverview struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	ResesCount   int       `db:"reses_count" json:"reses_count"`
	LastPostedAt time.Time `db:"last_posted_at" json:"last_posted_at"`
}

// UserThreadHistory groups one account's reses under a thread it posted in.
type UserThreadHistory struct {
	ThreadID     string    `json:"thread_id"`
	ThreadName   string    `json:"thread_name"`
	BoardID      string    `json:"board_id"`
	BoardName    string    `json:"board_name"`
	LastPostedAt time.Time `json:"last_posted_at"`
	Reses        []ResView `json:"reses"`
}

type FavoriteThread struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	BoardID      string    `db:"board_id" json:"board_id"`
	ResesCount   int       `db:"reses_count" json:"reses_count"`
	LastPostedAt time.Time `db:"last_posted_at" json:"last_posted_at"`
	FavoritedAt  time.Time `db:"favorited_at" json:"favorited_at"`
}

// ReportRow is one entry of the moderation queue.
type ReportRow struct {
	ID            int64        `db:"id" json:"id"`
	Reason        string       `db:"reason" json:"reason"`
	Detail        string       `db:"detail" json:"detail"`
	Status        ReportStatus `db:"status" json:"status"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	ResID         int64        `db:"res_id" json:"res_id"`
	ResNumber     int          `db:"res_number" json:"res_number"`
	ResBody       string       `db:"res_body" json:"res_body"`
	Inappropriate bool         `db:"inappropriate" json:"inappropriate"`
	ThreadID      string       `db:"thread_id" json:"thread_id"`
}

type PublicUser struct {
	Username     string `db:"username" json:"username"`
	DisplayName  string `db:"display_name" json:"display_name"`
	Introduction string `db:"introduction" json:"introduction"`
}
