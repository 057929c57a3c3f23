package handlers

import (
	"log/slog"
	"net/http"

	"sixchan/config"
	"sixchan/database"
	"sixchan/models"
	"sixchan/utils"

	"github.com/go-chi/chi/v5"
)

// App is an interface that defines the dependencies our handlers need.
type App interface {
	DB() *database.DatabaseService
	RateLimiter() *models.RateLimiter
	Sessions() *utils.SessionManager
	Mailer() utils.Mailer
	Backups() utils.BackupStorage
	Logger() *slog.Logger
	BaseURL() string
	BackupDir() string
}

// MakeHandler binds a handler function to the application.
func MakeHandler(app App, fn func(http.ResponseWriter, *http.Request, App)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, app)
	}
}

// pagination is the page-link strip sent alongside every paginated list.
type pagination struct {
	Links   []models.Page `json:"links"`
	HasPrev bool          `json:"has_prev"`
	HasNext bool          `json:"has_next"`
}

// paginationFor builds the links for a result page. A page past the end
// has no links.
func paginationFor(page, pages int) pagination {
	links, err := utils.Paginate(page, pages, config.PaginationDelta)
	if err != nil {
		return pagination{}
	}
	hasPrev, hasNext := utils.EdgeCondition(page, pages)
	return pagination{Links: links, HasPrev: hasPrev, HasNext: hasNext}
}

// HandleHome lists every category with its boards.
func HandleHome(w http.ResponseWriter, r *http.Request, app App) {
	categories, err := app.DB().GetBoardCategories(r.Context())
	if err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"version":    config.AppVersion,
		"categories": categories,
	}, app)
}

// HandleBoard serves a board with one page of its threads.
func HandleBoard(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleBoard")
	board, err := app.DB().GetBoard(r.Context(), idParam(r, "boardID"))
	if err != nil {
		respondError(w, err, app)
		return
	}
	page, err := pageParam(r)
	if err != nil {
		respondError(w, err, app)
		return
	}
	threads, err := app.DB().GetThreadsPage(r.Context(), board.ID, page, config.ThreadsPerPage)
	if err != nil {
		logger.Warn("Failed to load threads", "board_id", board.ID, "page", page, "error", err)
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"board":      board,
		"threads":    threads,
		"pagination": paginationFor(threads.Page, threads.Pages),
	}, app)
}

// HandleThread serves a thread with every res rendered.
func HandleThread(w http.ResponseWriter, r *http.Request, app App) {
	ctx := r.Context()
	thread, err := app.DB().GetThread(ctx, idParam(r, "threadID"))
	if err != nil {
		respondError(w, err, app)
		return
	}
	reses, err := app.DB().GetReses(ctx, thread.ID)
	if err != nil {
		respondError(w, err, app)
		return
	}
	payload := map[string]interface{}{
		"thread":   thread,
		"reses":    reses,
		"can_post": len(reses) < config.MaxResesPerThread,
	}
	if account := currentAccount(r); account != nil {
		favorite, err := app.DB().IsFavorite(ctx, account.ID, thread.ID)
		if err != nil {
			respondError(w, err, app)
			return
		}
		payload["favorite"] = favorite
	}
	respondJSON(w, http.StatusOK, payload, app)
}

// HandleUser serves a public profile.
func HandleUser(w http.ResponseWriter, r *http.Request, app App) {
	user, err := app.DB().GetPublicUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, user, app)
}

// HandleReportReasons lists the reasons a report may give.
func HandleReportReasons(w http.ResponseWriter, r *http.Request, app App) {
	reasons, err := app.DB().GetReportReasons(r.Context())
	if err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, reasons, app)
}
