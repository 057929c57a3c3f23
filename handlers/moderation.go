package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"sixchan/config"
	"sixchan/models"

	"github.com/go-chi/chi/v5"
)

// HandleReports serves the moderation queue. ?status=open|closed filters it.
func HandleReports(w http.ResponseWriter, r *http.Request, app App) {
	page, err := pageParam(r)
	if err != nil {
		respondError(w, err, app)
		return
	}
	status := models.ReportStatus(r.URL.Query().Get("status"))
	if status != "" && status != models.ReportOpen && status != models.ReportClosed {
		respondError(w, models.InvalidArgument("unknown status %q", status), app)
		return
	}
	reports, err := app.DB().GetReports(r.Context(), status, page, config.ReportsPerPage)
	if err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reports":    reports,
		"pagination": paginationFor(reports.Page, reports.Pages),
	}, app)
}

// HandleResolveReports applies a moderator's decision to a reported res
// and closes its open reports.
func HandleResolveReports(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleResolveReports")
	resID, err := strconv.ParseInt(chi.URLParam(r, "resID"), 10, 64)
	if err != nil {
		respondError(w, models.InvalidArgument("invalid res id"), app)
		return
	}
	form := resolveForm{Decision: strings.TrimSpace(r.FormValue("decision"))}
	if err := validateForm(form); err != nil {
		respondError(w, err, app)
		return
	}
	decision, err := models.ParseDecision(form.Decision)
	if err != nil {
		respondError(w, err, app)
		return
	}

	moderator := currentAccount(r)
	closed, err := app.DB().ResolveReports(r.Context(), moderator, resID, decision)
	if err != nil {
		logger.Warn("Resolution failed", "res_id", resID, "moderator_id", moderator.ID, "error", err)
		respondError(w, err, app)
		return
	}
	reportsResolved.WithLabelValues(decision.String()).Add(float64(closed))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"res_id":   resID,
		"decision": decision.String(),
		"closed":   closed,
	}, app)
}

// HandleModLog serves the moderator action log.
func HandleModLog(w http.ResponseWriter, r *http.Request, app App) {
	page, err := pageParam(r)
	if err != nil {
		respondError(w, err, app)
		return
	}
	actions, err := app.DB().GetModActions(r.Context(), page, config.ModLogPerPage)
	if err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"log":        actions,
		"pagination": paginationFor(actions.Page, actions.Pages),
	}, app)
}

// HandleCreateCategory adds a board category.
func HandleCreateCategory(w http.ResponseWriter, r *http.Request, app App) {
	form := categoryForm{Name: strings.TrimSpace(r.FormValue("name"))}
	if err := validateForm(form); err != nil {
		respondError(w, err, app)
		return
	}
	category, err := app.DB().CreateCategory(r.Context(), currentAccount(r), form.Name)
	if err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusCreated, category, app)
}

// HandleCreateBoard adds a board to a category.
func HandleCreateBoard(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleCreateBoard")
	categoryID, _ := strconv.ParseInt(r.FormValue("category_id"), 10, 64)
	form := boardForm{
		CategoryID:  categoryID,
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if err := validateForm(form); err != nil {
		respondError(w, err, app)
		return
	}
	board, err := app.DB().CreateBoard(r.Context(), currentAccount(r), form.CategoryID, form.Name, form.Description)
	if err != nil {
		respondError(w, err, app)
		return
	}
	logger.Info("Board created by administrator", "board_id", board.ID, "name", board.Name)
	respondJSON(w, http.StatusCreated, board, app)
}

// HandleDatabaseBackup snapshots the database and hands the file to the
// configured backup storage.
func HandleDatabaseBackup(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleDatabaseBackup")
	ctx := r.Context()
	backupPath, err := app.DB().BackupDatabase(ctx, app.BackupDir())
	if err != nil {
		logger.Error("Failed to create database backup", "error", err)
		respondError(w, err, app)
		return
	}
	location, err := app.Backups().Store(ctx, backupPath)
	if err != nil {
		logger.Error("Failed to store database backup", "path", backupPath, "error", err)
		respondError(w, err, app)
		return
	}
	logger.Info("Database backup created successfully", "location", location)

	details, _ := json.Marshal(map[string]string{"location": location})
	if err := app.DB().RecordModAction(ctx, currentAccount(r).ID, "database_backup", nil, string(details)); err != nil {
		if derr := app.Backups().Delete(ctx, location); derr != nil {
			logger.Error("Failed to remove unrecorded backup", "location", location, "error", derr)
		}
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"location": location}, app)
}
