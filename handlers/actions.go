package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"sixchan/database"
	"sixchan/models"
	"sixchan/utils"

	"github.com/go-chi/chi/v5"
)

// authorFor picks the author variant of a post: the logged-in account, or
// the optional anonymous name and email.
func authorFor(r *http.Request, anonName, anonEmail string) models.Author {
	if account := currentAccount(r); account != nil {
		return models.RegisteredAuthor{AccountID: account.ID}
	}
	return models.AnonymousAuthor{Name: anonName, Email: anonEmail}
}

// countRejection records why a post was refused.
func countRejection(err error) {
	switch {
	case errors.Is(err, models.ErrThreadFull):
		postsRejected.WithLabelValues("thread_full").Inc()
	case errors.Is(err, models.ErrConflict):
		postsRejected.WithLabelValues("conflict").Inc()
	case errors.Is(err, models.ErrInvalidArgument):
		postsRejected.WithLabelValues("invalid").Inc()
	}
}

// HandlePostThread creates a thread together with its opening res.
func HandlePostThread(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandlePostThread")
	form := threadForm{
		ThreadName: strings.TrimSpace(r.FormValue("thread_name")),
		AnonName:   strings.TrimSpace(r.FormValue("anon_name")),
		AnonEmail:  strings.TrimSpace(r.FormValue("anon_email")),
		Body:       r.FormValue("body"),
	}
	if err := validateForm(form); err != nil {
		countRejection(err)
		respondError(w, err, app)
		return
	}

	ip := utils.GetIPAddress(r)
	thread, first, err := app.DB().PostThread(r.Context(), idParam(r, "boardID"), form.ThreadName, &database.NewRes{
		Body:     form.Body,
		WhoSeeds: utils.WhoSeeds(ip, app.DB().Now()),
		Author:   authorFor(r, form.AnonName, form.AnonEmail),
	})
	if err != nil {
		countRejection(err)
		logger.Warn("Thread rejected", "board_id", idParam(r, "boardID"), "error", err)
		respondError(w, err, app)
		return
	}
	threadsCreated.Inc()
	resesPosted.Inc()
	respondJSON(w, http.StatusCreated, map[string]interface{}{"thread": thread, "res": first}, app)
}

// HandlePostRes appends a res to a thread.
func HandlePostRes(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandlePostRes")
	form := resForm{
		AnonName:  strings.TrimSpace(r.FormValue("anon_name")),
		AnonEmail: strings.TrimSpace(r.FormValue("anon_email")),
		Body:      r.FormValue("body"),
	}
	if err := validateForm(form); err != nil {
		countRejection(err)
		respondError(w, err, app)
		return
	}

	threadID := idParam(r, "threadID")
	ip := utils.GetIPAddress(r)
	res, err := app.DB().PostRes(r.Context(), threadID, database.NewRes{
		Body:     form.Body,
		WhoSeeds: utils.WhoSeeds(ip, app.DB().Now()),
		Author:   authorFor(r, form.AnonName, form.AnonEmail),
	})
	if err != nil {
		countRejection(err)
		logger.Warn("Res rejected", "thread_id", threadID, "error", err)
		respondError(w, err, app)
		return
	}
	resesPosted.Inc()
	respondJSON(w, http.StatusCreated, res, app)
}

// HandleReport files a report against a res. Logged-in reporters are
// recorded; anonymous reports are accepted too.
func HandleReport(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleReport")
	resID, err := strconv.ParseInt(chi.URLParam(r, "resID"), 10, 64)
	if err != nil {
		respondError(w, models.InvalidArgument("invalid res id"), app)
		return
	}
	reasonID, _ := strconv.ParseInt(r.FormValue("reason_id"), 10, 64)
	form := reportForm{ReasonID: reasonID, Detail: strings.TrimSpace(r.FormValue("detail"))}
	if err := validateForm(form); err != nil {
		respondError(w, err, app)
		return
	}

	var reporterID *int64
	if account := currentAccount(r); account != nil {
		reporterID = &account.ID
	}
	report, err := app.DB().SubmitReport(r.Context(), resID, form.ReasonID, form.Detail, reporterID)
	if err != nil {
		logger.Warn("Report rejected", "res_id", resID, "error", err)
		respondError(w, err, app)
		return
	}
	reportsSubmitted.Inc()
	respondJSON(w, http.StatusCreated, report, app)
}

// HandleFavorite bookmarks a thread for the logged-in account.
func HandleFavorite(w http.ResponseWriter, r *http.Request, app App) {
	threadID := idParam(r, "threadID")
	if err := app.DB().AddFavorite(r.Context(), currentAccount(r).ID, threadID); err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"thread_id": threadID, "favorite": true}, app)
}

// HandleUnfavorite removes a bookmark.
func HandleUnfavorite(w http.ResponseWriter, r *http.Request, app App) {
	threadID := idParam(r, "threadID")
	if err := app.DB().RemoveFavorite(r.Context(), currentAccount(r).ID, threadID); err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"thread_id": threadID, "favorite": false}, app)
}
