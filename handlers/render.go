package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"sixchan/models"
	"sixchan/utils"

	"github.com/go-chi/chi/v5"
)

// respondJSON sends a JSON response with a given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}, app App) {
	response, err := json.Marshal(payload)
	if err != nil {
		app.Logger().Error("Failed to marshal JSON payload", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte(`{"error":"Failed to marshal JSON response"}`)); werr != nil {
			app.Logger().Error("Failed to write internal server error response", "error", werr)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		app.Logger().Error("Failed to write JSON response", "error", err)
	}
}

// statusFor maps an error kind onto its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden), errors.Is(err, models.ErrNotActivated):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrThreadFull), errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrTokenExpired):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

// messageFor is the user-facing text for an error kind. Storage errors
// never reach the client.
func messageFor(err error) string {
	switch {
	case errors.Is(err, models.ErrUsernameTaken):
		return "That username is already taken."
	case errors.Is(err, models.ErrEmailTaken):
		return "That email address is already registered."
	case errors.Is(err, models.ErrThreadFull):
		return "This thread has reached its post limit."
	case errors.Is(err, models.ErrConflict):
		return "The request conflicted with another change. Please retry."
	case errors.Is(err, models.ErrInvalidArgument):
		return err.Error()
	case errors.Is(err, models.ErrUnauthorized):
		return "Invalid username or password."
	case errors.Is(err, models.ErrNotActivated):
		return "This account has not been activated yet."
	case errors.Is(err, models.ErrForbidden):
		return "You are not allowed to do that."
	case errors.Is(err, models.ErrNotFound):
		return "Not found."
	case errors.Is(err, models.ErrTokenExpired):
		return "This link has expired."
	}
	return "Internal server error."
}

// respondError writes err as a JSON error. Unexpected errors are logged.
func respondError(w http.ResponseWriter, err error, app App) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		app.Logger().Error("Request failed", "error", err)
	}
	respondJSON(w, status, map[string]string{"error": messageFor(err)}, app)
}

// pageParam reads the "page" query parameter, defaulting to 1.
func pageParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.InvalidArgument("page must be a number")
	}
	return page, nil
}

// idParam reads a board or thread id from the path, accepting the short form.
func idParam(r *http.Request, name string) string {
	return utils.NormalizeID(chi.URLParam(r, name))
}
