package handlers

import (
	"net/http"
	"strings"

	"sixchan/config"
	"sixchan/utils"

	"github.com/go-chi/chi/v5"
)

// sendLink mails a link in the background. The mutation that produced the
// token has already committed and stays committed whatever the mailer does.
func sendLink(app App, to, subject, intro, path string) {
	utils.SendAsync(app.Mailer(), utils.Message{
		To:      to,
		Subject: subject,
		Body:    intro + "\n\n" + strings.TrimRight(app.BaseURL(), "/") + path + "\n",
	}, app.Logger())
}

// HandleSignup creates an inactive account and mails its activation link.
func HandleSignup(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleSignup")
	form := signupForm{
		Username:             strings.TrimSpace(r.FormValue("username")),
		Email:                strings.TrimSpace(r.FormValue("email")),
		DisplayName:          strings.TrimSpace(r.FormValue("display_name")),
		Password:             r.FormValue("password"),
		PasswordConfirmation: r.FormValue("password_confirmation"),
	}
	if err := validateForm(form); err != nil {
		respondError(w, err, app)
		return
	}
	account, token, err := app.DB().Signup(r.Context(), form.Username, form.Email, form.Password, form.DisplayName)
	if err != nil {
		logger.Warn("Signup rejected", "username", form.Username, "error", err)
		respondError(w, err, app)
		return
	}
	sendLink(app, account.Email, "Activate your sixchan account",
		"Open the link below to activate your account.", "/me/activate/"+token)
	respondJSON(w, http.StatusCreated, account, app)
}

// HandleActivate consumes an activation token.
func HandleActivate(w http.ResponseWriter, r *http.Request, app App) {
	account, alreadyActive, err := app.DB().Activate(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"username":       account.Username,
		"activated":      true,
		"already_active": alreadyActive,
	}, app)
}

// HandleLogin checks credentials and sets the session cookie.
func HandleLogin(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleLogin")
	form := loginForm{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	if err := validateForm(form); err != nil {
		respondError(w, err, app)
		return
	}
	account, err := app.DB().Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		logger.Info("Login failed", "username", form.Username, "ip", utils.GetIPAddress(r), "error", err)
		respondError(w, err, app)
		return
	}
	token, expires, err := app.Sessions().Issue(account.ID, account.Username)
	if err != nil {
		respondError(w, err, app)
		return
	}
	setSessionCookie(w, r, token, expires)
	respondJSON(w, http.StatusOK, account, app)
}

// HandleLogout clears the session cookie.
func HandleLogout(w http.ResponseWriter, r *http.Request, app App) {
	clearSessionCookie(w, r)
	respondJSON(w, http.StatusOK, map[string]string{"success": "Logged out."}, app)
}

// HandleMe returns the logged-in account and its profile.
func HandleMe(w http.ResponseWriter, r *http.Request, app App) {
	account := currentAccount(r)
	profile, err := app.DB().GetProfile(r.Context(), account.ID)
	if err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"account": account, "profile": profile}, app)
}

// HandleHistory lists the threads the account posted in.
func HandleHistory(w http.ResponseWriter, r *http.Request, app App) {
	page, err := pageParam(r)
	if err != nil {
		respondError(w, err, app)
		return
	}
	history, err := app.DB().GetUserHistory(r.Context(), currentAccount(r).ID, page, config.ThreadsHistoryPerPage)
	if err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"history":    history,
		"pagination": paginationFor(history.Page, history.Pages),
	}, app)
}

// HandleMyFavorites lists the account's bookmarked threads.
func HandleMyFavorites(w http.ResponseWriter, r *http.Request, app App) {
	page, err := pageParam(r)
	if err != nil {
		respondError(w, err, app)
		return
	}
	favorites, err := app.DB().GetFavoriteThreads(r.Context(), currentAccount(r).ID, page, config.FavoritesPerPage)
	if err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"favorites":  favorites,
		"pagination": paginationFor(favorites.Page, favorites.Pages),
	}, app)
}

// HandleUpdateProfile replaces the display name and introduction.
func HandleUpdateProfile(w http.ResponseWriter, r *http.Request, app App) {
	form := profileForm{
		DisplayName:  strings.TrimSpace(r.FormValue("display_name")),
		Introduction: r.FormValue("introduction"),
	}
	if err := validateForm(form); err != nil {
		respondError(w, err, app)
		return
	}
	account := currentAccount(r)
	if err := app.DB().UpdateProfile(r.Context(), account.ID, form.DisplayName, form.Introduction); err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"display_name": form.DisplayName, "introduction": form.Introduction}, app)
}

// HandleChangeUsername renames the account.
func HandleChangeUsername(w http.ResponseWriter, r *http.Request, app App) {
	form := usernameForm{Username: strings.TrimSpace(r.FormValue("username"))}
	if err := validateForm(form); err != nil {
		respondError(w, err, app)
		return
	}
	if err := app.DB().ChangeUsername(r.Context(), currentAccount(r).ID, form.Username); err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"username": form.Username}, app)
}

// HandleChangeEmail mails a confirmation link to the new address. The
// address changes only once the link is followed.
func HandleChangeEmail(w http.ResponseWriter, r *http.Request, app App) {
	form := emailForm{NewEmail: strings.TrimSpace(r.FormValue("new_email"))}
	if err := validateForm(form); err != nil {
		respondError(w, err, app)
		return
	}
	token, err := app.DB().RequestEmailChange(r.Context(), currentAccount(r).ID, form.NewEmail)
	if err != nil {
		respondError(w, err, app)
		return
	}
	sendLink(app, form.NewEmail, "Confirm your new sixchan email address",
		"Open the link below to confirm this address.", "/me/confirm/"+token)
	respondJSON(w, http.StatusAccepted, map[string]string{"success": "Confirmation sent to the new address."}, app)
}

// HandleConfirmEmail applies a pending email change.
func HandleConfirmEmail(w http.ResponseWriter, r *http.Request, app App) {
	account, err := app.DB().ConfirmEmailChange(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"username": account.Username, "email": account.Email}, app)
}

// HandleChangePassword replaces the password once the current one checks out.
func HandleChangePassword(w http.ResponseWriter, r *http.Request, app App) {
	form := passwordForm{
		CurrentPassword:         r.FormValue("current_password"),
		NewPassword:             r.FormValue("new_password"),
		NewPasswordConfirmation: r.FormValue("new_password_confirmation"),
	}
	if err := validateForm(form); err != nil {
		respondError(w, err, app)
		return
	}
	if err := app.DB().ChangePassword(r.Context(), currentAccount(r).ID, form.CurrentPassword, form.NewPassword); err != nil {
		respondError(w, err, app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"success": "Password changed."}, app)
}
