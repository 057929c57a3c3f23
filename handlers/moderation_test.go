package handlers

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"testing"

	"sixchan/config"
	"sixchan/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutesRequireRole(t *testing.T) {
	app := setupTestApp(t)
	seedUser(t, app, "plain", models.RoleGeneral)
	seedUser(t, app, "mod", models.RoleModerator)
	seedUser(t, app, "admin", models.RoleAdministrator)

	tests := []struct {
		name   string
		user   string
		method string
		path   string
		want   int
	}{
		{"Anonymous queue", "", http.MethodGet, "/admin/reports", http.StatusUnauthorized},
		{"General queue", "plain", http.MethodGet, "/admin/reports", http.StatusForbidden},
		{"Moderator queue", "mod", http.MethodGet, "/admin/reports", http.StatusOK},
		{"Moderator log", "mod", http.MethodGet, "/admin/log", http.StatusOK},
		{"Moderator creating a category", "mod", http.MethodPost, "/admin/categories", http.StatusForbidden},
		{"Administrator queue", "admin", http.MethodGet, "/admin/reports", http.StatusOK},
		{"General resolving", "plain", http.MethodPost, "/admin/reports/1/resolve", http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, app)
			if tc.user != "" {
				c.login(tc.user)
			}
			var status int
			var body []byte
			if tc.method == http.MethodGet {
				status, body = c.get(tc.path)
			} else {
				status, body = c.post(tc.path, url.Values{"name": {"x"}, "decision": {"safe"}})
			}
			assert.Equal(t, tc.want, status, string(body))
		})
	}
}

func TestResolveReports(t *testing.T) {
	app := setupTestApp(t)
	board := seedBoard(t, app)
	seedUser(t, app, "mod", models.RoleModerator)

	poster := newTestClient(t, app)
	thread := postThread(t, poster, board.ID, url.Values{"thread_name": {"t"}, "body": {"offensive"}})
	resID := strconv.FormatInt(thread.Res.ID, 10)
	for _, reason := range []string{"1", "2"} {
		status, _ := poster.post("/reses/"+resID+"/report", url.Values{"reason_id": {reason}})
		require.Equal(t, http.StatusCreated, status)
	}

	mod := newTestClient(t, app)
	mod.login("mod")

	status, body := mod.get("/admin/reports?status=open")
	require.Equal(t, http.StatusOK, status)
	queue := decodeJSON[struct {
		Reports models.PageOf[models.ReportRow] `json:"reports"`
	}](t, body)
	require.Len(t, queue.Reports.Items, 2)
	assert.Equal(t, thread.Thread.ID, queue.Reports.Items[0].ThreadID)

	status, _ = mod.post("/admin/reports/"+resID+"/resolve", url.Values{"decision": {"maybe"}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = mod.post("/admin/reports/"+resID+"/resolve", url.Values{"decision": {"out"}})
	require.Equal(t, http.StatusOK, status, string(body))
	result := decodeJSON[map[string]interface{}](t, body)
	assert.Equal(t, "redact", result["decision"])
	assert.Equal(t, float64(2), result["closed"])

	_, body = poster.get("/threads/" + thread.Thread.ID)
	page := decodeJSON[threadPage](t, body)
	assert.True(t, page.Reses[0].Inappropriate)
	assert.Equal(t, config.RedactedBody, page.Reses[0].Body)

	status, body = mod.get("/admin/reports?status=open")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decodeJSON[struct {
		Reports models.PageOf[models.ReportRow] `json:"reports"`
	}](t, body).Reports.Items)

	status, _ = mod.get("/admin/reports?status=pending")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = mod.get("/admin/log")
	require.Equal(t, http.StatusOK, status)
	log := decodeJSON[struct {
		Log models.PageOf[models.ModAction] `json:"log"`
	}](t, body)
	require.NotEmpty(t, log.Log.Items)
	assert.Equal(t, "resolve_redact", log.Log.Items[0].Action)

	status, _ = mod.post("/admin/reports/999999/resolve", url.Values{"decision": {"safe"}})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdministration(t *testing.T) {
	app := setupTestApp(t)
	seedUser(t, app, "admin", models.RoleAdministrator)
	c := newTestClient(t, app)
	c.login("admin")

	status, body := c.post("/admin/categories", url.Values{"name": {"Hobbies"}})
	require.Equal(t, http.StatusCreated, status, string(body))
	category := decodeJSON[models.BoardCategory](t, body)

	status, body = c.post("/admin/boards", url.Values{
		"category_id": {strconv.FormatInt(category.ID, 10)},
		"name":        {"Trains"},
		"description": {"Rail talk"},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	board := decodeJSON[models.Board](t, body)

	status, _ = c.post("/admin/boards", url.Values{"category_id": {"424242"}, "name": {"Lost"}})
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = c.post("/admin/boards", url.Values{"name": {"No category"}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = c.get("/")
	require.Equal(t, http.StatusOK, status)
	home := decodeJSON[struct {
		Categories []models.BoardCategory `json:"categories"`
	}](t, body)
	require.Len(t, home.Categories, 2)
	require.Len(t, home.Categories[1].Boards, 1)
	assert.Equal(t, board.ID, home.Categories[1].Boards[0].ID)

	status, _ = c.get("/boards/" + board.ID)
	assert.Equal(t, http.StatusOK, status)
}

func TestDatabaseBackup(t *testing.T) {
	app := setupTestApp(t)
	seedUser(t, app, "admin", models.RoleAdministrator)
	c := newTestClient(t, app)
	c.login("admin")

	status, body := c.post("/admin/backup", nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	location := decodeJSON[map[string]string](t, body)["location"]

	info, err := os.Stat(location)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	actions, err := app.db.GetModActions(context.Background(), 1, 10)
	require.NoError(t, err)
	require.NotEmpty(t, actions.Items)
	assert.Equal(t, "database_backup", actions.Items[0].Action)
}
