package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t    *testing.T
	args []string
}

func newCLI(t *testing.T, extra ...string) cli {
	db := filepath.Join(t.TempDir(), "state", "session.db")
	return cli{t: t, args: append([]string{"--db", db, "--log-level", "off"}, extra...)}
}

func (c cli) run(args ...string) (string, error) {
	c.t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(append([]string(nil), c.args...), args...))
	err := root.Execute()
	return out.String(), err
}

func (c cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "gatectl %s", strings.Join(args, " "))
	return out
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"login", "logout", "session", "eval", "classify", "impersonate"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestLoginEvalLogout(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("eval", "/manager/reviews")
	assert.Equal(t, "redirect /login?returnTo=%2Fmanager%2Freviews (no_session)\n", out)

	c.mustRun("login", "--token", "tok", "--id", "m-1", "--role", "Manager")

	out = c.mustRun("eval", "/manager/reviews")
	assert.Equal(t, "allow (allowed)\n", out)

	out = c.mustRun("eval", "/dashboard")
	assert.Equal(t, "redirect /manager/dashboard (landing)\n", out)

	var view sessionView
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("session")), &view))
	assert.True(t, view.SignedIn)
	require.NotNil(t, view.User)
	assert.Equal(t, "manager", view.User.Role)

	c.mustRun("logout")
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("session")), &view))
	assert.False(t, view.SignedIn)
}

func TestSessionOutputOmitsToken(t *testing.T) {
	c := newCLI(t)
	c.mustRun("login", "--token", "super-secret-token", "--id", "e-1", "--role", "employee")
	assert.NotContains(t, c.mustRun("session"), "super-secret-token")
}

func TestLoginRequiresCredentials(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--token")
}

func TestClassify(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("classify", "/login", "/reviews/12", "/settings/roles", "/profile")
	assert.Equal(t,
		"/login\tpublic\n"+
			"/reviews/12\troles[admin,employee,manager]\n"+
			"/settings/roles\troles[admin]\n"+
			"/profile\tauthenticated\n",
		out)
}

func TestImpersonateEnterAndExit(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/super-admin/impersonate/{id}", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": "acme-admin", "role": "admin"},
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c := newCLI(t, "--base-url", srv.URL+"/api")
	c.mustRun("login", "--token", "tok", "--id", "sa-1", "--role", "superadmin")

	out := c.mustRun("impersonate", "enter", "acme")
	assert.Equal(t, "impersonating acme as acme-admin (admin)\n", out)

	var view sessionView
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("session")), &view))
	assert.True(t, view.Impersonating)
	assert.Equal(t, "acme", view.EntityID)
	require.NotNil(t, view.OriginalUser)
	assert.Equal(t, "sa-1", view.OriginalUser.ID)

	_, err := c.run("impersonate", "enter", "globex")
	require.Error(t, err, "second enter must be refused")

	out = c.mustRun("impersonate", "exit")
	assert.Equal(t, "redirect /super-admin/dashboard (impersonation_exit) full-reload\n", out)

	out = c.mustRun("eval", "/super-admin/dashboard")
	assert.Equal(t, "allow (exit_recovery)\n", out)

	out = c.mustRun("impersonate", "exit")
	assert.Equal(t, "none (not_impersonating)\n", out)
}
