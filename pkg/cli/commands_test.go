package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/chapteradmin/pkg/api"
	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/config"
	"github.com/platinummonkey/chapteradmin/pkg/identity"
	"github.com/platinummonkey/chapteradmin/pkg/storage"
	"github.com/platinummonkey/chapteradmin/pkg/storage/memory"
)

// harness runs chapterctl invocations against one sqlite file
type harness struct {
	t      *testing.T
	path   string
	remote string
	token  string
	logs   bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	return &harness{t: t, path: filepath.Join(t.TempDir(), "chapters.db")}
}

func (h *harness) loadConfig(string) (*config.Config, error) {
	cfg := config.Default()
	cfg.Storage.Type = storage.TypeSQLite
	cfg.Storage.SQLitePath = h.path
	cfg.Identity.SystemAdmins = []string{"ops"}
	return cfg, nil
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&h.logs)

	env := &Env{Out: &out, Logger: logger, As: "ops", LoadConfig: h.loadConfig}
	env.Remote.BaseURL = h.remote
	env.Remote.Token = h.token
	err := NewRootCommand(env).Execute(context.Background(), args)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "chapterctl %v", args)
	return out
}

func (h *harness) addSchool(name string) *chapters.School {
	h.t.Helper()
	var schools []*chapters.School
	require.NoError(h.t, json.Unmarshal([]byte(h.mustRun("-json", "add-school", "-name", name, "-location", "Gulu")), &schools))
	require.Len(h.t, schools, 1)
	return schools[0]
}

func TestMigrate(t *testing.T) {
	h := newHarness(t)
	h.mustRun("migrate")
	assert.Contains(t, h.logs.String(), "Schema is up to date")
	assert.Contains(t, h.logs.String(), "storage=sqlite")
}

func TestLocal_Lifecycle(t *testing.T) {
	h := newHarness(t)
	school := h.addSchool("Lincoln High")
	assert.NotEmpty(t, school.ID)
	assert.Equal(t, "Gulu", school.Location)

	out := h.mustRun("assign", "-school", school.ID, "-user", "alice", "-role", "chapter_super_admin")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "CHAPTER_SUPER_ADMIN")
	assert.Contains(t, out, "ops")

	out = h.mustRun("list", "-school", school.ID)
	assert.Contains(t, out, "alice")

	out = h.mustRun("list", "-user", "alice")
	assert.Contains(t, out, "Lincoln High")

	h.addSchool("Adams Elementary")
	out = h.mustRun("list")
	assert.Contains(t, out, "alice (CHAPTER_SUPER_ADMIN)")
	assert.Contains(t, out, "Adams Elementary")
	assert.Less(t, bytes.Index([]byte(out), []byte("Adams")), bytes.Index([]byte(out), []byte("Lincoln")))

	out = h.mustRun("stats", "-school", school.ID, "-volunteer-hours", "120")
	assert.Contains(t, out, "120")

	var updated []*chapters.School
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("-json", "stats", "-school", school.ID, "-active-members", "14")), &updated))
	require.Len(t, updated, 1)
	assert.Equal(t, int64(120), updated[0].VolunteerHours)
	assert.Equal(t, int64(14), updated[0].ActiveMembers)

	var admins []*chapters.Assignment
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("-json", "list", "-school", school.ID)), &admins))
	require.Len(t, admins, 1)

	out = h.mustRun("remove", "-id", admins[0].ID)
	assert.Contains(t, out, "false")

	out = h.mustRun("-json", "list", "-school", school.ID)
	assert.JSONEq(t, "[]", out)
}

func TestLocal_Permissions(t *testing.T) {
	h := newHarness(t)
	school := h.addSchool("Lincoln High")

	out := h.mustRun("permissions", "-school", school.ID)
	assert.Contains(t, out, "SYSTEM_ADMIN")
	assert.Contains(t, out, string(chapters.ActionCreateSchools))

	var summary chapters.PermissionSummary
	out, err := h.run("-as", "nobody", "-json", "permissions", "-school", school.ID)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "nobody", summary.UserID)
	assert.Equal(t, chapters.RoleUser, summary.Role)
	assert.Empty(t, summary.AssignableRoles)
}

func TestCommand_Validation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		args []string
		err  string
	}{
		{"add-school without name", []string{"add-school", "-name", "  "}, "-name is required"},
		{"assign without user", []string{"assign", "-school", "s1"}, "-school and -user are required"},
		{"assign system admin", []string{"assign", "-school", "s1", "-user", "u", "-role", "SYSTEM_ADMIN"}, "invalid role"},
		{"assign unknown role", []string{"assign", "-school", "s1", "-user", "u", "-role", "owner"}, "invalid role"},
		{"remove without id", []string{"remove"}, "-id is required"},
		{"stats without school", []string{"stats"}, "-school is required"},
		{"stats without values", []string{"stats", "-school", "s1"}, "set -volunteer-hours and/or -active-members"},
		{"stats on missing school", []string{"stats", "-school", "missing", "-active-members", "3"}, "school not found"},
		{"assign on missing school", []string{"assign", "-school", "missing", "-user", "u"}, "school not found"},
		{"audit without database", []string{"audit"}, "database audit is not enabled"},
		{"maintenance run without job", []string{"maintenance", "run"}, "usage: maintenance run <job>"},
		{"maintenance run unknown job", []string{"maintenance", "run", "reindex"}, `unknown job "reindex"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.run(tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestRemove_PositionalID(t *testing.T) {
	h := newHarness(t)
	school := h.addSchool("Lincoln High")

	var assigned []*chapters.Assignment
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("-json", "assign", "-school", school.ID, "-user", "bob")), &assigned))
	require.Len(t, assigned, 1)
	assert.Equal(t, chapters.RoleChapterAdmin, assigned[0].Role)

	var removed []*chapters.Assignment
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("-json", "remove", assigned[0].ID)), &removed))
	require.Len(t, removed, 1)
	assert.False(t, removed[0].IsActive)
}

func TestMaintenance(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("maintenance", "list")
	assert.Equal(t, "cache-warm\n", out)

	h.mustRun("maintenance", "run", "cache-warm")
	assert.Contains(t, h.logs.String(), "Job completed")
}

func TestRemote(t *testing.T) {
	store := memory.New()
	engine := chapters.New(chapters.Deps{Identity: identity.NewStatic("sysadmin"), Store: store}, chapters.Options{})
	t.Cleanup(func() { _ = engine.Wait(context.Background()) })

	srv := httptest.NewServer(api.NewServer(engine, api.Options{Authenticator: identity.StaticTokens{
		"tok-sys":  {ID: "sysadmin"},
		"tok-user": {ID: "user"},
	}}))
	t.Cleanup(srv.Close)

	h := newHarness(t)
	h.remote = srv.URL
	h.token = "tok-sys"

	school := h.addSchool("Lincoln High")
	out := h.mustRun("assign", "-school", school.ID, "-user", "user")
	assert.Contains(t, out, "sysadmin")

	h.token = "tok-user"
	out = h.mustRun("permissions", "-school", school.ID)
	assert.Contains(t, out, "CHAPTER_ADMIN")
	assert.Contains(t, out, string(chapters.ActionEditActiveMembers))

	_, err := h.run("stats", "-school", school.ID, "-volunteer-hours", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	_, err = h.run("add-school", "-name", "Rogue Academy")
	require.Error(t, err)

	for _, args := range [][]string{{"migrate"}, {"audit"}, {"maintenance", "list"}} {
		_, err := h.run(args...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run it without -server")
	}
}
