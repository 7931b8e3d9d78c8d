package cli_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mickamy/kanboard/internal/cli"
	"github.com/mickamy/kanboard/orm"
	"github.com/mickamy/kanboard/router"
)

// setup points the configuration at a fresh SQLite file.
func setup(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("KANBOARD_DATABASE_DSN", filepath.Join(dir, "kanboard.sqlite3"))
	t.Setenv("KANBOARD_LOG_LEVEL", "warn")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := cli.NewRootCommand("test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestRoutesTable(t *testing.T) {
	setup(t)

	out, err := run(t, "routes")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "board_details")
	assert.Contains(t, out, "/board/<int:board_id>/cards/new/")
	assert.Contains(t, out, "boards_owned, boards_guest")
}

func TestRoutesYAML(t *testing.T) {
	setup(t)

	out, err := run(t, "routes", "--format", "yaml")
	require.NoError(t, err)

	var bindings []router.BindingInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &bindings))
	require.Len(t, bindings, 12)
	assert.Equal(t, "index", bindings[0].Name)
	assert.Equal(t, "/", bindings[0].Path)

	byName := make(map[string]router.BindingInfo)
	for _, b := range bindings {
		byName[b.Name] = b
	}
	create := byName["create_card"]
	assert.Equal(t, "POST", create.Method)
	assert.True(t, create.Session)
	require.Len(t, create.Queries, 3)
	assert.Contains(t, create.Queries[2].Template, "COALESCE(MAX(position), -1) + 1")
	assert.Equal(t, []string{"column_id", "title"}, create.Params)

	details := byName["user_details"]
	assert.Equal(t, "/account/", details.Path)
	assert.True(t, details.Session)
	require.Len(t, details.Queries, 1)
	assert.Contains(t, details.Queries[0].Template, "WHERE _user_uuid = PARAM(uuid)")

	register := byName["registration_submission"]
	assert.False(t, register.Session)
	assert.Equal(t, []string{"name", "surname", "username", "email", "password"}, register.Params)
}

func TestRoutesInvalidFormat(t *testing.T) {
	setup(t)

	_, err := run(t, "routes", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSQLRender(t *testing.T) {
	setup(t)

	out, err := run(t, "sql", "board_details", "board", "-p", "board_id=7", "-p", "uuid=u-1")
	require.NoError(t, err)
	assert.Contains(t, out, "-- board: Board not found.")
	assert.Contains(t, out, "WHERE _board_.id = 7")
	assert.Contains(t, out, "_board_.owner = u-1")
	assert.NotContains(t, out, "columns")

	out, err = run(t, "sql", "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "WHERE uuid = NULL")
	assert.Contains(t, out, "-- boards_guest:")
}

func TestSQLErrors(t *testing.T) {
	setup(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown binding", []string{"sql", "nope"}, "unknown binding: nope"},
		{"unknown query", []string{"sql", "dashboard", "nope"}, "has no query nope"},
		{"missing param", []string{"sql", "board_details"}, "board_id is not part of the parameters"},
		{"malformed param", []string{"sql", "dashboard", "-p", "uuid"}, "want key=value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMigrateAndExecute(t *testing.T) {
	setup(t)

	out, err := run(t, "migrate", "version")
	require.NoError(t, err)
	assert.Equal(t, "no migration applied\n", out)

	out, err = run(t, "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, "version 2\n", out)

	out, err = run(t, "sql", "dashboard", "--execute", "-p", "uuid=u-1")
	require.NoError(t, err)
	var results map[string]orm.Rows
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Contains(t, results, "boards_owned")
	assert.Equal(t, []string{"id", "name", "description", "image"}, results["boards_owned"].Columns)
	assert.True(t, results["boards_owned"].Empty())
	assert.Equal(t, []string{"username", "image"}, results["user"].Columns)

	out, err = run(t, "migrate", "down")
	require.NoError(t, err)
	assert.Equal(t, "no migration applied\n", out)
}

func TestSessionCommands(t *testing.T) {
	setup(t)
	t.Setenv("KANBOARD_SESSION_BACKEND", "sql")

	_, err := run(t, "migrate", "up")
	require.NoError(t, err)

	out, err := run(t, "session", "create", "u-1")
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	assert.Len(t, token, 36)

	out, err = run(t, "session", "purge")
	require.NoError(t, err)
	assert.Equal(t, "purged 0 sessions\n", out)

	_, err = run(t, "session", "delete", token)
	require.NoError(t, err)
}

func TestSessionMemoryBackend(t *testing.T) {
	setup(t)

	_, err := run(t, "session", "create", "u-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory session backend")
}
