package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWidgets(t *testing.T, db string) {
	t.Helper()
	for _, w := range []struct{ name, props string }{
		{"a", `{"name": "foo", "age": 30}`},
		{"b", `{"name": "bar", "age": 12}`},
		{"c", `{"name": "baz", "age": 45}`},
	} {
		_, err := execute(t, "--db", db, "put", "Widget", w.name, "--props", w.props)
		require.NoError(t, err)
	}
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestPutAndGet(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, "--db", db, "put", "Widget", "a", "--props", `{"name": "foo", "age": 30, "ratio": 0.5}`)
	require.NoError(t, err)
	assert.Equal(t, "Widget/a\n", out)

	out, err = execute(t, "--db", db, "get", "Widget/a")
	require.NoError(t, err)
	assert.Equal(t, "Widget/a {\"age\":30,\"name\":\"foo\",\"ratio\":0.5}\n", out)
}

func TestPut_AllocatesName(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, "--db", db, "--format", "json", "put", "Widget", "--props", `{"age": 1}`)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	data := resp.Data.(map[string]any)
	key := data["key"].(string)
	assert.True(t, strings.HasPrefix(key, "Widget/"))
	assert.Greater(t, len(key), len("Widget/"))
}

func TestPut_TypeOverrides(t *testing.T) {
	db := tempDB(t)

	_, err := execute(t, "--db", db, "put", "Event", "e1",
		"--props", `{"at": "2024-01-02T03:04:05Z", "owner": "User/7"}`,
		"--type", "at=time", "--type", "owner=key")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "query", "Event", "--where", `owner == key("User", "7")`, "--where", `at < time("2025-01-01T00:00:00Z")`)
	require.NoError(t, err)
	assert.Contains(t, out, "Event/e1")
	assert.Contains(t, out, "(1 results)")
}

func TestPut_Errors(t *testing.T) {
	db := tempDB(t)

	_, err := execute(t, "--db", db, "put", "Widget", "a", "--props", `not json`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "--db", db, "put", "Widget", "a", "--type", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid --type "x"`)

	_, err = execute(t, "--db", db, "put", "Widget", "a", "--props", `{"at": 5}`, "--type", "at=time")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid properties")
}

func TestGet_NotFound(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, "--db", db, "get", "Widget/missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "Error [E_NOT_FOUND]")
}

func TestGet_InvalidKey(t *testing.T) {
	_, err := execute(t, "--db", tempDB(t), "get", "no-separator")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDelete(t *testing.T) {
	db := tempDB(t)
	seedWidgets(t, db)

	out, err := execute(t, "--db", db, "delete", "Widget/b")
	require.NoError(t, err)
	assert.Equal(t, "deleted Widget/b\n", out)

	_, err = execute(t, "--db", db, "get", "Widget/b")
	require.Error(t, err)

	_, err = execute(t, "--db", db, "delete", "Widget/b")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestQuery_Text(t *testing.T) {
	db := tempDB(t)
	seedWidgets(t, db)

	out, err := execute(t, "--db", db, "query", "Widget", "--where", "age >= 18", "--sort", "age:desc")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Widget/c "))
	assert.True(t, strings.HasPrefix(lines[1], "Widget/a "))
	assert.Equal(t, "(2 results)", lines[2])
}

func TestQuery_JSONWithPaging(t *testing.T) {
	db := tempDB(t)
	seedWidgets(t, db)

	out, err := execute(t, "--db", db, "--format", "json", "query", "Widget", "--sort", "age", "--skip", "1", "--limit", "1")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "SELECT * FROM Widget ORDER BY age ASC", data["plan"])
	assert.Equal(t, float64(1), data["count"])
	entities := data["entities"].([]any)
	require.Len(t, entities, 1)
	assert.Equal(t, "Widget/a", entities[0].(map[string]any)["key"])
}

func TestQuery_ConfigDefaultLimit(t *testing.T) {
	db := tempDB(t)
	seedWidgets(t, db)
	configPath := filepath.Join(t.TempDir(), "querystore.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("default_limit: 2\n"), 0644))

	out, err := execute(t, "--config", configPath, "--db", db, "query", "Widget")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 results)")

	out, err = execute(t, "--config", configPath, "--db", db, "query", "Widget", "--limit", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "(3 results)")
}

func TestQuery_Errors(t *testing.T) {
	db := tempDB(t)

	_, err := execute(t, "--db", db, "query", "Widget", "--where", "age >")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --where")

	out, err := execute(t, "--db", db, "query", "Widget", "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "INVALID_ARGUMENT")
}

func TestQuery_SkipNeedsLimit(t *testing.T) {
	db := tempDB(t)
	seedWidgets(t, db)

	_, err := execute(t, "--db", db, "query", "Widget", "--skip", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--skip requires --limit")

	configPath := filepath.Join(t.TempDir(), "querystore.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("default_limit: 5\n"), 0644))
	out, err := execute(t, "--config", configPath, "--db", db, "query", "Widget", "--skip", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 results)")
}

func TestExists(t *testing.T) {
	db := tempDB(t)
	seedWidgets(t, db)

	out, err := execute(t, "--db", db, "exists", "Widget", "--where", `name == "foo"`)
	require.NoError(t, err)
	assert.Equal(t, "exists\n", out)

	out, err = execute(t, "--db", db, "exists", "Widget", "--where", "age > 100")
	require.NoError(t, err)
	assert.Equal(t, "does not exist\n", out)

	out, err = execute(t, "--db", db, "--format", "json", "exists", "Gadget")
	require.NoError(t, err)
	data := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, false, data["exists"])
	assert.Equal(t, "does not exist", data["result"])
}

func TestList(t *testing.T) {
	db := tempDB(t)
	seedWidgets(t, db)
	_, err := execute(t, "--db", db, "put", "Gadget", "x")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "list")
	require.NoError(t, err)
	assert.Equal(t, "Gadget\nWidget\n", out)

	out, err = execute(t, "--db", db, "list", "Widget")
	require.NoError(t, err)
	assert.Equal(t, "Widget/a\nWidget/b\nWidget/c\n", out)

	out, err = execute(t, "--db", db, "list", "Widget", "--sort", "age:desc")
	require.NoError(t, err)
	assert.Equal(t, "Widget/c\nWidget/a\nWidget/b\n", out)
}

func TestExplain_Text(t *testing.T) {
	out, err := execute(t, "explain", "Widget", "--where", "age > 3", "--sort", "name")
	require.NoError(t, err)

	assert.Contains(t, out, "Plan:        SELECT * FROM Widget WHERE age > 3 ORDER BY name ASC\n")
	assert.Contains(t, out, "SQL:         SELECT key, props, types FROM entities WHERE kind = ? AND json_extract(props, ?) > ? ORDER BY json_extract(props, ?) ASC, key COLLATE BINARY ASC\n")
	assert.Contains(t, out, `Params:      ["Widget", "$.\"age\"", 3, "$.\"name\""]`)
	assert.Contains(t, out, "Portable:    no")
	assert.Contains(t, out, "first sort is on 'name'")
}

func TestExplain_Strict(t *testing.T) {
	out, err := execute(t, "explain", "Widget", "--where", "age > 3", "--sort", "name", "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "Plan:        SELECT * FROM Widget WHERE age > 3\n")
	assert.Contains(t, out, "Portable:    yes")
}

func TestExplain_CountJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "explain", "Widget", "--where", `_id == "42"`, "--sort", "age", "--count")
	require.NoError(t, err)

	data := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, `SELECT __key__ FROM Widget WHERE __key__ == key("Widget", "42")`, data["plan"])
	assert.Equal(t, "SELECT COUNT(*) FROM entities WHERE kind = ? AND key = ?", data["sql"])
	assert.Equal(t, []any{"Widget", "Widget/42"}, data["params"])
	assert.NotEmpty(t, data["fingerprint"])
}

func TestExplain_InvalidKind(t *testing.T) {
	out, err := execute(t, "explain", "")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "INVALID_ARGUMENT")
}
