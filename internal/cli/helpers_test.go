package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var scenarioFiles = []string{
	"../../testdata/scenarios/counter_cascade.yaml",
	"../../testdata/scenarios/counter_faults.yaml",
}

// execute runs reduxctl with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("REDUX_DB", "")
	t.Setenv("REDUX_OTEL_ENDPOINT", "")
	t.Setenv("REDUX_LOG_LEVEL", "error")

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// journalDB runs both reference scenarios into a fresh database.
func journalDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "journal.db")
	_, _, err := execute(t, append([]string{"run", "--db", db}, scenarioFiles...)...)
	require.NoError(t, err)
	return db
}

// decodeData unmarshals the data of an ok JSON response into v.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}
