package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fragio/internal/journal"
)

func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.Open(path)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	records := []journal.Record{
		{ID: "r1", Session: "s-a", Seq: 1, Backend: "relational:sqlite3", Operation: "create_frag",
			Query: "operation=create_frag;frag_name=f1;", Status: journal.StatusOK},
		{ID: "r2", Session: "s-a", Seq: 2, Backend: "relational:sqlite3", Operation: "insert",
			Query: "operation=insert;frag_name=f1;field=id_dim;value=?;", BindTypes: []string{"LONG"},
			Status: journal.StatusOK, RowCount: 1},
		{ID: "r3", Session: "s-b", Seq: 1, Backend: "relational:sqlite3", Operation: "select",
			Query: "operation=select;field=a;from=missing;", Status: journal.StatusError,
			ErrorCode: "QUERY_EXECUTION_ERROR", Error: "no such table: missing"},
	}
	for _, r := range records {
		require.NoError(t, j.Append(ctx, r))
	}
	return path
}

func TestJournalCommand(t *testing.T) {
	path := seedJournal(t)

	t.Run("sessions", func(t *testing.T) {
		out, err := executeRoot(t, "journal", "--path", path)
		require.NoError(t, err)
		assert.Equal(t, "s-a\ns-b\n", out)
	})

	t.Run("session records", func(t *testing.T) {
		out, err := executeRoot(t, "journal", "--path", path, "--session", "s-a")
		require.NoError(t, err)
		assert.Equal(t,
			"1\tcreate_frag\tok\toperation=create_frag;frag_name=f1;\n"+
				"2\tinsert\tok\toperation=insert;frag_name=f1;field=id_dim;value=?;\t[LONG]\n",
			out)
	})

	t.Run("error code replaces status", func(t *testing.T) {
		out, err := executeRoot(t, "journal", "--path", path, "--session", "s-b")
		require.NoError(t, err)
		assert.Contains(t, out, "\tQUERY_EXECUTION_ERROR\t")
	})

	t.Run("json", func(t *testing.T) {
		out, err := executeRoot(t, "--format", "json", "journal", "--path", path, "--session", "s-a")
		require.NoError(t, err)

		var resp struct {
			Status string           `json:"status"`
			Data   []journal.Record `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.Len(t, resp.Data, 2)
		assert.Equal(t, []string{"LONG"}, resp.Data[1].BindTypes)
	})

	t.Run("unknown session is empty", func(t *testing.T) {
		out, err := executeRoot(t, "journal", "--path", path, "--session", "nope")
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestJournalCommandRequiresPath(t *testing.T) {
	_, err := executeRoot(t, "journal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path")
}
