package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func record(id, session string, seq int64) Record {
	return Record{
		ID:        id,
		Session:   session,
		Seq:       seq,
		Backend:   "relational:sqlite3",
		Operation: "select",
		Query:     "operation=select;field=a;from=t;",
		Status:    StatusOK,
	}
}

func TestOpen_CreatesNewJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, j.Close())
	}

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	var version int
	require.NoError(t, j.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var name string
	err = j.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_statements_session'",
	).Scan(&name)
	assert.NoError(t, err)
}

func TestOpen_Pragmas(t *testing.T) {
	j := openTestJournal(t)

	assert.NoError(t, j.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, j.verifyPragma("synchronous", "1"))
	assert.NoError(t, j.verifyPragma("busy_timeout", "5000"))
}

func TestClose_NilSafe(t *testing.T) {
	var j *Journal
	assert.NoError(t, j.Close())

	j = openTestJournal(t)
	assert.NoError(t, j.Close())
	assert.NoError(t, j.Close())
}

func TestAppend_ReadSession(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	failed := record("c", "s1", 2)
	failed.Status = StatusError
	failed.ErrorCode = "QUERY_EXECUTION_ERROR"
	failed.Error = "no such table: t"

	bound := record("a", "s1", 1)
	bound.Operation = "insert"
	bound.BindTypes = []string{"LONG", "VAR_STRING"}
	bound.RowCount = 0

	require.NoError(t, j.Append(ctx, failed))
	require.NoError(t, j.Append(ctx, bound))
	require.NoError(t, j.Append(ctx, record("b", "s2", 1)))

	got, err := j.ReadSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, bound, got[0])
	assert.Equal(t, failed, got[1])
}

func TestAppend_DuplicateIDIsNoop(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	rec := record("a", "s1", 1)
	require.NoError(t, j.Append(ctx, rec))
	require.NoError(t, j.Append(ctx, rec))

	got, err := j.ReadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAppend_DuplicateSeqFails(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	require.NoError(t, j.Append(ctx, record("a", "s1", 1)))
	assert.Error(t, j.Append(ctx, record("b", "s1", 1)))
}

func TestAppend_InvalidStatus(t *testing.T) {
	rec := record("a", "s1", 1)
	rec.Status = "maybe"

	err := openTestJournal(t).Append(context.Background(), rec)
	assert.ErrorContains(t, err, "invalid status")
}

func TestReadSession_EmptyIsNotNil(t *testing.T) {
	got, err := openTestJournal(t).ReadSession(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSessions_FirstSeenOrder(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	require.NoError(t, j.Append(ctx, record("1", "zeta", 1)))
	require.NoError(t, j.Append(ctx, record("2", "alpha", 1)))
	require.NoError(t, j.Append(ctx, record("3", "zeta", 2)))

	got, err := j.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, got)
}

func TestLastSeq(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)

	seq, err := j.LastSeq(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, seq)

	require.NoError(t, j.Append(ctx, record("a", "s1", 4)))
	require.NoError(t, j.Append(ctx, record("b", "s1", 7)))

	seq, err = j.LastSeq(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}

func TestBindTypes_NoHTMLEscaping(t *testing.T) {
	got, err := marshalBindTypes([]string{"<b>&"})
	require.NoError(t, err)
	assert.Equal(t, `["<b>&"]`, got)

	empty, err := marshalBindTypes(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)

	back, err := unmarshalBindTypes(got)
	require.NoError(t, err)
	assert.Equal(t, []string{"<b>&"}, back)
}
