package driver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fragio/internal/ioerr"
	"github.com/roach88/fragio/internal/query"
)

// stubDriver records calls and serves a fixed result.
type stubDriver struct {
	calls    []string
	subtype  string
	setupErr   error
	execErr    error
	closeErr   error
	cleanupErr error
	rows       []*Row
}

func (d *stubDriver) Setup(subtype string) error {
	d.calls = append(d.calls, "setup")
	d.subtype = subtype
	return d.setupErr
}

func (d *stubDriver) Connect(ctx context.Context, params Params) error {
	d.calls = append(d.calls, "connect")
	return nil
}

func (d *stubDriver) UseDatabase(ctx context.Context, name string) error {
	d.calls = append(d.calls, "use:"+name)
	return nil
}

func (d *stubDriver) SetupQuery(text string, binds []query.BindArg) (*query.Plan, error) {
	d.calls = append(d.calls, "setup_query")
	return query.NewTextPlan(query.Select, text), nil
}

func (d *stubDriver) ExecuteQuery(ctx context.Context, plan *query.Plan) error {
	d.calls = append(d.calls, "execute")
	return d.execErr
}

func (d *stubDriver) FreeQuery(plan *query.Plan) error {
	d.calls = append(d.calls, "free_query")
	return plan.Release()
}

func (d *stubDriver) GetResult(ctx context.Context) (*ResultSet, error) {
	d.calls = append(d.calls, "get_result")
	return NewResultSet([]string{"a"}, d.rows)
}

func (d *stubDriver) FetchRow(rs *ResultSet) (*Row, error) { return rs.Next() }

func (d *stubDriver) FreeResult(rs *ResultSet) error {
	rs.Release()
	return nil
}

func (d *stubDriver) Close() error {
	d.calls = append(d.calls, "close")
	return d.closeErr
}

func (d *stubDriver) Cleanup() error {
	d.calls = append(d.calls, "cleanup")
	return d.cleanupErr
}

type libCounter struct {
	inits     int
	teardowns int
}

func newStubRegistry(lib *libCounter) *Registry {
	r := NewRegistry()
	r.Register("stub", Entry{
		New:      func() Driver { return &stubDriver{} },
		Init:     func() error { lib.inits++; return nil },
		Teardown: func() error { lib.teardowns++; return nil },
	})
	return r
}

func TestSplitIdentifier(t *testing.T) {
	testCases := []struct {
		identifier string
		typ        string
		subtype    string
		code       ioerr.Code
	}{
		{"relational:sqlite3", "relational", "sqlite3", ""},
		{"objstore:unix:/tmp/s", "objstore", "unix:/tmp/s", ""},
		{"relational", "", "", ioerr.InvalidServerName},
		{":sqlite3", "", "", ioerr.InvalidServerName},
		{"relational:", "", "", ioerr.InvalidServerName},
		{"", "", "", ioerr.NullParameter},
	}
	for _, tc := range testCases {
		t.Run(tc.identifier, func(t *testing.T) {
			typ, subtype, err := SplitIdentifier(tc.identifier)
			if tc.code != "" {
				assert.Equal(t, tc.code, ioerr.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.typ, typ)
			assert.Equal(t, tc.subtype, subtype)
		})
	}
}

func TestResolve(t *testing.T) {
	r := newStubRegistry(&libCounter{})

	h, err := r.Resolve("stub:x")
	require.NoError(t, err)
	assert.Equal(t, "stub", h.Type)
	assert.Equal(t, "x", h.Subtype)
	assert.Equal(t, "stub:x", h.Identifier())
	assert.NotNil(t, h.Driver())

	h2, err := r.Resolve("stub:x")
	require.NoError(t, err)
	assert.NotSame(t, h.Driver(), h2.Driver(), "each handle owns a driver instance")

	_, err = r.Resolve("nosuch:x")
	assert.True(t, ioerr.Is(err, ioerr.DriverNotFound))

	_, err = r.Resolve("stub")
	assert.True(t, ioerr.Is(err, ioerr.InvalidServerName))
}

func TestResolve_NilFactoryResult(t *testing.T) {
	r := NewRegistry()
	r.Register("empty", Entry{New: func() Driver { return nil }})

	_, err := r.Resolve("empty:x")
	assert.True(t, ioerr.Is(err, ioerr.DriverNotFound))
}

func TestRegister_Panics(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.Register("", Entry{New: func() Driver { return nil }}) })
	assert.Panics(t, func() { r.Register("a:b", Entry{New: func() Driver { return nil }}) })
	assert.Panics(t, func() { r.Register("nofactory", Entry{}) })

	r.Register("once", Entry{New: func() Driver { return &stubDriver{} }})
	assert.Panics(t, func() { r.Register("once", Entry{New: func() Driver { return &stubDriver{} }}) })
	assert.Equal(t, []string{"once"}, r.Drivers())
}

func TestSetup_Idempotent(t *testing.T) {
	lib := &libCounter{}
	r := newStubRegistry(lib)

	h, err := r.Resolve("stub:sub")
	require.NoError(t, err)
	require.NoError(t, h.Setup())
	require.NoError(t, h.Setup())

	stub := h.Driver().(*stubDriver)
	assert.Equal(t, []string{"setup"}, stub.calls)
	assert.Equal(t, "sub", stub.subtype)
	assert.Equal(t, 1, lib.inits)
}

func TestLibraryRefCounting(t *testing.T) {
	lib := &libCounter{}
	r := newStubRegistry(lib)

	h1, err := r.Resolve("stub:a")
	require.NoError(t, err)
	h2, err := r.Resolve("stub:b")
	require.NoError(t, err)

	require.NoError(t, h1.Setup())
	require.NoError(t, h2.Setup())
	assert.Equal(t, 1, lib.inits)
	assert.Equal(t, 2, r.live("stub"))

	require.NoError(t, h1.Cleanup())
	assert.Equal(t, 0, lib.teardowns)

	require.NoError(t, h2.Cleanup())
	require.NoError(t, h2.Cleanup())
	assert.Equal(t, 1, lib.teardowns)
	assert.Equal(t, 0, r.live("stub"))
	assert.Nil(t, h2.Driver())

	// A fresh handle re-initializes the library.
	h3, err := r.Resolve("stub:c")
	require.NoError(t, err)
	require.NoError(t, h3.Setup())
	assert.Equal(t, 2, lib.inits)
}

func TestSetup_FailureReleasesLibrary(t *testing.T) {
	lib := &libCounter{}
	r := NewRegistry()
	r.Register("bad", Entry{
		New:      func() Driver { return &stubDriver{setupErr: errors.New("boom")} },
		Init:     func() error { lib.inits++; return nil },
		Teardown: func() error { lib.teardowns++; return nil },
	})

	h, err := r.Resolve("bad:x")
	require.NoError(t, err)
	assert.Error(t, h.Setup())
	assert.Equal(t, 1, lib.teardowns)
	assert.Equal(t, 0, r.live("bad"))

	// Cleanup of a never-initialized handle does not touch the library.
	require.NoError(t, h.Cleanup())
	assert.Equal(t, 1, lib.teardowns)
}

func TestCleanup_ReportsEveryFailure(t *testing.T) {
	closeErr := errors.New("close failed")
	cleanupErr := errors.New("cleanup failed")
	teardownErr := errors.New("teardown failed")

	lib := &libCounter{}
	r := NewRegistry()
	r.Register("flaky", Entry{
		New:      func() Driver { return &stubDriver{closeErr: closeErr, cleanupErr: cleanupErr} },
		Teardown: func() error { lib.teardowns++; return teardownErr },
	})

	h, err := r.Resolve("flaky:x")
	require.NoError(t, err)
	require.NoError(t, h.Setup())
	stub := h.Driver().(*stubDriver)

	err = h.Cleanup()
	require.Error(t, err)
	assert.ErrorIs(t, err, closeErr)
	assert.ErrorIs(t, err, cleanupErr)
	assert.ErrorIs(t, err, teardownErr)
	assert.Equal(t, []string{"setup", "close", "cleanup"}, stub.calls)
	assert.Equal(t, 1, lib.teardowns)
	assert.Equal(t, 0, r.live("flaky"))

	require.NoError(t, h.Cleanup())
}

func TestHandle_Exec(t *testing.T) {
	r := newStubRegistry(&libCounter{})
	h, err := r.Resolve("stub:x")
	require.NoError(t, err)

	_, err = h.Exec(context.Background(), "operation=select;", nil)
	assert.True(t, ioerr.Is(err, ioerr.NullParameter), "exec before setup")

	require.NoError(t, h.Setup())
	stub := h.Driver().(*stubDriver)
	stub.rows = []*Row{NewRow([][]byte{[]byte("1")}), NewRow([][]byte{nil})}

	require.NoError(t, h.Connect(context.Background(), Params{Database: "d1"}))

	rs, err := h.Exec(context.Background(), "operation=select;", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.NumRows)
	assert.Equal(t, []string{"setup", "connect", "use:d1", "setup_query", "execute", "get_result", "free_query"}, stub.calls)

	require.NoError(t, h.Cleanup())
	assert.Equal(t, "cleanup", stub.calls[len(stub.calls)-1])
	assert.Equal(t, "close", stub.calls[len(stub.calls)-2])

	_, err = h.Exec(context.Background(), "operation=select;", nil)
	assert.True(t, ioerr.Is(err, ioerr.NullParameter), "exec after cleanup")
}

func TestHandle_ExecFreesPlanOnFailure(t *testing.T) {
	r := newStubRegistry(&libCounter{})
	h, err := r.Resolve("stub:x")
	require.NoError(t, err)
	require.NoError(t, h.Setup())
	stub := h.Driver().(*stubDriver)
	stub.execErr = ioerr.New(ioerr.QueryExecutionError, "no such table")

	_, err = h.Exec(context.Background(), "operation=select;", nil)
	assert.True(t, ioerr.Is(err, ioerr.QueryExecutionError))
	assert.Contains(t, stub.calls, "free_query")
}

func TestManifestAliases(t *testing.T) {
	r := newStubRegistry(&libCounter{})
	manifest := "# drivers\n[legacy]\n/usr/lib/fragio/libstub.so\n\n[other]\nmissing.so\n"
	require.NoError(t, r.LoadManifest(strings.NewReader(manifest)))

	assert.Equal(t, map[string]string{"legacy": "stub", "other": "missing"}, r.Aliases())

	h, err := r.Resolve("legacy:x")
	require.NoError(t, err)
	assert.Equal(t, "legacy", h.Type)
	assert.IsType(t, &stubDriver{}, h.Driver())

	_, err = r.Resolve("other:x")
	assert.True(t, ioerr.Is(err, ioerr.DriverNotFound))
}

func TestParseManifest_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		manifest string
	}{
		{"path without header", "/usr/lib/libx.so\n"},
		{"header without path", "[x]\n"},
		{"two headers", "[x]\n[y]\n/lib/liby.so\n"},
		{"unterminated header", "[x\n/lib/libx.so\n"},
		{"empty type", "[]\n/lib/libx.so\n"},
		{"identifier type", "[a:b]\n/lib/libx.so\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseManifest(strings.NewReader(tc.manifest))
			assert.True(t, ioerr.Is(err, ioerr.ParseError), "%v", err)
		})
	}
}

func TestResultSet(t *testing.T) {
	rs, err := NewResultSet([]string{"id", "name"}, []*Row{
		NewRow([][]byte{[]byte("1"), []byte("alpha")}),
		NewRow([][]byte{[]byte("22"), nil}),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rs.NumRows)
	assert.Equal(t, 2, rs.NumFields)
	assert.Equal(t, []int{2, 5}, rs.MaxLengths)

	row, err := rs.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "alpha"}, row.Strings())

	row, err = rs.Next()
	require.NoError(t, err)
	assert.True(t, row.IsNull(1))
	assert.Equal(t, []string{"22", "NULL"}, row.Strings())

	row, err = rs.Next()
	require.NoError(t, err)
	assert.Nil(t, row)

	row, err = rs.Next()
	require.NoError(t, err)
	assert.Nil(t, row, "cursor never restarts")

	rs.Release()
	rs.Release()
	assert.True(t, rs.Released())
	_, err = rs.Next()
	assert.True(t, ioerr.Is(err, ioerr.InvalidParameter))

	var nilSet *ResultSet
	nilSet.Release()
}

func TestResultSet_FieldCountMismatch(t *testing.T) {
	_, err := NewResultSet([]string{"a"}, []*Row{NewRow([][]byte{nil, nil})})
	assert.True(t, ioerr.Is(err, ioerr.InvalidParameter))
}

func TestParams_String(t *testing.T) {
	assert.Equal(t, "dsn=<redacted>", Params{DSN: "user:secret@/db"}.String())
	assert.Equal(t, "socket=/tmp/s db=d", Params{Socket: "/tmp/s", Database: "d"}.String())
	assert.Equal(t, "addr=db.local:3306 user=u db=d", Params{Host: "db.local", Port: 3306, User: "u", Database: "d"}.String())
	assert.NotContains(t, Params{Host: "h", Password: "secret"}.String(), "secret")
}
