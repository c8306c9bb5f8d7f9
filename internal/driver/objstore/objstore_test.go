package objstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fragio/internal/driver"
	"github.com/roach88/fragio/internal/ioerr"
	"github.com/roach88/fragio/internal/query"
)

// fakeServer answers the wire protocol from a fixed script.
type fakeServer struct {
	ln       net.Listener
	mu       sync.Mutex
	requests []Request
}

func shortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "fio")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func startFakeServer(t *testing.T) (*fakeServer, string) {
	t.Helper()
	path := shortSocketPath(t)
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	s := &fakeServer{ln: ln}
	t.Cleanup(func() { ln.Close() })
	go s.serve()
	return s, path
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeServer) handle(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		resp := Response{ID: req.ID, OK: true}
		switch req.Method {
		case MethodUse:
			if req.Database != "main" {
				resp = ErrorResponse(req.ID, ioerr.New(ioerr.ConnectionError, "unknown database %s", req.Database))
			}
		case MethodExecute:
			if req.Query == "from=missing;operation=select;" {
				resp = ErrorResponse(req.ID, ioerr.New(ioerr.QueryExecutionError, "no such table: missing"))
				break
			}
			resp.Columns = []string{"query", "binds"}
			resp.Rows = [][][]byte{{[]byte(req.Query), []byte(fmt.Sprint(len(req.Binds)))}, {[]byte(""), nil}}
		}
		data, _ := json.Marshal(resp)
		fmt.Fprintf(conn, "%s\n", data)
		if req.Method == MethodClose {
			return
		}
	}
}

func (s *fakeServer) methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.requests {
		out = append(out, r.Method)
	}
	return out
}

func connectClient(t *testing.T, socket string) *Driver {
	t.Helper()
	d := New(nil)
	require.NoError(t, d.Setup(Unix))
	require.NoError(t, d.Connect(context.Background(), driver.Params{Socket: socket}))
	t.Cleanup(func() { d.Cleanup() })
	return d
}

func TestSetupQuery_Canonicalizes(t *testing.T) {
	d := New(nil)

	plan, err := d.SetupQuery("operation=select;from=t;field=a|b;", nil)
	require.NoError(t, err)
	assert.Equal(t, query.TextPlan, plan.Kind)
	assert.Equal(t, query.Select, plan.Operation)
	assert.Equal(t, "field=a|b;from=t;operation=select;", plan.SQL)

	plan, err = d.SetupQuery("operation=insert;frag_name=f;field=a|b;value=?|?;",
		[]query.BindArg{query.Int32Arg(1), query.StringArg("x")})
	require.NoError(t, err)
	assert.Equal(t, query.PreparedPlan, plan.Kind)
	assert.Len(t, plan.Args, 2)
}

func TestSetupQuery_Errors(t *testing.T) {
	d := New(nil)
	testCases := []struct {
		name  string
		text  string
		binds []query.BindArg
		code  ioerr.Code
	}{
		{"parse", "operation=select;;", nil, ioerr.ParseError},
		{"no operation", "field=a;", nil, ioerr.MissingArgument},
		{"unknown operation", "operation=merge;", nil, ioerr.InvalidParameter},
		{"bind count", "operation=insert;value=?|?;", []query.BindArg{query.Int32Arg(1)}, ioerr.InvalidParameter},
		{"bind type", "operation=insert;value=?;", []query.BindArg{{Type: 77}}, ioerr.InvalidParameter},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.SetupQuery(tc.text, tc.binds)
			assert.Equal(t, tc.code, ioerr.CodeOf(err), "%v", err)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	server, socket := startFakeServer(t)
	d := connectClient(t, socket)
	ctx := context.Background()

	require.NoError(t, d.UseDatabase(ctx, "main"))
	err := d.UseDatabase(ctx, "other")
	assert.True(t, ioerr.Is(err, ioerr.ConnectionError))

	plan, err := d.SetupQuery("operation=insert;frag_name=f;field=a;value=?;", []query.BindArg{query.Int64Arg(3)})
	require.NoError(t, err)
	require.NoError(t, d.ExecuteQuery(ctx, plan))
	require.NoError(t, d.FreeQuery(plan))
	require.NoError(t, d.FreeQuery(plan))

	rs, err := d.GetResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.NumRows)
	assert.Equal(t, []int{len("field=a;frag_name=f;operation=insert;value=?;"), 1}, rs.MaxLengths)

	row, err := d.FetchRow(rs)
	require.NoError(t, err)
	assert.Equal(t, []string{"field=a;frag_name=f;operation=insert;value=?;", "1"}, row.Strings())

	row, err = d.FetchRow(rs)
	require.NoError(t, err)
	assert.False(t, row.IsNull(0), "empty string is not NULL")
	assert.True(t, row.IsNull(1))

	row, err = d.FetchRow(rs)
	require.NoError(t, err)
	assert.Nil(t, row)
	require.NoError(t, d.FreeResult(rs))
	require.NoError(t, d.FreeResult(rs))

	_, err = d.GetResult(ctx)
	assert.True(t, ioerr.Is(err, ioerr.InvalidParameter))

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, []string{MethodPing, MethodUse, MethodUse, MethodExecute, MethodClose}, server.methods())
}

func TestExecute_ErrorCodeSurvivesWire(t *testing.T) {
	_, socket := startFakeServer(t)
	d := connectClient(t, socket)
	ctx := context.Background()

	plan, err := d.SetupQuery("operation=select;from=missing;", nil)
	require.NoError(t, err)
	defer d.FreeQuery(plan)

	err = d.ExecuteQuery(ctx, plan)
	require.Error(t, err)
	assert.True(t, ioerr.Is(err, ioerr.QueryExecutionError))
	assert.Equal(t, "QUERY_EXECUTION_ERROR: no such table: missing", err.Error())

	err = d.ExecuteQuery(ctx, plan)
	assert.True(t, ioerr.Is(err, ioerr.InvalidParameter), "plan executes once")
}

func TestConnect_ProbeAndRedial(t *testing.T) {
	server, socket := startFakeServer(t)
	d := connectClient(t, socket)
	ctx := context.Background()

	require.NoError(t, d.Connect(ctx, driver.Params{Socket: socket}))
	assert.Equal(t, []string{MethodPing, MethodPing}, server.methods())

	// Break the connection underneath the driver; the next Connect redials.
	require.NoError(t, d.conn.Close())
	require.NoError(t, d.Connect(ctx, driver.Params{Socket: socket}))
	assert.Equal(t, []string{MethodPing, MethodPing, MethodPing}, server.methods())
}

func TestConnect_Errors(t *testing.T) {
	ctx := context.Background()

	d := New(nil)
	assert.True(t, ioerr.Is(d.Connect(ctx, driver.Params{}), ioerr.NullParameter), "not set up")

	assert.True(t, ioerr.Is(d.Setup("udp"), ioerr.DriverNotFound))

	require.NoError(t, d.Setup(Unix))
	assert.True(t, ioerr.Is(d.Connect(ctx, driver.Params{}), ioerr.NullParameter), "no socket")

	err := d.Connect(ctx, driver.Params{Socket: filepath.Join(t.TempDir(), "absent.sock")})
	assert.True(t, ioerr.Is(err, ioerr.ConnectionError))

	plan, err := d.SetupQuery("operation=select;from=t;", nil)
	require.NoError(t, err)
	assert.True(t, ioerr.Is(d.ExecuteQuery(ctx, plan), ioerr.ConnectionError))
	assert.True(t, ioerr.Is(d.UseDatabase(ctx, "main"), ioerr.ConnectionError))
}

func TestRegistered(t *testing.T) {
	h, err := driver.Resolve("objstore:unix")
	require.NoError(t, err)
	require.NoError(t, h.Setup())
	require.NoError(t, h.Cleanup())

	h, err = driver.Resolve("objstore:carrier-pigeon")
	require.NoError(t, err)
	assert.True(t, ioerr.Is(h.Setup(), ioerr.DriverNotFound))
}

func TestBindsOnTheWire(t *testing.T) {
	binds := []query.BindArg{query.Int32Arg(-2), query.StringArg("abc"), query.NullArg(), query.DoubleArg(0.25)}
	wire, err := EncodeBinds(binds)
	require.NoError(t, err)
	assert.Equal(t, "LONG", wire[0].Type)
	assert.Equal(t, "VAR_STRING", wire[1].Type)
	assert.True(t, wire[2].Null)

	data, err := json.Marshal(wire)
	require.NoError(t, err)
	var back []WireBind
	require.NoError(t, json.Unmarshal(data, &back))

	decoded, err := DecodeBinds(back)
	require.NoError(t, err)
	v, err := decoded[0].Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(-2), v)
	assert.Equal(t, []byte("abc"), decoded[1].Bytes())
	assert.True(t, decoded[2].IsNull)
	f, err := decoded[3].Float64()
	require.NoError(t, err)
	assert.Equal(t, 0.25, f)

	_, err = DecodeBinds([]WireBind{{Type: "UUID"}})
	assert.True(t, ioerr.Is(err, ioerr.InvalidParameter))

	none, err := EncodeBinds(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestResponseErr(t *testing.T) {
	assert.NoError(t, Response{OK: true}.Err())

	err := Response{Code: ioerr.BufferOverflow, Error: "too long"}.Err()
	assert.True(t, ioerr.Is(err, ioerr.BufferOverflow))

	err = Response{Code: "SOMETHING_NEW", Error: "?"}.Err()
	assert.True(t, ioerr.Is(err, ioerr.QueryExecutionError))

	resp := ErrorResponse("id-1", fmt.Errorf("plain failure"))
	assert.Equal(t, ioerr.QueryExecutionError, resp.Code)
	assert.Equal(t, "plain failure", resp.Error)
}
