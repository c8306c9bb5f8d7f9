// Package objstore implements the object-storage driver: a thin client of the
// fragio I/O server daemon. The daemon speaks the submission language
// itself, so this driver validates and canonicalizes queries instead of
// translating them to SQL.
//
// The subtype selects the transport: "unix" dials Params.Socket, "tcp"
// dials Params.Host:Params.Port.
package objstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/fragio/internal/driver"
	"github.com/roach88/fragio/internal/ioerr"
	"github.com/roach88/fragio/internal/query"
	"github.com/roach88/fragio/internal/submission"
)

// TypeName is the registry name of the object-storage driver.
const TypeName = "objstore"

// Transports supported as subtypes.
const (
	Unix = "unix"
	TCP  = "tcp"
)

// maxResponseBytes bounds one response line.
const maxResponseBytes = 64 * 1024 * 1024

func init() {
	driver.Register(TypeName, driver.Entry{
		New: func() driver.Driver { return New(nil) },
	})
}

// Driver is an object-storage client connection.
type Driver struct {
	logger  *slog.Logger
	network string

	params driver.Params
	conn   net.Conn
	reader *bufio.Reader

	pending  *Response
	executed bool
}

// New creates an unconfigured client. A nil logger means slog.Default().
func New(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{logger: logger}
}

// Setup selects the transport.
func (d *Driver) Setup(subtype string) error {
	switch subtype {
	case Unix, TCP:
		d.network = subtype
		d.logger = d.logger.With("driver", TypeName+driver.IdentifierSeparator+subtype)
		return nil
	default:
		return ioerr.New(ioerr.DriverNotFound, "object-storage driver has no transport %q", subtype)
	}
}

// Connect dials the daemon, or pings the existing connection and redials
// once if the ping fails.
func (d *Driver) Connect(ctx context.Context, params driver.Params) error {
	if d.network == "" {
		return ioerr.New(ioerr.NullParameter, "object-storage driver is not set up")
	}

	if d.conn != nil {
		_, err := d.call(ctx, Request{Method: MethodPing})
		if err == nil {
			return nil
		}
		d.logger.Warn("connection probe failed, reconnecting", "error", err)
		d.dropConn()
	}

	address := params.Socket
	if d.network == TCP {
		address = params.Address()
	}
	if address == "" {
		return ioerr.New(ioerr.NullParameter, "no %s address to dial", d.network)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, d.network, address)
	if err != nil {
		return ioerr.Wrap(ioerr.ConnectionError, err, "dial %s %s", d.network, address)
	}
	d.conn = conn
	d.reader = bufio.NewReaderSize(conn, 64*1024)
	d.params = params

	if _, err := d.call(ctx, Request{Method: MethodPing}); err != nil {
		d.dropConn()
		return err
	}
	d.logger.Debug("connected", "params", params.String())
	return nil
}

// UseDatabase asks the daemon to switch database.
func (d *Driver) UseDatabase(ctx context.Context, name string) error {
	if name == "" {
		return ioerr.New(ioerr.NullParameter, "database name is empty")
	}
	resp, err := d.call(ctx, Request{Method: MethodUse, Database: name})
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return ioerr.Wrap(ioerr.ConnectionError, err, "use database %s", name)
	}
	return nil
}

// SetupQuery validates text and produces a plan carrying its canonical
// encoding. Bind arguments are checked against the placeholder count.
func (d *Driver) SetupQuery(text string, binds []query.BindArg) (*query.Plan, error) {
	args, err := submission.Parse(text)
	if err != nil {
		return nil, err
	}
	tag, err := args.Require(submission.ArgOperation)
	if err != nil {
		return nil, err
	}
	op, err := query.ParseOperation(tag)
	if err != nil {
		return nil, err
	}
	canonical := args.Encode()

	if binds == nil || !query.HasPlaceholder(text) {
		return query.NewTextPlan(op, canonical), nil
	}
	if n := query.CountPlaceholders(canonical); n != len(binds) {
		return nil, ioerr.New(ioerr.InvalidParameter, "query has %d placeholders but %d bind arguments", n, len(binds))
	}
	if _, err := EncodeBinds(binds); err != nil {
		return nil, err
	}
	return query.NewPreparedPlan(op, canonical, binds), nil
}

// ExecuteQuery sends plan to the daemon and keeps its response for GetResult.
func (d *Driver) ExecuteQuery(ctx context.Context, plan *query.Plan) error {
	if plan == nil {
		return ioerr.New(ioerr.NullParameter, "query plan is nil")
	}
	if d.conn == nil {
		return ioerr.New(ioerr.ConnectionError, "not connected")
	}
	if err := plan.MarkExecuted(); err != nil {
		return err
	}
	d.pending, d.executed = nil, false

	binds, err := EncodeBinds(plan.Args)
	if err != nil {
		return err
	}
	resp, err := d.call(ctx, Request{Method: MethodExecute, Query: plan.SQL, Binds: binds})
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		d.logger.Debug("execute failed", "op", plan.Operation.String(), "error", err)
		return err
	}
	d.pending, d.executed = resp, true
	return nil
}

// FreeQuery releases plan.
func (d *Driver) FreeQuery(plan *query.Plan) error {
	return plan.Release()
}

// GetResult materializes the last execution's rows.
func (d *Driver) GetResult(ctx context.Context) (*driver.ResultSet, error) {
	if !d.executed {
		return nil, ioerr.New(ioerr.InvalidParameter, "no executed query to read")
	}
	resp := d.pending
	d.pending, d.executed = nil, false
	return resp.ResultSet()
}

// FetchRow advances rs.
func (d *Driver) FetchRow(rs *driver.ResultSet) (*driver.Row, error) {
	return rs.Next()
}

// FreeResult releases rs.
func (d *Driver) FreeResult(rs *driver.ResultSet) error {
	rs.Release()
	return nil
}

// Close says goodbye to the daemon and drops the connection.
func (d *Driver) Close() error {
	if d.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := d.call(ctx, Request{Method: MethodClose}); err != nil {
		d.logger.Debug("close handshake failed", "error", err)
	}
	return d.dropConn()
}

// Cleanup closes the connection and forgets the transport.
func (d *Driver) Cleanup() error {
	err := d.Close()
	d.network = ""
	d.params = driver.Params{}
	return err
}

func (d *Driver) dropConn() error {
	d.pending, d.executed = nil, false
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	d.reader = nil
	if err != nil {
		return ioerr.Wrap(ioerr.ConnectionError, err, "close connection")
	}
	return nil
}

// call performs one request/response exchange. Transport failures are
// ConnectionError; a failed response is returned as-is for the caller to
// interpret.
func (d *Driver) call(ctx context.Context, req Request) (*Response, error) {
	if d.conn == nil {
		return nil, ioerr.New(ioerr.ConnectionError, "not connected")
	}
	req.ID = uuid.NewString()

	deadline, _ := ctx.Deadline()
	if err := d.conn.SetDeadline(deadline); err != nil {
		return nil, ioerr.Wrap(ioerr.ConnectionError, err, "set deadline")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, ioerr.Wrap(ioerr.MemoryError, err, "marshal %s request", req.Method)
	}
	if _, err := fmt.Fprintf(d.conn, "%s\n", data); err != nil {
		return nil, ioerr.Wrap(ioerr.ConnectionError, err, "send %s request", req.Method)
	}

	line, err := readLine(d.reader)
	if err != nil {
		return nil, ioerr.Wrap(ioerr.ConnectionError, err, "read %s response", req.Method)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, ioerr.Wrap(ioerr.ConnectionError, err, "decode %s response", req.Method)
	}
	if resp.ID != req.ID {
		return nil, ioerr.New(ioerr.ConnectionError, "response id %q does not match request %q", resp.ID, req.ID)
	}
	return &resp, nil
}

func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		line = append(line, chunk...)
		if len(line) > maxResponseBytes {
			return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBytes)
		}
		if !isPrefix {
			return line, nil
		}
	}
}
