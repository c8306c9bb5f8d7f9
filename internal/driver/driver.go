// Package driver defines the uniform storage-backend capability set and the
// registry that resolves a TYPE:SUBTYPE identifier to an implementation.
//
// Backends register a factory from init, the way database/sql drivers do:
//
//	func init() {
//		driver.Register("relational", driver.Entry{New: func() driver.Driver { return &Driver{} }})
//	}
//
// A caller resolves an identifier to a Handle, runs Setup once, then drives
// the blocking pipeline Connect → SetupQuery → ExecuteQuery → GetResult →
// FetchRow → FreeResult/FreeQuery → Close, and finally Cleanup. Operations on
// one handle are strictly sequential unless the handle is marked ThreadSafe.
package driver

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/roach88/fragio/internal/query"
)

// Driver is the capability set every storage backend implements. All eleven
// operations are mandatory.
type Driver interface {
	// Setup prepares the driver for subtype. It runs once per handle.
	Setup(subtype string) error

	// Connect establishes the backend connection. When a connection already
	// exists it is probed first and re-established at most once.
	Connect(ctx context.Context, params Params) error

	// UseDatabase selects the active schema. Rejection is a ConnectionError.
	UseDatabase(ctx context.Context, name string) error

	// SetupQuery translates a submission query into a Plan. binds is only
	// consulted when the submission text carries placeholders.
	SetupQuery(text string, binds []query.BindArg) (*query.Plan, error)

	// ExecuteQuery runs plan. Backend failures are QueryExecutionError.
	ExecuteQuery(ctx context.Context, plan *query.Plan) error

	// FreeQuery releases plan. Releasing twice is a no-op.
	FreeQuery(plan *query.Plan) error

	// GetResult materializes the outcome of the last ExecuteQuery.
	GetResult(ctx context.Context) (*ResultSet, error)

	// FetchRow advances rs by one row, returning nil at end of data.
	FetchRow(rs *ResultSet) (*Row, error)

	// FreeResult releases rs. Releasing twice is a no-op.
	FreeResult(rs *ResultSet) error

	// Close drops the backend connection. Closing twice is a no-op.
	Close() error

	// Cleanup releases everything Setup acquired.
	Cleanup() error
}

// Params carries connection settings. Drivers read only the fields they need.
type Params struct {
	Host     string `yaml:"host,omitempty" json:"host,omitempty"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
	User     string `yaml:"user,omitempty" json:"user,omitempty"`
	Password string `yaml:"password,omitempty" json:"-"`
	Database string `yaml:"database,omitempty" json:"database,omitempty"`

	// Socket is a Unix socket path; it takes precedence over Host/Port.
	Socket string `yaml:"socket,omitempty" json:"socket,omitempty"`

	// DSN is passed to the backend verbatim when set.
	DSN string `yaml:"dsn,omitempty" json:"-"`
}

// Address renders Host and Port as host:port.
func (p Params) Address() string {
	if p.Port == 0 {
		return p.Host
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// String renders the params without secrets, for logs.
func (p Params) String() string {
	switch {
	case p.DSN != "":
		return "dsn=<redacted>"
	case p.Socket != "":
		return fmt.Sprintf("socket=%s db=%s", p.Socket, p.Database)
	default:
		return fmt.Sprintf("addr=%s user=%s db=%s", p.Address(), p.User, p.Database)
	}
}
