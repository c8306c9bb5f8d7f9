// Package relational implements the relational storage driver on
// database/sql. Subtypes select both the SQL dialect and the client library:
//
//	sqlite3   github.com/mattn/go-sqlite3
//	mysql     github.com/go-sql-driver/mysql
//	postgres  github.com/jackc/pgx/v5/stdlib
//
// A driver pins one *sql.Conn from its pool, so session state such as the
// selected database survives between statements.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/fragio/internal/driver"
	"github.com/roach88/fragio/internal/ioerr"
	"github.com/roach88/fragio/internal/query"
	"github.com/roach88/fragio/internal/translate"
)

// TypeName is the registry name of the relational driver.
const TypeName = "relational"

// Subtypes supported by the relational driver.
const (
	SQLite   = "sqlite3"
	MySQL    = "mysql"
	Postgres = "postgres"
)

func init() {
	driver.Register(TypeName, driver.Entry{
		New:      func() driver.Driver { return New(nil) },
		Init:     initLibraries,
		Teardown: teardownLibraries,
	})
}

// Driver is a relational backend connection.
type Driver struct {
	// MaxQueryLength caps translated statements; 0 means the translator default.
	MaxQueryLength int

	logger     *slog.Logger
	subtype    string
	translator *translate.Translator

	params driver.Params
	db     *sql.DB
	conn   *sql.Conn

	// outcome of the last ExecuteQuery, consumed by GetResult.
	pending  *sql.Rows
	affected int64
	executed bool
}

// New creates an unconfigured relational driver. A nil logger means slog.Default().
func New(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{logger: logger}
}

// Setup binds the driver to a subtype's dialect.
func (d *Driver) Setup(subtype string) error {
	if _, err := sqlDriverName(subtype); err != nil {
		return err
	}
	dialect, err := translate.LookupDialect(subtype)
	if err != nil {
		return err
	}
	d.subtype = subtype
	d.translator = &translate.Translator{Dialect: dialect, MaxLength: d.MaxQueryLength}
	d.logger = d.logger.With("driver", TypeName+driver.IdentifierSeparator+subtype)
	return nil
}

// Subtype returns the configured subtype.
func (d *Driver) Subtype() string {
	return d.subtype
}

// Connect opens the pinned connection, or probes the existing one and
// reconnects once if the probe fails.
func (d *Driver) Connect(ctx context.Context, params driver.Params) error {
	if d.translator == nil {
		return ioerr.New(ioerr.NullParameter, "relational driver is not set up")
	}

	if d.conn != nil {
		err := d.conn.PingContext(ctx)
		if err == nil {
			return nil
		}
		d.logger.Warn("connection probe failed, reconnecting", "error", err)
		d.Close()
	}

	if err := d.open(ctx, params); err != nil {
		return err
	}
	d.params = params
	d.logger.Debug("connected", "params", params.String())
	return nil
}

func (d *Driver) open(ctx context.Context, params driver.Params) error {
	db, err := openDB(d.subtype, params)
	if err != nil {
		return err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return ioerr.Wrap(ioerr.ConnectionError, err, "connect %s", d.subtype)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return ioerr.Wrap(ioerr.ConnectionError, err, "ping %s", d.subtype)
	}
	d.db = db
	d.conn = conn
	return nil
}

// UseDatabase selects the active database (schema on postgres). On sqlite3
// the name must already be attached.
func (d *Driver) UseDatabase(ctx context.Context, name string) error {
	if name == "" {
		return ioerr.New(ioerr.NullParameter, "database name is empty")
	}
	if d.conn == nil {
		return ioerr.New(ioerr.ConnectionError, "not connected")
	}

	if d.translator.Dialect.UseDatabase == "" {
		var found int
		err := d.conn.QueryRowContext(ctx, "SELECT count(*) FROM pragma_database_list WHERE name = ?", name).Scan(&found)
		if err != nil {
			return ioerr.Wrap(ioerr.ConnectionError, err, "list databases")
		}
		if found == 0 {
			return ioerr.New(ioerr.ConnectionError, "database %q is not attached", name)
		}
		return nil
	}

	stmt := fmt.Sprintf(d.translator.Dialect.UseDatabase, name)
	if _, err := d.conn.ExecContext(ctx, stmt); err != nil {
		d.logger.Debug("use database rejected", "db", name, "native", nativeMessage(err))
		return ioerr.Wrap(ioerr.ConnectionError, err, "use database %s", name)
	}
	return nil
}

// SetupQuery translates a submission query for this driver's dialect.
func (d *Driver) SetupQuery(text string, binds []query.BindArg) (*query.Plan, error) {
	if d.translator == nil {
		return nil, ioerr.New(ioerr.NullParameter, "relational driver is not set up")
	}
	return d.translator.Setup(text, binds)
}

// FreeQuery releases plan and any prepared statement it holds.
func (d *Driver) FreeQuery(plan *query.Plan) error {
	return plan.Release()
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

// Close drops the pinned connection and its pool.
func (d *Driver) Close() error {
	d.discardPending()
	var err error
	if d.conn != nil {
		err = d.conn.Close()
		d.conn = nil
	}
	if d.db != nil {
		if cerr := d.db.Close(); err == nil {
			err = cerr
		}
		d.db = nil
	}
	if err != nil {
		return ioerr.Wrap(ioerr.ConnectionError, err, "close %s", d.subtype)
	}
	return nil
}

// Cleanup closes the connection and forgets the subtype.
func (d *Driver) Cleanup() error {
	err := d.Close()
	d.translator = nil
	d.subtype = ""
	d.params = driver.Params{}
	return err
}

func (d *Driver) discardPending() {
	if d.pending != nil {
		d.pending.Close()
		d.pending = nil
	}
	d.executed = false
	d.affected = 0
}
