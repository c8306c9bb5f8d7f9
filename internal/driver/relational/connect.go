package relational

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/fragio/internal/driver"
	"github.com/roach88/fragio/internal/ioerr"
)

// DefaultSQLiteDSN is used for sqlite3 when no DSN is given.
const DefaultSQLiteDSN = ":memory:"

func sqlDriverName(subtype string) (string, error) {
	switch subtype {
	case SQLite:
		return "sqlite3", nil
	case MySQL:
		return "mysql", nil
	case Postgres:
		return "pgx", nil
	default:
		return "", ioerr.New(ioerr.DriverNotFound, "relational driver has no subtype %q", subtype)
	}
}

// openDB builds a pool for subtype from params.
func openDB(subtype string, params driver.Params) (*sql.DB, error) {
	switch subtype {
	case SQLite:
		dsn := params.DSN
		if dsn == "" {
			dsn = DefaultSQLiteDSN
		}
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, ioerr.Wrap(ioerr.ConnectionError, err, "open sqlite3")
		}
		return db, nil

	case MySQL:
		cfg, err := mysqlConfig(params)
		if err != nil {
			return nil, ioerr.Wrap(ioerr.ConnectionError, err, "mysql dsn")
		}
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, ioerr.Wrap(ioerr.ConnectionError, err, "mysql connector")
		}
		return sql.OpenDB(connector), nil

	case Postgres:
		connString := params.DSN
		if connString == "" {
			connString = postgresConnString(params)
		}
		cfg, err := pgx.ParseConfig(connString)
		if err != nil {
			return nil, ioerr.Wrap(ioerr.ConnectionError, err, "postgres connection string")
		}
		return stdlib.OpenDB(*cfg), nil
	}
	_, err := sqlDriverName(subtype)
	return nil, err
}

// mysqlConfig leaves DBName empty; the database is selected with USE.
func mysqlConfig(params driver.Params) (*mysql.Config, error) {
	if params.DSN != "" {
		return mysql.ParseDSN(params.DSN)
	}
	cfg := mysql.NewConfig()
	cfg.User = params.User
	cfg.Passwd = params.Password
	if params.Socket != "" {
		cfg.Net = "unix"
		cfg.Addr = params.Socket
	} else {
		cfg.Net = "tcp"
		cfg.Addr = params.Address()
	}
	return cfg, nil
}

// postgresConnString renders keyword/value settings. The database name is
// not part of it: fragio databases are postgres schemas.
func postgresConnString(params driver.Params) string {
	var parts []string
	add := func(key, value string) {
		if value != "" {
			parts = append(parts, key+"="+pgQuote(value))
		}
	}
	host := params.Host
	if params.Socket != "" {
		host = params.Socket
	}
	add("host", host)
	if params.Port != 0 {
		add("port", strconv.Itoa(params.Port))
	}
	add("user", params.User)
	add("password", params.Password)
	return strings.Join(parts, " ")
}

var pgEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func pgQuote(v string) string {
	return "'" + pgEscaper.Replace(v) + "'"
}

// nativeMessage extracts the backend's own error code and message.
func nativeMessage(err error) string {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return fmt.Sprintf("sqlite3 %d/%d: %s", int(sqliteErr.Code), int(sqliteErr.ExtendedCode), sqliteErr.Error())
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return fmt.Sprintf("mysql %d: %s", mysqlErr.Number, mysqlErr.Message)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Sprintf("postgres %s: %s", pgErr.Code, pgErr.Message)
	}
	return err.Error()
}

// mysqlLogger routes the mysql client's internal logging into slog.
type mysqlLogger struct{}

func (mysqlLogger) Print(v ...any) {
	slog.Default().Warn(strings.TrimSpace(fmt.Sprint(v...)), "driver", TypeName+driver.IdentifierSeparator+MySQL)
}

// initLibraries is the process-wide setup run for the first relational handle.
func initLibraries() error {
	return mysql.SetLogger(mysqlLogger{})
}

// teardownLibraries restores the mysql client's default logger.
func teardownLibraries() error {
	return mysql.SetLogger(log.New(os.Stderr, "[mysql] ", log.Ldate|log.Ltime|log.Lshortfile))
}
