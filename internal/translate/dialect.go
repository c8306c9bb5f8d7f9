package translate

import (
	"fmt"
	"sort"

	"github.com/roach88/fragio/internal/ioerr"
)

// VariadicArity marks a built-in whose arguments are appended as a
// function-args block instead of being substituted positionally.
const VariadicArity = -1

// Builtin is the fixed statement shape of a reserved function name.
type Builtin struct {
	// Template is the statement text. For a positional built-in it holds
	// exactly Arity %s verbs; for a variadic one it is the prefix of the
	// argument list. Keyword macros in it are expanded.
	Template string

	// Arity is the exact argument count, or VariadicArity.
	Arity int
}

// Dialect is the private translation table of one relational backend:
// statement templates, keyword macros and reserved built-in functions.
//
// Templates carrying an identifier take exactly one %s verb. An empty
// template means the operation is not supported by the dialect.
type Dialect struct {
	Name string

	CreateFrag       string
	CreateFragSelect string // ends with the SELECT keyword and a space
	DropFrag         string
	CreateDatabase   string
	DropDatabase     string
	InsertHead       string
	SelectHead       string
	Call             string
	UseDatabase      string

	// Limit renders a LIMIT clause with its leading space. offset is "" when
	// only a row count was given.
	Limit func(offset, count string) string

	// Placeholder, when set, rewrites the n-th (1-based) bind placeholder.
	Placeholder func(n int) string

	Macros   map[string]string
	Builtins map[string]Builtin
}

func commaLimit(offset, count string) string {
	if offset == "" {
		return " LIMIT " + count
	}
	return " LIMIT " + offset + ", " + count
}

func offsetLimit(offset, count string) string {
	if offset == "" {
		return " LIMIT " + count
	}
	return " LIMIT " + count + " OFFSET " + offset
}

// MySQL is the reference dialect.
var MySQL = &Dialect{
	Name:             "mysql",
	CreateFrag:       "CREATE TABLE %s (id_dim integer, measure longblob) ENGINE=MyISAM DEFAULT CHARSET=latin1",
	CreateFragSelect: "CREATE TABLE %s ENGINE=MyISAM DEFAULT CHARSET=latin1 AS SELECT ",
	DropFrag:         "DROP TABLE IF EXISTS %s",
	CreateDatabase:   "CREATE DATABASE IF NOT EXISTS %s",
	DropDatabase:     "DROP DATABASE IF EXISTS %s",
	InsertHead:       "INSERT INTO %s ",
	SelectHead:       "SELECT ",
	Call:             "CALL %s(",
	UseDatabase:      "USE %s",
	Limit:            commaLimit,
	Macros: map[string]string{
		"tot_table_size":    "sum(data_length + index_length)",
		"info_system":       "information_schema",
		"info_system_table": "TABLES",
		"function_fields":   "ROUTINE_NAME",
		"function_table":    "ROUTINES",
		"file":              "INTO OUTFILE",
	},
	Builtins: map[string]Builtin{
		"size": {
			Template: "SELECT @tot_table_size FROM @info_system.@info_system_table WHERE table_schema IN (",
			Arity:    VariadicArity,
		},
		"export": {
			Template: "SELECT * FROM %s @file %s",
			Arity:    2,
		},
	},
}

// SQLite maps fragments onto SQLite tables and databases onto attached schemas.
var SQLite = &Dialect{
	Name:             "sqlite3",
	CreateFrag:       "CREATE TABLE %s (id_dim INTEGER, measure BLOB)",
	CreateFragSelect: "CREATE TABLE %s AS SELECT ",
	DropFrag:         "DROP TABLE IF EXISTS %s",
	CreateDatabase:   "ATTACH DATABASE ':memory:' AS %s",
	DropDatabase:     "DETACH DATABASE %s",
	InsertHead:       "INSERT INTO %s ",
	SelectHead:       "SELECT ",
	Call:             "SELECT %s(",
	Limit:            commaLimit,
	Macros: map[string]string{
		"tot_table_size":    "page_count * page_size",
		"info_system":       "main",
		"info_system_table": "sqlite_master",
		"function_fields":   "name",
		"function_table":    "pragma_function_list",
	},
	Builtins: map[string]Builtin{
		"size": {
			Template: "SELECT @tot_table_size FROM pragma_page_count(), pragma_page_size()",
			Arity:    0,
		},
	},
}

// Postgres maps databases onto schemas.
var Postgres = &Dialect{
	Name:             "postgres",
	CreateFrag:       "CREATE TABLE %s (id_dim integer, measure bytea)",
	CreateFragSelect: "CREATE TABLE %s AS SELECT ",
	DropFrag:         "DROP TABLE IF EXISTS %s",
	CreateDatabase:   "CREATE SCHEMA IF NOT EXISTS %s",
	DropDatabase:     "DROP SCHEMA IF EXISTS %s CASCADE",
	InsertHead:       "INSERT INTO %s ",
	SelectHead:       "SELECT ",
	Call:             "CALL %s(",
	UseDatabase:      "SET search_path TO %s",
	Limit:            offsetLimit,
	Placeholder:      func(n int) string { return fmt.Sprintf("$%d", n) },
	Macros: map[string]string{
		"tot_table_size":    "sum(pg_total_relation_size(quote_ident(table_schema) || '.' || quote_ident(table_name)))",
		"info_system":       "information_schema",
		"info_system_table": "tables",
		"function_fields":   "routine_name",
		"function_table":    "information_schema.routines",
		"file":              "TO",
	},
	Builtins: map[string]Builtin{
		"size": {
			Template: "SELECT @tot_table_size FROM @info_system.@info_system_table WHERE table_schema IN (",
			Arity:    VariadicArity,
		},
		"export": {
			Template: "COPY %s @file %s",
			Arity:    2,
		},
	},
}

var dialects = map[string]*Dialect{
	MySQL.Name:    MySQL,
	SQLite.Name:   SQLite,
	Postgres.Name: Postgres,
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (*Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return nil, ioerr.New(ioerr.DriverNotFound, "no SQL dialect named %q", name)
	}
	return d, nil
}

// Dialects returns the registered dialect names in sorted order.
func Dialects() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
