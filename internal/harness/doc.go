// Package harness runs YAML scenarios of submission queries.
//
// A scenario names a driver and lists steps. Each step is translated with
// that driver's SQL dialect and checked against its expectations:
//
//	name: insert_and_select
//	description: rows written by insert come back from select
//	driver: relational:sqlite3
//	steps:
//	  - query: operation=create_frag;frag_name=f1;
//	    execute: true
//	  - query: operation=insert;frag_name=f1;field=id_dim|measure;value=?|?;
//	    binds: [{type: LONG, value: "1"}, {type: VAR_STRING, value: a}]
//	    expect_sql: INSERT INTO f1 (id_dim,measure) VALUES (?,?)
//	    execute: true
//	  - query: operation=select;field=measure;from=f1;
//	    execute: true
//	    expect_rows: [[a]]
//
// Steps marked execute also run against a fresh in-memory SQLite database.
//
// # Golden Traces
//
// RunWithGolden renders the trace (plan kind, SQL, bind count, error code
// and rows per step) as JSON and compares it with
// testdata/golden/{name}.golden using goldie. Regenerate with -update.
package harness
