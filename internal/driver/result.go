package driver

import "github.com/roach88/fragio/internal/ioerr"

// Row is one materialized row. Fields are owned copies; a nil field is SQL
// NULL. A Row stays valid after later fetches and after its ResultSet is
// released.
type Row struct {
	Fields  [][]byte
	Lengths []int
}

// NewRow builds a row from field values, deriving lengths.
func NewRow(fields [][]byte) *Row {
	lengths := make([]int, len(fields))
	for i, f := range fields {
		lengths[i] = len(f)
	}
	return &Row{Fields: fields, Lengths: lengths}
}

// IsNull reports whether field i is NULL.
func (r *Row) IsNull(i int) bool {
	return r.Fields[i] == nil
}

// Strings renders the row's fields, with NULL as "NULL".
func (r *Row) Strings() []string {
	out := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		if f == nil {
			out[i] = "NULL"
			continue
		}
		out[i] = string(f)
	}
	return out
}

// ResultSet is the eagerly materialized outcome of one execution, read
// through a single forward cursor.
type ResultSet struct {
	Columns []string

	// NumRows and NumFields are fixed at construction.
	NumRows   int
	NumFields int

	// MaxLengths holds the longest value observed per field.
	MaxLengths []int

	rows     []*Row
	cursor   int
	released bool
}

// NewResultSet materializes rows under columns. Every row must have
// len(columns) fields.
func NewResultSet(columns []string, rows []*Row) (*ResultSet, error) {
	maxLengths := make([]int, len(columns))
	for i, row := range rows {
		if len(row.Fields) != len(columns) {
			return nil, ioerr.New(ioerr.InvalidParameter, "row %d has %d fields, want %d", i, len(row.Fields), len(columns))
		}
		for j, n := range row.Lengths {
			if n > maxLengths[j] {
				maxLengths[j] = n
			}
		}
	}
	return &ResultSet{
		Columns:    columns,
		NumRows:    len(rows),
		NumFields:  len(columns),
		MaxLengths: maxLengths,
		rows:       rows,
	}, nil
}

// Next advances the cursor and returns the row under it, or nil once the
// rows are exhausted. The cursor never restarts.
func (rs *ResultSet) Next() (*Row, error) {
	if rs == nil {
		return nil, ioerr.New(ioerr.NullParameter, "result set is nil")
	}
	if rs.released {
		return nil, ioerr.New(ioerr.InvalidParameter, "result set has been released")
	}
	if rs.cursor >= len(rs.rows) {
		return nil, nil
	}
	row := rs.rows[rs.cursor]
	rs.cursor++
	return row, nil
}

// Release drops the materialized rows. Releasing twice, or a nil set, is a
// no-op.
func (rs *ResultSet) Release() {
	if rs == nil || rs.released {
		return
	}
	rs.released = true
	rs.rows = nil
}

// Released reports whether Release has run.
func (rs *ResultSet) Released() bool {
	return rs != nil && rs.released
}

// All drains the remaining rows.
func (rs *ResultSet) All() ([]*Row, error) {
	var out []*Row
	for {
		row, err := rs.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return out, nil
		}
		out = append(out, row)
	}
}
