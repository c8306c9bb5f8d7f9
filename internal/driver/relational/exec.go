package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/fragio/internal/driver"
	"github.com/roach88/fragio/internal/ioerr"
	"github.com/roach88/fragio/internal/query"
)

// returnsRows reports whether op produces a row set. Other operations run
// through Exec so they take effect without a fetch.
func returnsRows(op query.Operation) bool {
	return op == query.Select || op == query.Function
}

// ExecuteQuery runs plan on the pinned connection. A prepared plan is
// prepared on first execution and its statement is closed with the plan.
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
	d.discardPending()

	var args []any
	if plan.Prepared() {
		var err error
		if args, err = bindValues(plan.Args); err != nil {
			return err
		}
		if _, err := d.prepare(ctx, plan); err != nil {
			return err
		}
	}

	d.logger.Debug("execute", "op", plan.Operation.String(), "kind", plan.Kind.String(), "sql", plan.SQL)

	if returnsRows(plan.Operation) {
		var rows *sql.Rows
		var err error
		if stmt, ok := plan.Native.(*sql.Stmt); ok {
			rows, err = stmt.QueryContext(ctx, args...)
		} else {
			rows, err = d.conn.QueryContext(ctx, plan.SQL)
		}
		if err != nil {
			return d.executionError(plan, err)
		}
		d.pending = rows
		d.executed = true
		return nil
	}

	var res sql.Result
	var err error
	if stmt, ok := plan.Native.(*sql.Stmt); ok {
		res, err = stmt.ExecContext(ctx, args...)
	} else {
		res, err = d.conn.ExecContext(ctx, plan.SQL)
	}
	if err != nil {
		return d.executionError(plan, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		d.affected = n
	}
	d.executed = true
	return nil
}

func (d *Driver) prepare(ctx context.Context, plan *query.Plan) (*sql.Stmt, error) {
	if stmt, ok := plan.Native.(*sql.Stmt); ok {
		return stmt, nil
	}
	stmt, err := d.conn.PrepareContext(ctx, plan.SQL)
	if err != nil {
		return nil, d.executionError(plan, err)
	}
	plan.Native = stmt
	plan.OnRelease(stmt.Close)
	return stmt, nil
}

func (d *Driver) executionError(plan *query.Plan, err error) error {
	d.logger.Debug("execute failed", "op", plan.Operation.String(), "native", nativeMessage(err))
	return ioerr.Wrap(ioerr.QueryExecutionError, err, "execute %s", plan.Operation)
}

// RowsAffected reports the row count changed by the last non-row statement.
func (d *Driver) RowsAffected() int64 {
	return d.affected
}

// GetResult materializes the last execution. Statements without a row set
// yield an empty result with no fields.
func (d *Driver) GetResult(ctx context.Context) (*driver.ResultSet, error) {
	if !d.executed {
		return nil, ioerr.New(ioerr.InvalidParameter, "no executed query to read")
	}
	rows := d.pending
	d.pending = nil
	d.executed = false
	if rows == nil {
		return driver.NewResultSet(nil, nil)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, ioerr.Wrap(ioerr.QueryExecutionError, err, "read columns")
	}

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	var out []*driver.Row
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, ioerr.Wrap(ioerr.QueryExecutionError, err, "read rows")
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, ioerr.Wrap(ioerr.QueryExecutionError, err, "scan row")
		}
		fields := make([][]byte, len(values))
		for i, v := range values {
			fields[i] = fieldBytes(v)
		}
		out = append(out, driver.NewRow(fields))
	}
	if err := rows.Err(); err != nil {
		return nil, ioerr.Wrap(ioerr.QueryExecutionError, err, "read rows")
	}
	return driver.NewResultSet(columns, out)
}

// fieldBytes renders a scanned value as an owned byte slice; only NULL is nil.
func fieldBytes(v any) []byte {
	buf := []byte{}
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return append(buf, x...)
	case string:
		return append(buf, x...)
	case int64:
		return strconv.AppendInt(buf, x, 10)
	case float64:
		return strconv.AppendFloat(buf, x, 'g', -1, 64)
	case bool:
		if x {
			return append(buf, '1')
		}
		return append(buf, '0')
	case time.Time:
		return x.AppendFormat(buf, time.RFC3339Nano)
	default:
		return fmt.Append(buf, x)
	}
}

// bindValues converts bind arguments to database/sql values by type tag.
func bindValues(binds []query.BindArg) ([]any, error) {
	values := make([]any, len(binds))
	for i, b := range binds {
		v, err := bindValue(b)
		if err != nil {
			return nil, ioerr.Wrap(ioerr.InvalidParameter, err, "bind argument %d", i)
		}
		values[i] = v
	}
	return values, nil
}

func bindValue(b query.BindArg) (any, error) {
	if b.IsNull {
		return nil, nil
	}
	switch b.Type {
	case query.BindNull:
		return nil, nil
	case query.BindInt32:
		v, err := b.Int32()
		return int64(v), err
	case query.BindInt64:
		return b.Int64()
	case query.BindFloat:
		v, err := b.Float32()
		return float64(v), err
	case query.BindDouble:
		return b.Float64()
	case query.BindDecimal, query.BindVarString:
		return string(b.Bytes()), nil
	case query.BindBit, query.BindBlob, query.BindLongBlob:
		return append([]byte{}, b.Bytes()...), nil
	default:
		return nil, ioerr.New(ioerr.InvalidParameter, "unmapped bind type %d", int(b.Type))
	}
}
