package journal

import (
	"context"
	"fmt"
)

// Append inserts rec. Uses ON CONFLICT(id) DO NOTHING, so writing the same
// record twice is a no-op; a second record claiming an existing
// (session, seq) pair is an error.
func (j *Journal) Append(ctx context.Context, rec Record) error {
	if rec.Status != StatusOK && rec.Status != StatusError {
		return fmt.Errorf("append statement: invalid status %q", rec.Status)
	}

	bindTypes, err := marshalBindTypes(rec.BindTypes)
	if err != nil {
		return fmt.Errorf("append statement: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO statements
		(id, session_id, seq, backend, operation, query, bind_types, status, error_code, error, row_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Session,
		rec.Seq,
		rec.Backend,
		rec.Operation,
		rec.Query,
		bindTypes,
		rec.Status,
		rec.ErrorCode,
		rec.Error,
		rec.RowCount,
	)
	if err != nil {
		return fmt.Errorf("append statement: %w", err)
	}

	return nil
}
