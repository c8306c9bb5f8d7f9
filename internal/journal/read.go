package journal

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadSession returns a session's statements in execution order:
// ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the session has no statements.
func (j *Journal) ReadSession(ctx context.Context, session string) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, seq, backend, operation, query, bind_types, status, error_code, error, row_count
		FROM statements
		WHERE session_id = ?
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query statements: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statements: %w", err)
	}

	return records, nil
}

// Sessions lists sessions in order of their first journaled statement.
func (j *Journal) Sessions(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session_id
		FROM statements
		GROUP BY session_id
		ORDER BY min(rowid) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// LastSeq returns the highest seq journaled for session, or 0.
func (j *Journal) LastSeq(ctx context.Context, session string) (int64, error) {
	var seq sql.NullInt64
	err := j.db.QueryRowContext(ctx, `
		SELECT max(seq) FROM statements WHERE session_id = ?
	`, session).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var bindTypes string
	err := rows.Scan(
		&rec.ID,
		&rec.Session,
		&rec.Seq,
		&rec.Backend,
		&rec.Operation,
		&rec.Query,
		&bindTypes,
		&rec.Status,
		&rec.ErrorCode,
		&rec.Error,
		&rec.RowCount,
	)
	if err != nil {
		return Record{}, fmt.Errorf("scan statement: %w", err)
	}

	rec.BindTypes, err = unmarshalBindTypes(bindTypes)
	if err != nil {
		return Record{}, err
	}

	return rec, nil
}
