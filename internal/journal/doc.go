// Package journal provides the SQLite-backed statement journal of the I/O
// server daemon.
//
// The journal is an append-only log with one record per executed
// submission query:
//   - session: the daemon client session (UUID) that issued it
//   - seq: the session's logical clock value at execution
//   - query and bind types as received, status and error code as answered
//
// # Ordering
//
// Reads are ordered by seq, never by wall time:
//
//	ORDER BY seq ASC, id ASC COLLATE BINARY
//
// so a session's statements come back in the order the daemon ran them.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - single open connection: one writer
package journal
