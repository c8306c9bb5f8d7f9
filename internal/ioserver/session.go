package ioserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/roach88/fragio/internal/driver"
	"github.com/roach88/fragio/internal/driver/objstore"
	"github.com/roach88/fragio/internal/ioerr"
	"github.com/roach88/fragio/internal/journal"
	"github.com/roach88/fragio/internal/submission"
)

// maxRequestBytes bounds one request line.
const maxRequestBytes = 64 * 1024 * 1024

// session is one client connection and the backend handle it owns.
type session struct {
	id     string
	clock  *Clock
	handle *driver.Handle
	logger *slog.Logger
	server *Server
}

// rowsAffecter is implemented by drivers that report affected rows.
type rowsAffecter interface {
	RowsAffected() int64
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sess := &session{
		id:     uuid.NewString(),
		clock:  NewClock(),
		server: s,
	}
	sess.logger = s.logger.With("session", sess.id)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxRequestBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req objstore.Request
		if err := json.Unmarshal(line, &req); err != nil {
			err = ioerr.Wrap(ioerr.ParseError, err, "invalid request")
			sess.write(conn, objstore.ErrorResponse("", err))
			continue
		}

		resp := sess.dispatch(ctx, req)
		sess.write(conn, resp)

		if req.Method == objstore.MethodClose {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		sess.logger.Debug("connection read failed", "error", err)
	}
	sess.close()
}

// backend connects the session's handle on first use.
func (ss *session) backend(ctx context.Context) (*driver.Handle, error) {
	if ss.handle != nil {
		return ss.handle, nil
	}
	h, err := ss.server.openHandle(ctx)
	if err != nil {
		return nil, err
	}
	ss.handle = h
	ss.logger.Debug("session opened")
	return h, nil
}

func (ss *session) close() {
	if ss.handle == nil {
		return
	}
	if err := ss.handle.Cleanup(); err != nil {
		ss.logger.Warn("session cleanup failed", "error", err)
	}
	ss.handle = nil
	ss.logger.Debug("session closed", "statements", ss.clock.Current())
}

func (ss *session) dispatch(ctx context.Context, req objstore.Request) objstore.Response {
	switch req.Method {
	case objstore.MethodPing:
		if _, err := ss.backend(ctx); err != nil {
			return objstore.ErrorResponse(req.ID, err)
		}
		return objstore.Response{ID: req.ID, OK: true}

	case objstore.MethodUse:
		h, err := ss.backend(ctx)
		if err != nil {
			return objstore.ErrorResponse(req.ID, err)
		}
		if err := h.Driver().UseDatabase(ctx, req.Database); err != nil {
			return objstore.ErrorResponse(req.ID, err)
		}
		return objstore.Response{ID: req.ID, OK: true}

	case objstore.MethodExecute:
		return ss.execute(ctx, req)

	case objstore.MethodClose:
		return objstore.Response{ID: req.ID, OK: true}

	default:
		err := ioerr.New(ioerr.InvalidParameter, "unknown method: %s", req.Method)
		return objstore.ErrorResponse(req.ID, err)
	}
}

func (ss *session) execute(ctx context.Context, req objstore.Request) objstore.Response {
	rec := journal.Record{
		ID:      uuid.NewString(),
		Session: ss.id,
		Backend: ss.server.cfg.Backend,
		Query:   req.Query,
	}
	for _, b := range req.Binds {
		rec.BindTypes = append(rec.BindTypes, b.Type)
	}
	if args, err := submission.Parse(req.Query); err == nil {
		rec.Operation, _ = args.Lookup(submission.ArgOperation)
	}

	resp, err := ss.run(ctx, req)
	rec.Seq = ss.clock.Next()
	if err != nil {
		rec.Status = journal.StatusError
		rec.ErrorCode = string(ioerr.CodeOf(err))
		rec.Error = err.Error()
		resp = objstore.ErrorResponse(req.ID, err)
		ss.logger.Debug("statement failed", "seq", rec.Seq, "op", rec.Operation, "error", err)
	} else {
		rec.Status = journal.StatusOK
		rec.RowCount = len(resp.Rows)
		ss.logger.Debug("statement executed", "seq", rec.Seq, "op", rec.Operation, "rows", rec.RowCount)
	}

	if j := ss.server.cfg.Journal; j != nil {
		if err := j.Append(ctx, rec); err != nil {
			ss.logger.Warn("journal append failed", "seq", rec.Seq, "error", err)
		}
	}
	return resp
}

// run executes one statement and drains its result into a response.
func (ss *session) run(ctx context.Context, req objstore.Request) (objstore.Response, error) {
	h, err := ss.backend(ctx)
	if err != nil {
		return objstore.Response{}, err
	}
	binds, err := objstore.DecodeBinds(req.Binds)
	if err != nil {
		return objstore.Response{}, err
	}

	rs, err := h.Exec(ctx, req.Query, binds)
	if err != nil {
		return objstore.Response{}, err
	}
	defer h.Driver().FreeResult(rs)

	resp, err := objstore.ResultResponse(req.ID, rs)
	if err != nil {
		return objstore.Response{}, err
	}
	if ra, ok := h.Driver().(rowsAffecter); ok && rs.NumFields == 0 {
		resp.Affected = ra.RowsAffected()
	}
	return resp, nil
}

func (ss *session) write(conn net.Conn, resp objstore.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		ss.logger.Warn("marshal response failed", "error", err)
		return
	}
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		ss.logger.Debug("write response failed", "error", err)
	}
}
