package objstore

import (
	"strings"

	"github.com/roach88/fragio/internal/driver"
	"github.com/roach88/fragio/internal/ioerr"
	"github.com/roach88/fragio/internal/query"
)

// Wire methods. Requests and responses are single JSON lines.
const (
	MethodPing    = "ping"
	MethodUse     = "use"
	MethodExecute = "execute"
	MethodClose   = "close"
)

// Request is one client call.
type Request struct {
	ID       string     `json:"id"`
	Method   string     `json:"method"`
	Database string     `json:"database,omitempty"`
	Query    string     `json:"query,omitempty"`
	Binds    []WireBind `json:"binds,omitempty"`
}

// WireBind carries a bind argument by type name, so the numbering of
// query.BindType never crosses the wire.
type WireBind struct {
	Type  string `json:"type"`
	Value []byte `json:"value,omitempty"`
	Null  bool   `json:"null,omitempty"`
}

// Response answers one Request. Rows hold raw field bytes; a null field is
// SQL NULL.
type Response struct {
	ID       string     `json:"id"`
	OK       bool       `json:"ok"`
	Code     ioerr.Code `json:"code,omitempty"`
	Error    string     `json:"error,omitempty"`
	Columns  []string   `json:"columns,omitempty"`
	Rows     [][][]byte `json:"rows,omitempty"`
	Affected int64      `json:"affected,omitempty"`
}

// EncodeBinds converts bind arguments to their wire form.
func EncodeBinds(binds []query.BindArg) ([]WireBind, error) {
	if binds == nil {
		return nil, nil
	}
	out := make([]WireBind, len(binds))
	for i, b := range binds {
		if !b.Type.Valid() {
			return nil, ioerr.New(ioerr.InvalidParameter, "bind argument %d has unmapped type %d", i, int(b.Type))
		}
		out[i] = WireBind{Type: b.Type.String(), Null: b.IsNull}
		if !b.IsNull {
			out[i].Value = b.Bytes()
		}
	}
	return out, nil
}

// DecodeBinds converts wire binds back to bind arguments.
func DecodeBinds(binds []WireBind) ([]query.BindArg, error) {
	if binds == nil {
		return nil, nil
	}
	out := make([]query.BindArg, len(binds))
	for i, b := range binds {
		typ, err := query.ParseBindType(b.Type)
		if err != nil {
			return nil, err
		}
		out[i] = query.BindArg{Type: typ, Buffer: b.Value, Length: len(b.Value), IsNull: b.Null}
	}
	return out, nil
}

// ErrorResponse reports err to the client, keeping its taxonomy code.
func ErrorResponse(id string, err error) Response {
	code := ioerr.CodeOf(err)
	if code == "" {
		code = ioerr.QueryExecutionError
	}
	msg := strings.TrimPrefix(err.Error(), string(code)+": ")
	return Response{ID: id, OK: false, Code: code, Error: msg}
}

// ResultResponse drains rs into a response. rs is left exhausted.
func ResultResponse(id string, rs *driver.ResultSet) (Response, error) {
	rows, err := rs.All()
	if err != nil {
		return Response{}, err
	}
	resp := Response{ID: id, OK: true, Columns: rs.Columns}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, row.Fields)
	}
	return resp, nil
}

// Err rebuilds the typed error carried by a failed response.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	code := r.Code
	if !ioerr.Valid(code) {
		code = ioerr.QueryExecutionError
	}
	return &ioerr.Error{Code: code, Message: r.Error}
}

// ResultSet materializes the response rows.
func (r Response) ResultSet() (*driver.ResultSet, error) {
	rows := make([]*driver.Row, len(r.Rows))
	for i, fields := range r.Rows {
		rows[i] = driver.NewRow(fields)
	}
	return driver.NewResultSet(r.Columns, rows)
}
