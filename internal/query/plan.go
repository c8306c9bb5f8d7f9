package query

import (
	"github.com/roach88/fragio/internal/ioerr"
)

// BindPlaceholder marks a prepared-statement parameter in submission and SQL text.
const BindPlaceholder = '?'

// Kind distinguishes ready text plans from prepared plans.
type Kind int

const (
	// TextPlan is SQL ready for direct execution.
	TextPlan Kind = iota + 1

	// PreparedPlan is templated SQL executed with bind arguments.
	PreparedPlan
)

// String returns "text" or "prepared".
func (k Kind) String() string {
	switch k {
	case TextPlan:
		return "text"
	case PreparedPlan:
		return "prepared"
	default:
		return "unknown"
	}
}

// Plan is a translated, backend-ready statement.
//
// A Plan is owned by its caller until Release. It may be executed once;
// executing it again requires releasing it and translating again.
type Plan struct {
	Kind      Kind
	Operation Operation
	SQL       string
	Args      []BindArg

	// Native holds a driver-owned statement handle, if the driver keeps one.
	Native any

	release  func() error
	executed bool
	released bool
}

// NewTextPlan creates a ready text plan.
func NewTextPlan(op Operation, sql string) *Plan {
	return &Plan{Kind: TextPlan, Operation: op, SQL: sql}
}

// NewPreparedPlan creates a prepared plan with its bind arguments.
func NewPreparedPlan(op Operation, sql string, args []BindArg) *Plan {
	return &Plan{Kind: PreparedPlan, Operation: op, SQL: sql, Args: args}
}

// Prepared reports whether the plan carries bind arguments.
func (p *Plan) Prepared() bool {
	return p.Kind == PreparedPlan
}

// OnRelease registers fn to run once when the plan is released.
func (p *Plan) OnRelease(fn func() error) {
	p.release = fn
}

// Released reports whether Release has been called.
func (p *Plan) Released() bool {
	return p.released
}

// Executed reports whether the plan has been executed.
func (p *Plan) Executed() bool {
	return p.executed
}

// MarkExecuted records an execution. Executing a released or already
// executed plan is an InvalidParameter error.
func (p *Plan) MarkExecuted() error {
	if p.released {
		return ioerr.New(ioerr.InvalidParameter, "query plan has been released")
	}
	if p.executed {
		return ioerr.New(ioerr.InvalidParameter, "query plan has already been executed")
	}
	p.executed = true
	return nil
}

// Release frees driver resources held by the plan. Releasing twice is a no-op.
func (p *Plan) Release() error {
	if p == nil || p.released {
		return nil
	}
	p.released = true
	p.Args = nil
	fn := p.release
	p.release = nil
	p.Native = nil
	if fn != nil {
		return fn()
	}
	return nil
}

// CountPlaceholders counts bind placeholders in text outside single-quoted literals.
func CountPlaceholders(text string) int {
	n := 0
	inLiteral := false
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\'':
			inLiteral = !inLiteral
		case BindPlaceholder:
			if !inLiteral {
				n++
			}
		}
	}
	return n
}

// HasPlaceholder reports whether text contains a bind placeholder anywhere.
func HasPlaceholder(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] == BindPlaceholder {
			return true
		}
	}
	return false
}
