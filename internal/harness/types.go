package harness

// TraceEvent records one step: what it translated to and how it ended.
type TraceEvent struct {
	Seq   int64  `json:"seq"`
	Query string `json:"query"`

	Kind string `json:"kind,omitempty"` // "text" or "prepared"
	SQL  string `json:"sql,omitempty"`
	Args int    `json:"args,omitempty"`

	// Error is the taxonomy code only; backend messages vary by version.
	Error string `json:"error,omitempty"`

	Rows [][]string `json:"rows,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step matched its expectations.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
