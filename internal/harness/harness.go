package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/fragio/internal/driver"
	"github.com/roach88/fragio/internal/driver/relational"
	"github.com/roach88/fragio/internal/ioerr"
	"github.com/roach88/fragio/internal/query"
	"github.com/roach88/fragio/internal/translate"
)

// Harness runs the steps of one scenario.
type Harness struct {
	translator *translate.Translator
	handle     *driver.Handle // nil unless a step executes
	logger     *slog.Logger
	seq        int64
}

// Run executes a test scenario and returns the result.
//
// Translation-only steps use the dialect of the scenario's driver. Steps
// marked execute run against a fresh in-memory SQLite database owned by
// this run, so scenarios are isolated from each other.
func Run(scenario *Scenario) (*Result, error) {
	driverName := scenario.Driver
	if driverName == "" {
		driverName = DefaultDriver
	}
	_, subtype, err := driver.SplitIdentifier(driverName)
	if err != nil {
		return nil, err
	}
	dialect, err := translate.LookupDialect(subtype)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		translator: translate.New(dialect),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	if slices.ContainsFunc(scenario.Steps, func(s Step) bool { return s.Execute }) {
		if err := h.connect(ctx, driverName); err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer h.handle.Cleanup()
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	return result, nil
}

func (h *Harness) connect(ctx context.Context, identifier string) error {
	handle, err := driver.Resolve(identifier)
	if err != nil {
		return err
	}
	if err := handle.Setup(); err != nil {
		return err
	}
	if err := handle.Connect(ctx, driver.Params{DSN: relational.DefaultSQLiteDSN}); err != nil {
		handle.Cleanup()
		return err
	}
	h.handle = handle
	return nil
}

// runStep translates, and optionally executes, one step and checks its
// expectations. Only harness failures are returned; expectation mismatches
// are recorded on result.
func (h *Harness) runStep(ctx context.Context, i int, step Step, result *Result) error {
	binds, err := step.Args()
	if err != nil {
		return err
	}

	h.seq++
	event := TraceEvent{Seq: h.seq, Query: step.Query}

	rows, err := h.evaluate(ctx, step, binds, &event)
	if err != nil {
		event.Error = string(ioerr.CodeOf(err))
		if event.Error == "" {
			return err
		}
	}
	event.Rows = rows
	result.Trace = append(result.Trace, event)

	h.logger.Debug("step", "seq", event.Seq, "sql", event.SQL, "error", event.Error)

	switch {
	case step.ExpectError != "":
		if event.Error != step.ExpectError {
			result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %q", i, step.ExpectError, event.Error))
		}
		return nil
	case err != nil:
		result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", i, err))
		return nil
	}

	if step.ExpectSQL != "" && event.SQL != step.ExpectSQL {
		result.AddError(fmt.Sprintf("steps[%d]: expected sql %q, got %q", i, step.ExpectSQL, event.SQL))
	}
	if step.ExpectRows != nil && !rowsEqual(step.ExpectRows, rows) {
		result.AddError(fmt.Sprintf("steps[%d]: expected rows %v, got %v", i, step.ExpectRows, rows))
	}
	return nil
}

// evaluate fills event with the plan and returns rendered rows when the
// step executes.
func (h *Harness) evaluate(ctx context.Context, step Step, binds []query.BindArg, event *TraceEvent) ([][]string, error) {
	if !step.Execute {
		plan, err := h.translator.Setup(step.Query, binds)
		if err != nil {
			return nil, err
		}
		defer plan.Release()
		describe(plan, event)
		return nil, nil
	}

	drv := h.handle.Driver()
	plan, err := drv.SetupQuery(step.Query, binds)
	if err != nil {
		return nil, err
	}
	defer drv.FreeQuery(plan)
	describe(plan, event)

	if err := drv.ExecuteQuery(ctx, plan); err != nil {
		return nil, err
	}
	rs, err := drv.GetResult(ctx)
	if err != nil {
		return nil, err
	}
	defer drv.FreeResult(rs)

	var rows [][]string
	for {
		row, err := drv.FetchRow(rs)
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		rows = append(rows, row.Strings())
	}
	return rows, nil
}

func describe(plan *query.Plan, event *TraceEvent) {
	event.Kind = plan.Kind.String()
	event.SQL = plan.SQL
	event.Args = len(plan.Args)
}

func rowsEqual(want, got [][]string) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if !slices.Equal(want[i], got[i]) {
			return false
		}
	}
	return true
}
