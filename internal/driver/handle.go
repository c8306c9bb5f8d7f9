package driver

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/fragio/internal/ioerr"
	"github.com/roach88/fragio/internal/query"
)

// Handle is a resolved backend: its identifier halves and the driver
// instance it owns. A handle is set up once and cleaned up exactly once.
type Handle struct {
	Type    string
	Subtype string

	// ThreadSafe serializes Exec across goroutines. Without it the caller
	// must not share the handle.
	ThreadSafe bool

	mu          sync.Mutex
	reg         *Registry
	entry       string
	drv         Driver
	initialized bool
}

// Identifier returns TYPE:SUBTYPE.
func (h *Handle) Identifier() string {
	return h.Type + IdentifierSeparator + h.Subtype
}

// Driver returns the owned driver, or nil after Cleanup.
func (h *Handle) Driver() Driver {
	return h.drv
}

// Setup initializes the handle. Calling it again is a no-op.
func (h *Handle) Setup() error {
	return h.reg.setup(h)
}

// Cleanup closes the driver and tears the handle down. Calling it again is
// a no-op.
func (h *Handle) Cleanup() error {
	var err error
	if h.drv != nil {
		err = h.drv.Close()
	}
	return errors.Join(err, h.reg.cleanup(h))
}

func (h *Handle) ready() (Driver, error) {
	if h.drv == nil {
		return nil, ioerr.New(ioerr.NullParameter, "handle %s has been cleaned up", h.Identifier())
	}
	if !h.initialized {
		return nil, ioerr.New(ioerr.NullParameter, "handle %s is not set up", h.Identifier())
	}
	return h.drv, nil
}

// Connect connects the owned driver and, when params names a database,
// selects it.
func (h *Handle) Connect(ctx context.Context, params Params) error {
	drv, err := h.ready()
	if err != nil {
		return err
	}
	if err := drv.Connect(ctx, params); err != nil {
		return err
	}
	if params.Database != "" {
		return drv.UseDatabase(ctx, params.Database)
	}
	return nil
}

// Exec runs one submission query through the whole pipeline and returns its
// materialized result. The plan is released before Exec returns; the caller
// releases the result set.
func (h *Handle) Exec(ctx context.Context, text string, binds []query.BindArg) (*ResultSet, error) {
	if h.ThreadSafe {
		h.mu.Lock()
		defer h.mu.Unlock()
	}
	drv, err := h.ready()
	if err != nil {
		return nil, err
	}

	plan, err := drv.SetupQuery(text, binds)
	if err != nil {
		return nil, err
	}
	defer drv.FreeQuery(plan)

	if err := drv.ExecuteQuery(ctx, plan); err != nil {
		return nil, err
	}
	return drv.GetResult(ctx)
}
