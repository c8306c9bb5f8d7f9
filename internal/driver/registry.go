package driver

import (
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/fragio/internal/ioerr"
)

// IdentifierSeparator splits a driver identifier into TYPE and SUBTYPE.
const IdentifierSeparator = ":"

// Entry describes a registered backend.
type Entry struct {
	// New returns a fresh driver instance; every handle owns its own.
	New func() Driver

	// Init performs process-wide initialization of the backend's client
	// library. It runs when the first handle of this type is set up.
	Init func() error

	// Teardown mirrors Init. It runs when the last handle of this type is
	// cleaned up.
	Teardown func() error
}

// Registry maps driver types to implementations.
//
// One mutex serializes registration, resolution, manifest loading and the
// reference-counted library initialization/teardown.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Entry
	aliases map[string]string
	refs    map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		aliases: make(map[string]string),
		refs:    make(map[string]int),
	}
}

// Register adds a backend under name. It panics on an empty name, a nil
// factory or a duplicate, like database/sql.Register.
func (r *Registry) Register(name string, e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" || strings.Contains(name, IdentifierSeparator) {
		panic("driver: invalid driver name " + name)
	}
	if e.New == nil {
		panic("driver: Register factory is nil for " + name)
	}
	if _, dup := r.entries[name]; dup {
		panic("driver: Register called twice for " + name)
	}
	r.entries[name] = e
}

// Drivers returns the sorted names of registered backends.
func (r *Registry) Drivers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aliases returns a copy of the manifest indirection table.
func (r *Registry) Aliases() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// LoadManifest installs the TYPE → implementation aliases read from m.
// Later loads overwrite earlier aliases of the same TYPE.
func (r *Registry) LoadManifest(m io.Reader) error {
	aliases, err := ParseManifest(m)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for typ, target := range aliases {
		r.aliases[typ] = target
	}
	return nil
}

// SplitIdentifier splits "TYPE:SUBTYPE" on the first separator.
func SplitIdentifier(identifier string) (typ, subtype string, err error) {
	if identifier == "" {
		return "", "", ioerr.New(ioerr.NullParameter, "driver identifier is empty")
	}
	typ, subtype, ok := strings.Cut(identifier, IdentifierSeparator)
	if !ok || typ == "" || subtype == "" {
		return "", "", ioerr.New(ioerr.InvalidServerName, "driver identifier %q is not TYPE%sSUBTYPE", identifier, IdentifierSeparator)
	}
	return typ, subtype, nil
}

// Resolve returns a handle for identifier carrying a fresh driver instance.
// TYPE is looked up among registered names first, then manifest aliases.
func (r *Registry) Resolve(identifier string) (*Handle, error) {
	typ, subtype, err := SplitIdentifier(identifier)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := typ
	entry, ok := r.entries[name]
	if !ok {
		if target, aliased := r.aliases[typ]; aliased {
			name = target
			entry, ok = r.entries[name]
		}
	}
	if !ok {
		return nil, ioerr.New(ioerr.DriverNotFound, "no driver registered for type %q", typ)
	}

	drv := entry.New()
	if drv == nil {
		return nil, ioerr.New(ioerr.DriverNotFound, "driver %q produced no implementation", name)
	}

	return &Handle{
		Type:    typ,
		Subtype: subtype,
		reg:     r,
		entry:   name,
		drv:     drv,
	}, nil
}

// setup runs the driver's Setup once, initializing the backend library on
// the first live handle of its type.
func (r *Registry) setup(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h.initialized {
		return nil
	}
	if h.drv == nil {
		return ioerr.New(ioerr.NullParameter, "handle has been cleaned up")
	}

	entry := r.entries[h.entry]
	if r.refs[h.entry] == 0 && entry.Init != nil {
		if err := entry.Init(); err != nil {
			return ioerr.Wrap(ioerr.DriverNotFound, err, "initialize %s library", h.entry)
		}
	}
	r.refs[h.entry]++

	if err := h.drv.Setup(h.Subtype); err != nil {
		r.release(h.entry)
		return err
	}
	h.initialized = true
	return nil
}

// cleanup runs the driver's Cleanup once and drops the library reference.
func (r *Registry) cleanup(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h.drv == nil {
		return nil
	}
	err := h.drv.Cleanup()
	if h.initialized {
		err = errors.Join(err, r.release(h.entry))
	}
	h.drv = nil
	h.initialized = false
	return err
}

// release decrements the reference count of name, tearing the library down
// at zero. Callers hold r.mu.
func (r *Registry) release(name string) error {
	r.refs[name]--
	if r.refs[name] > 0 {
		return nil
	}
	delete(r.refs, name)
	if teardown := r.entries[name].Teardown; teardown != nil {
		return teardown()
	}
	return nil
}

// live reports the number of set-up handles of name. Used by tests.
func (r *Registry) live(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs[name]
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry drivers register into.
func Default() *Registry { return defaultRegistry }

// Register adds a backend to the process-wide registry.
func Register(name string, e Entry) { defaultRegistry.Register(name, e) }

// Resolve resolves identifier against the process-wide registry.
func Resolve(identifier string) (*Handle, error) { return defaultRegistry.Resolve(identifier) }

// Drivers lists the process-wide registry.
func Drivers() []string { return defaultRegistry.Drivers() }
