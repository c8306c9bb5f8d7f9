package translate

import (
	"strings"

	"github.com/roach88/fragio/internal/ioerr"
)

// DefaultMaxLength is the statement length ceiling used when none is configured.
const DefaultMaxLength = 65536

// builder accumulates statement text under a hard length ceiling.
// An append that would cross the ceiling fails with BufferOverflow and
// leaves the builder unchanged.
type builder struct {
	sb  strings.Builder
	max int
}

func newBuilder(max int) *builder {
	if max <= 0 {
		max = DefaultMaxLength
	}
	return &builder{max: max}
}

// write appends all parts or none of them.
func (b *builder) write(parts ...string) error {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	if b.sb.Len()+n > b.max {
		return ioerr.New(ioerr.BufferOverflow, "statement exceeds %d bytes", b.max)
	}
	for _, p := range parts {
		b.sb.WriteString(p)
	}
	return nil
}

func (b *builder) String() string {
	return b.sb.String()
}
