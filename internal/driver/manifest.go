package driver

import (
	"bufio"
	"io"
	"path/filepath"
	"strings"

	"github.com/roach88/fragio/internal/ioerr"
)

// ParseManifest reads repeated two-line blocks:
//
//	[TYPE]
//	/path/to/libimpl.so
//
// and returns TYPE → implementation name, where the implementation name is
// the path's base name without extension and without a leading "lib".
// Blank lines and lines starting with '#' are ignored.
func ParseManifest(m io.Reader) (map[string]string, error) {
	aliases := make(map[string]string)
	scanner := bufio.NewScanner(m)

	pending := ""
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if strings.HasPrefix(text, "[") {
			if pending != "" {
				return nil, ioerr.New(ioerr.ParseError, "manifest line %d: [%s] has no library path", line, pending)
			}
			if !strings.HasSuffix(text, "]") || len(text) < 3 {
				return nil, ioerr.New(ioerr.ParseError, "manifest line %d: malformed type header %q", line, text)
			}
			pending = strings.TrimSpace(text[1 : len(text)-1])
			if pending == "" || strings.Contains(pending, IdentifierSeparator) {
				return nil, ioerr.New(ioerr.ParseError, "manifest line %d: invalid type %q", line, pending)
			}
			continue
		}

		if pending == "" {
			return nil, ioerr.New(ioerr.ParseError, "manifest line %d: library path outside a type block", line)
		}
		impl := implementationName(text)
		if impl == "" {
			return nil, ioerr.New(ioerr.ParseError, "manifest line %d: cannot derive driver from %q", line, text)
		}
		aliases[pending] = impl
		pending = ""
	}
	if err := scanner.Err(); err != nil {
		return nil, ioerr.Wrap(ioerr.ParseError, err, "read manifest")
	}
	if pending != "" {
		return nil, ioerr.New(ioerr.ParseError, "manifest: [%s] has no library path", pending)
	}
	return aliases, nil
}

func implementationName(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimPrefix(base, "lib")
}
