package submission

import (
	"sort"
	"strings"

	"github.com/roach88/fragio/internal/ioerr"
)

// ArgumentMap maps argument names to raw values.
type ArgumentMap map[string]string

// Lookup returns the raw value of name.
func (a ArgumentMap) Lookup(name string) (string, bool) {
	v, ok := a[name]
	return v, ok
}

// Require returns the raw value of name or a MissingArgument error.
func (a ArgumentMap) Require(name string) (string, error) {
	v, ok := a[name]
	if !ok {
		return "", ioerr.New(ioerr.MissingArgument, "argument %q is required", name)
	}
	return v, nil
}

// Multi returns the split value of name, if present.
func (a ArgumentMap) Multi(name string) (MultiValue, bool) {
	v, ok := a[name]
	if !ok {
		return MultiValue{}, false
	}
	return SplitMultiValue(v), true
}

// RequireMulti returns the split value of name or a MissingArgument error.
func (a ArgumentMap) RequireMulti(name string) (MultiValue, error) {
	v, err := a.Require(name)
	if err != nil {
		return MultiValue{}, err
	}
	return SplitMultiValue(v), nil
}

// Names returns the argument names in sorted order.
func (a ArgumentMap) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encode renders the map as canonical submission text: names sorted, every
// parameter terminated, names and values copied byte for byte.
//
// Values are written as-is; a value containing structural characters must
// already carry its literal delimiters.
func (a ArgumentMap) Encode() string {
	var sb strings.Builder
	for _, name := range a.Names() {
		sb.WriteString(name)
		sb.WriteByte(ValueSeparator)
		sb.WriteString(a[name])
		sb.WriteByte(ParamSeparator)
	}
	return sb.String()
}
