package submission

import (
	"strings"

	"github.com/roach88/fragio/internal/ioerr"
)

// CountParams returns the number of top-level parameter separators in text.
// A well-formed query with N parameters has exactly N separators.
func CountParams(text string) int {
	n := 0
	inLiteral := false
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case StringDelimiter:
			inLiteral = !inLiteral
		case ParamSeparator:
			if !inLiteral {
				n++
			}
		}
	}
	return n
}

// Validate performs the structural checks on a submission query.
//
// It fails with ParseError when a parameter or multi-value separator is
// immediately preceded by another separator (or opens the text), inside a
// literal or not, and when the number of string delimiters is odd. Validate is a pure function.
func Validate(text string) error {
	if text == "" {
		return ioerr.New(ioerr.NullParameter, "submission query is empty")
	}

	quotes := 0
	for i := 0; i < len(text); i++ {
		if text[i] == StringDelimiter {
			quotes++
		}
	}
	if quotes%2 != 0 {
		return ioerr.New(ioerr.ParseError, "unterminated literal: %d string delimiters", quotes)
	}

	// Literals do not exempt doubled separators.
	var prev byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == ParamSeparator || c == MultiValueSeparator {
			if i == 0 || prev == ParamSeparator || prev == MultiValueSeparator {
				return ioerr.New(ioerr.ParseError, "empty parameter or value at offset %d", i)
			}
		}
		prev = c
	}

	return nil
}

// Load splits text into name/value pairs. Each top-level segment is split on
// its first value separator; duplicate names overwrite earlier ones.
//
// Load does not check quote balance. Call Validate first, or use Parse.
func Load(text string) (ArgumentMap, error) {
	if text == "" {
		return nil, ioerr.New(ioerr.NullParameter, "submission query is empty")
	}

	args := make(ArgumentMap)
	for _, sp := range splitTopLevel(text, ParamSeparator) {
		segment := text[sp.start:sp.end]
		if segment == "" {
			continue
		}
		name, value, ok := strings.Cut(segment, string(ValueSeparator))
		if !ok {
			return nil, ioerr.New(ioerr.ParseError, "parameter %q has no value separator", segment)
		}
		if name == "" {
			return nil, ioerr.New(ioerr.ParseError, "parameter at offset %d has an empty name", sp.start)
		}
		args[name] = value
	}

	if len(args) == 0 {
		return nil, ioerr.New(ioerr.ParseError, "submission query has no parameters")
	}
	return args, nil
}

// Parse validates text and loads it into an ArgumentMap.
func Parse(text string) (ArgumentMap, error) {
	if err := Validate(text); err != nil {
		return nil, err
	}
	return Load(text)
}
