package submission

// MultiValue is the ordered token list of a single argument value.
//
// It retains the value string and records each token as a span into it;
// tokens are substrings of that one backing string. Literal delimiters are
// kept verbatim inside tokens.
type MultiValue struct {
	src   string
	spans []span
}

// SplitMultiValue splits value on top-level multi-value separators.
// An empty value yields a single empty token.
func SplitMultiValue(value string) MultiValue {
	mv := MultiValue{src: value}
	inLiteral := false
	start := 0
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case StringDelimiter:
			inLiteral = !inLiteral
		case MultiValueSeparator:
			if !inLiteral {
				mv.spans = append(mv.spans, span{start, i})
				start = i + 1
			}
		}
	}
	mv.spans = append(mv.spans, span{start, len(value)})
	return mv
}

// Len returns the number of tokens.
func (m MultiValue) Len() int {
	return len(m.spans)
}

// At returns token i.
func (m MultiValue) At(i int) string {
	sp := m.spans[i]
	return m.src[sp.start:sp.end]
}

// Span returns the byte range of token i within Source.
func (m MultiValue) Span(i int) (start, end int) {
	sp := m.spans[i]
	return sp.start, sp.end
}

// Source returns the backing value string.
func (m MultiValue) Source() string {
	return m.src
}

// Strings returns the tokens as a fresh slice.
func (m MultiValue) Strings() []string {
	out := make([]string, len(m.spans))
	for i := range m.spans {
		out[i] = m.At(i)
	}
	return out
}
