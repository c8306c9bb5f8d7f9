package translate

import (
	"strings"

	"github.com/roach88/fragio/internal/ioerr"
)

// MacroSigil introduces a keyword macro in submission tokens.
const MacroSigil = '@'

func isMacroChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// expandMacros replaces every @name outside single-quoted literals with its
// value from macros. Replacement text is not rescanned.
func expandMacros(text string, macros map[string]string) (string, error) {
	if strings.IndexByte(text, MacroSigil) < 0 {
		return text, nil
	}

	var sb strings.Builder
	inLiteral := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\'' {
			inLiteral = !inLiteral
		}
		if c != MacroSigil || inLiteral {
			sb.WriteByte(c)
			continue
		}

		j := i + 1
		for j < len(text) && isMacroChar(text[j]) {
			j++
		}
		name := text[i+1 : j]
		value, ok := macros[name]
		if !ok {
			return "", ioerr.New(ioerr.UnknownKeyword, "unknown keyword %q", string(MacroSigil)+name)
		}
		sb.WriteString(value)
		i = j - 1
	}
	return sb.String(), nil
}
