package submission

// Structural characters of the submission grammar.
const (
	ParamSeparator      = ';'
	ValueSeparator      = '='
	MultiValueSeparator = '|'
	StringDelimiter     = '\''
)

// Argument names recognized by the translators.
const (
	ArgOperation   = "operation"
	ArgFragName    = "frag_name"
	ArgField       = "field"
	ArgSelectAlias = "select_alias"
	ArgFrom        = "from"
	ArgFromAlias   = "from_alias"
	ArgWhere       = "where"
	ArgWhereLeft   = "where_left"
	ArgWhereCond   = "where_cond"
	ArgWhereRight  = "where_right"
	ArgGroup       = "group"
	ArgOrder       = "order"
	ArgOrderDir    = "order_dir"
	ArgLimit       = "limit"
	ArgValue       = "value"
	ArgFuncName    = "func_name"
	ArgArg         = "arg"
	ArgDBName      = "db_name"
)

// span is a half-open byte range [start, end) into a backing string.
type span struct {
	start, end int
}

// splitTopLevel partitions s on sep, ignoring separators inside literal runs.
// A trailing separator does not produce an empty final span.
func splitTopLevel(s string, sep byte) []span {
	var spans []span
	inLiteral := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case StringDelimiter:
			inLiteral = !inLiteral
		case sep:
			if !inLiteral {
				spans = append(spans, span{start, i})
				start = i + 1
			}
		}
	}
	if start < len(s) {
		spans = append(spans, span{start, len(s)})
	}
	return spans
}
