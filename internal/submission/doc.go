// Package submission tokenizes, validates and loads fragio submission queries.
//
// A submission query is a backend-agnostic description of one storage
// operation, written as a sequence of parameters:
//
//	operation=select;field=a|b;select_alias=x|y;from=t;
//
// GRAMMAR:
//
//	query     = 1*( param ";" )
//	param     = name "=" value
//	value     = *( char / literal )
//	literal   = "'" *char "'"
//
// Inside a literal run the parameter separator ";" and the multi-value
// separator "|" are not structural. Literal delimiters are never stripped:
// a token that was written as 'c|d' is returned as 'c|d'.
//
// PIPELINE:
//
//	Validate(text)  → structural checks (doubled separators, quote balance)
//	Load(text)      → ArgumentMap (last write wins on duplicate names)
//	SplitMultiValue → ordered tokens of one value
//
// Parse combines Validate and Load. Load alone does not check quote balance.
//
// MultiValue keeps the original value string and a list of spans into it,
// so splitting never copies or mutates caller data.
package submission
