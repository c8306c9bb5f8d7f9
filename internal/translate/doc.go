// Package translate compiles validated submission queries into SQL.
//
// ARCHITECTURE:
//
//	[submission text] → submission.Parse → ArgumentMap → Translator → query.Plan
//
// A Translator is bound to one Dialect. Dialects are private to their
// backend: each carries its own statement templates, keyword macro table
// (tokens such as @tot_table_size) and reserved built-in functions
// (size, export). Nothing in this package assumes two dialects share a
// macro vocabulary.
//
// Statements are composed through a bounded builder. Crossing the length
// ceiling is a BufferOverflow error; output is never truncated.
//
// Shared clause blocks (fields with aliases, sources with aliases, simple
// and ternary WHERE, GROUP BY, ORDER BY, LIMIT, insert values, multi-row
// insert values, function arguments) are composed in a fixed order per
// operation, documented on Translator.
package translate
