// Package query holds the backend-neutral vocabulary shared by translators
// and drivers: the closed Operation set, translated Plans, and typed
// BindArgs for prepared statements.
//
// A Plan is either ready SQL text or templated SQL plus bind arguments.
// Plans are created by a translator, executed at most once by a driver and
// released by the caller; Release is idempotent.
package query
