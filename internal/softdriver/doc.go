// Package softdriver is an in-process driver that implements the
// dispatch tables in Go against a gpubind.Space.
//
// It decodes every structure it is handed with the same layout rules the
// binding uses to encode them, validates structure tags, counts and
// handles, and keeps a table of live objects. Misuse that a real driver
// would treat as undefined behaviour (double destroys, destroying a
// parent before its children, mismatched allocation callbacks) is
// recorded as a violation instead.
//
// Faults can be injected per function: fail the next call with a result
// code, fail element k of a batched creation, or grow an enumerated
// collection between the count and fill calls.
package softdriver
