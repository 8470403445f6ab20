// Package abi declares the native structures the binding layer exchanges
// with the driver: their field order and types (layout.Struct), the
// structure-type tags that identify them, and the few constants the
// wrapped operations need.
//
// Schemas are shared by both sides of a call. The marshal package writes
// them, drivers read them, and tests pin their sizes against the
// published 64-bit header values.
package abi
