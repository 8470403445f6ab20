// Package result maps native result codes to Go errors.
//
// A Code is the raw signed 32-bit value a native call returns. Negative
// codes are failures; zero and a fixed set of positive codes are statuses
// that wrapping operations surface as booleans or ignore.
//
// Failures map to a Kind. The mapping is total: a code outside the known
// set becomes KindUnknown and the Error keeps the original code, so
//
//	FromCode(c).Code == c         for every c
//	FromCode(k.Code()).Kind == k  for every known k
//
// Errors compare with errors.Is by kind (and by code for KindUnknown), and
// every known kind has a sentinel:
//
//	if errors.Is(err, result.ErrDeviceLost) { ... }
package result
