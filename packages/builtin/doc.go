// Package builtin provides the functions behind dynamic environment values.
//
// Function-kind environment entries name one of:
//   - RandomInt: random non-negative 32-bit integer
//   - UUID: random UUID v4
//   - Timestamp: current Unix timestamp in seconds
//
// Templates may also call functions inline with {{name(args)}}, e.g.
// {{uuid()}}, {{random(1, 10)}}, {{base64(user:pass)}} or {{date(2006-01-02)}}.
package builtin
