// Package capture extracts values from HTTP responses.
//
// Sources are the response status, duration, a header, the whole body or a
// gjson path into a JSON body. Scripts use it through hitcase.capture to
// store a value as an environment variable for later requests.
package capture
