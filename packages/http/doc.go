// Package http builds and sends hitcase requests.
//
// A Request is a template whose values may contain {{name}} tokens. Build
// resolves a template against an environment: disabled entries are dropped,
// path variables are spliced into the URL and the Authorization header is
// generated. Client.Send then performs the request and reports the headers the
// transport added alongside the response. OAuth2 auth is resolved to a
// bearer token at send time.
//
// Fetch issues independent requests on behalf of scripts.
package http
