// Package script runs pre-request and test scripts.
//
// Scripts are JavaScript executed by goja, one fresh runtime per script. The
// host exposes a small surface: console, sleep, fetch, assert, testcase and
// the hitcase namespace (environment access, request mutation, the shared
// store, test blocks, skip, expect, capture and snapshot). Nothing else from the
// process is reachable.
//
// A Context carries the request, the last response, environment values, the
// testcase fixture, the shared store, the log and the test result. Run clones
// it per script and merges the script's changes back; the response is never
// merged.
package script
