package script

import "errors"

var (
	// ErrSkip is raised by hitcase.skip(). It marks the request as skipped
	// rather than failed.
	ErrSkip = errors.New("TestSkip")

	// ErrSharedTimeout is returned when a waited-for shared value never appears.
	ErrSharedTimeout = errors.New("shared value wait timed out")
)
