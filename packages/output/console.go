package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

// WithVerbose prints script logs under each request.
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func symbol(s assertions.Status) string {
	switch s {
	case assertions.StatusPass, assertions.StatusNone:
		return green("✓")
	case assertions.StatusFail:
		return red("✗")
	case assertions.StatusSkip:
		return yellow("-")
	}
	return faint("…")
}

func statusLabel(s assertions.Status) string {
	switch s {
	case assertions.StatusPass:
		return green(string(s))
	case assertions.StatusFail:
		return red(string(s))
	case assertions.StatusSkip:
		return yellow(string(s))
	}
	return faint(string(s))
}

func (f *ConsoleFormatter) Format(r *Report) error {
	fmt.Fprintf(f.writer, "\n%s", bold(r.Collection))
	if r.Environment != "" {
		fmt.Fprintf(f.writer, " %s", faint("("+r.Environment+")"))
	}
	fmt.Fprintln(f.writer)

	f.folder(r.Tree, 1)

	s := r.Summary
	fmt.Fprintf(f.writer, "\nRequests: ")
	if s.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", s.Passed)))
	}
	if s.Failed+s.Errors > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", s.Failed+s.Errors)))
	}
	if s.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", s.Skipped)))
	}
	fmt.Fprintf(f.writer, "%d total\n", s.Total)
	fmt.Fprintf(f.writer, "Time:     %dms (p95 %v)\n\n", s.Duration.Milliseconds(), s.P95.Round(time.Millisecond))
	return nil
}

func (f *ConsoleFormatter) folder(folder runner.ResultFolder, depth int) {
	pad := strings.Repeat("  ", depth)
	for _, c := range folder.Cases {
		fmt.Fprintf(f.writer, "%s%s %s [%s]\n", pad, folder.Name, cyan(c.Name), statusLabel(c.Status))
		for _, child := range c.Folders {
			f.folder(child, depth+1)
		}
		for _, req := range c.Requests {
			f.request(req, depth+1)
		}
	}
}

func (f *ConsoleFormatter) request(req runner.ResultRequest, depth int) {
	pad := strings.Repeat("  ", depth)
	name := req.Name
	if req.Testcase != "" {
		name += faint(":" + req.Testcase)
	}

	switch {
	case req.Error != nil:
		fmt.Fprintf(f.writer, "%s%s %s %s\n", pad, red("x"), name, red("("+req.Error.Error+")"))
	case req.Result != nil:
		elapsed := ""
		if req.Result.Response != nil {
			elapsed = cyan(fmt.Sprintf("(%d %dms)", req.Result.Response.Status, req.Result.Response.ElapsedMs))
		}
		fmt.Fprintf(f.writer, "%s%s %s %s\n", pad, symbol(req.Status), name, elapsed)
		if req.Result.TestResult != nil {
			for _, t := range req.Result.TestResult.Tests {
				fmt.Fprintf(f.writer, "%s  %s %s\n", pad, symbol(t.Status), t.Name)
				for _, a := range t.Results {
					if a.Status == assertions.StatusFail {
						fmt.Fprintf(f.writer, "%s    %s %s\n", pad, red("→"), a.Message)
					}
				}
			}
		}
	default:
		fmt.Fprintf(f.writer, "%s%s %s %s\n", pad, symbol(req.Status), name, faint(string(req.Status)))
	}

	if !f.verbose {
		return
	}
	var lines []string
	switch {
	case req.Result != nil:
		for _, l := range req.Result.Logs {
			lines = append(lines, l.Show())
		}
	case req.Error != nil:
		for _, l := range req.Error.Logs {
			lines = append(lines, l.Show())
		}
	}
	for _, line := range lines {
		for _, part := range strings.Split(strings.TrimRight(line, "\n"), "\n") {
			fmt.Fprintf(f.writer, "%s    %s\n", pad, faint(part))
		}
	}
}
