package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
)

// TAPFormatter writes TAP version 13, one test point per request run.
type TAPFormatter struct {
	writer io.Writer
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

func (f *TAPFormatter) Format(r *Report) error {
	rows := Rows(r.Tree)
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", len(rows))

	for i, row := range rows {
		n := i + 1
		name := row.ClassName + "/" + row.FullName()
		switch {
		case row.Error != "":
			fmt.Fprintf(f.writer, "not ok %d - %s\n", n, name)
			fmt.Fprintf(f.writer, "  ---\n")
			fmt.Fprintf(f.writer, "  message: %s\n", escapeYAML(row.Error))
			fmt.Fprintf(f.writer, "  severity: error\n")
			fmt.Fprintf(f.writer, "  ...\n")
		case row.Status == assertions.StatusSkip:
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP\n", n, name)
		case row.Status == assertions.StatusFail:
			fmt.Fprintf(f.writer, "not ok %d - %s\n", n, name)
			fmt.Fprintf(f.writer, "  ---\n")
			fmt.Fprintf(f.writer, "  failures:\n")
			for _, msg := range row.Failures() {
				fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(msg))
			}
			fmt.Fprintf(f.writer, "  ...\n")
		case row.Status == assertions.StatusPass, row.Status == assertions.StatusNone:
			fmt.Fprintf(f.writer, "ok %d - %s\n", n, name)
		default:
			fmt.Fprintf(f.writer, "not ok %d - %s # TODO %s\n", n, name, strings.ToLower(string(row.Status)))
		}
	}
	return nil
}

func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		return "\"" + s + "\""
	}
	return s
}
