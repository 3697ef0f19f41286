package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
)

type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite groups the requests run under one folder testcase.
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

type JUnitFormatter struct {
	writer io.Writer
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) Format(r *Report) error {
	suites := JUnitTestSuites{
		Name:      r.Collection,
		Time:      r.Summary.Duration.Seconds(),
		Timestamp: r.Summary.Begin.Format("2006-01-02T15:04:05"),
	}

	index := map[string]int{}
	for _, row := range Rows(r.Tree) {
		i, ok := index[row.ClassName]
		if !ok {
			i = len(suites.TestSuites)
			index[row.ClassName] = i
			suites.TestSuites = append(suites.TestSuites, JUnitTestSuite{Name: row.ClassName})
		}
		suite := &suites.TestSuites[i]

		tc := JUnitTestCase{
			Name:      row.FullName(),
			ClassName: row.ClassName,
			Time:      float64(row.ElapsedMs) / 1000,
			SystemOut: strings.Join(row.Logs, "\n"),
		}
		switch {
		case row.Error != "":
			suite.Errors++
			tc.Error = &JUnitError{Message: row.Error, Type: "RunError"}
		case row.Status == assertions.StatusFail:
			suite.Failures++
			failures := row.Failures()
			tc.Failure = &JUnitFailure{
				Message: fmt.Sprintf("%d assertion(s) failed", len(failures)),
				Type:    "AssertionError",
				Content: strings.Join(failures, "\n"),
			}
		case row.Status == assertions.StatusSkip:
			suite.Skipped++
			tc.Skipped = &JUnitSkipped{Message: "skipped by script"}
		}
		suite.Tests++
		suite.Time += tc.Time
		suite.TestCases = append(suite.TestCases, tc)
	}

	for _, s := range suites.TestSuites {
		suites.Tests += s.Tests
		suites.Failures += s.Failures
		suites.Errors += s.Errors
		suites.Skipped += s.Skipped
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(suites); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.writer)
	return err
}
