// Package output renders collection run reports.
//
// Supported formats:
//   - yaml: the result tree as YAML (default)
//   - console: colored tree for terminals
//   - json: summary plus result tree
//   - junit: JUnit XML, one suite per folder testcase
//   - tap: Test Anything Protocol version 13
//   - html: a single self-contained page
//   - xlsx: Excel workbook with results and summary sheets
package output
