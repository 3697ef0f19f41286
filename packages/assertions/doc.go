// Package assertions records and evaluates test outcomes.
//
// TestResult tracks named test blocks opened and closed by scripts, with the
// assertions recorded inside each block. Closing a block with any failed
// assertion fails the block, and any failed block fails the result.
//
// Evaluator checks a response subject (status, duration, header <name>,
// body or a JSON path) with an operator such as ==, contains, matches,
// length, type or schema. Equal is the structural equality used by scripts.
package assertions
