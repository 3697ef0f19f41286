package assertions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Operator compares an actual value with an expected one.
type Operator string

const (
	OpEquals         Operator = "=="
	OpNotEquals      Operator = "!="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpContains       Operator = "contains"
	OpNotContains    Operator = "!contains"
	OpStartsWith     Operator = "startsWith"
	OpEndsWith       Operator = "endsWith"
	OpMatches        Operator = "matches"
	OpExists         Operator = "exists"
	OpNotExists      Operator = "!exists"
	OpLength         Operator = "length"
	OpIncludes       Operator = "includes"
	OpIn             Operator = "in"
	OpType           Operator = "type"
	OpSchema         Operator = "schema"
	OpEach           Operator = "each"
)

var operatorAliases = map[string]Operator{
	"equals":      OpEquals,
	"eq":          OpEquals,
	"notEquals":   OpNotEquals,
	"ne":          OpNotEquals,
	"gt":          OpGreaterThan,
	"gte":         OpGreaterOrEqual,
	"lt":          OpLessThan,
	"lte":         OpLessOrEqual,
	"notContains": OpNotContains,
	"notExists":   OpNotExists,
}

// ParseOperator accepts the operator symbols and their word aliases.
func ParseOperator(s string) (Operator, error) {
	s = strings.TrimSpace(s)
	if op, ok := operatorAliases[s]; ok {
		return op, nil
	}
	switch op := Operator(s); op {
	case OpEquals, OpNotEquals, OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual,
		OpContains, OpNotContains, OpStartsWith, OpEndsWith, OpMatches, OpExists, OpNotExists,
		OpLength, OpIncludes, OpIn, OpType, OpSchema, OpEach:
		return op, nil
	}
	return "", fmt.Errorf("unknown operator: %s", s)
}

// Target is the response an Evaluator reads subjects from.
type Target struct {
	Status     int
	Headers    map[string]string
	Body       []byte
	DurationMs int64
}

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator Operator
}

type Evaluator struct {
	target   Target
	bodyJSON gjson.Result
	isJSON   bool
	baseDir  string
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithBaseDir resolves relative schema paths against dir and refuses paths
// that leave it.
func WithBaseDir(dir string) EvaluatorOption {
	return func(e *Evaluator) {
		e.baseDir = dir
	}
}

func NewEvaluator(target Target, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{target: target}
	if gjson.ValidBytes(target.Body) && len(strings.TrimSpace(string(target.Body))) > 0 {
		e.bodyJSON = gjson.ParseBytes(target.Body)
		e.isJSON = true
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate resolves subject against the target and applies op.
//
// Subjects: status, duration, header <name>, body, body.<path>, or a bare
// gjson path into the JSON body. Array indexes may use [N] notation.
func (e *Evaluator) Evaluate(subject string, op Operator, expected any) *Result {
	result := &Result{
		Subject:  subject,
		Operator: op,
		Expected: expected,
	}

	actual := e.actual(strings.TrimSpace(subject))
	result.Actual = actual

	passed, msg := e.compare(actual, op, expected)
	result.Passed = passed
	result.Message = msg
	if op == OpLength {
		result.Actual = computeLength(actual)
	}
	if result.Message == "" {
		result.Message = fmt.Sprintf("%s %s %v", subject, op, expected)
	}
	return result
}

func (e *Evaluator) actual(subject string) any {
	switch {
	case subject == "status":
		return e.target.Status
	case subject == "duration":
		return e.target.DurationMs
	case strings.HasPrefix(subject, "header"):
		name := strings.TrimSpace(strings.TrimPrefix(subject, "header"))
		if name == "" {
			return e.target.Headers
		}
		for k, v := range e.target.Headers {
			if strings.EqualFold(k, name) {
				return v
			}
		}
		return nil
	case subject == "body":
		if e.isJSON {
			return e.bodyJSON.Value()
		}
		return string(e.target.Body)
	default:
		return e.jsonValue(strings.TrimPrefix(strings.TrimPrefix(subject, "body"), "."))
	}
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// convertBracketNotation turns items[0].id into items.0.id.
func convertBracketNotation(path string) string {
	return strings.TrimPrefix(bracketIndex.ReplaceAllString(path, ".$1"), ".")
}

func (e *Evaluator) jsonValue(path string) any {
	if !e.isJSON {
		return nil
	}
	if path == "" {
		return e.bodyJSON.Value()
	}
	r := e.bodyJSON.Get(convertBracketNotation(path))
	if !r.Exists() {
		return nil
	}
	return r.Value()
}

func (e *Evaluator) compare(actual any, op Operator, expected any) (bool, string) {
	switch op {
	case OpEquals:
		return e.equals(actual, expected)
	case OpNotEquals:
		if passed, _ := e.equals(actual, expected); passed {
			return false, fmt.Sprintf("expected not to equal %v", expected)
		}
		return true, ""
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return e.compareNumeric(actual, expected, op)
	case OpContains:
		return e.contains(actual, expected)
	case OpNotContains:
		if passed, _ := e.contains(actual, expected); passed {
			return false, fmt.Sprintf("expected not to contain %v", expected)
		}
		return true, ""
	case OpStartsWith:
		if strings.HasPrefix(fmt.Sprint(actual), fmt.Sprint(expected)) {
			return true, ""
		}
		return false, fmt.Sprintf("expected '%v' to start with '%v'", actual, expected)
	case OpEndsWith:
		if strings.HasSuffix(fmt.Sprint(actual), fmt.Sprint(expected)) {
			return true, ""
		}
		return false, fmt.Sprintf("expected '%v' to end with '%v'", actual, expected)
	case OpMatches:
		return e.matches(actual, expected)
	case OpExists:
		if actual == nil {
			return false, "expected to exist"
		}
		return true, ""
	case OpNotExists:
		if actual != nil {
			return false, "expected not to exist"
		}
		return true, ""
	case OpLength:
		return e.length(actual, expected)
	case OpIncludes:
		return e.includes(actual, expected)
	case OpIn:
		return e.in(actual, expected)
	case OpType:
		return e.typeCheck(actual, expected)
	case OpSchema:
		return e.schema(actual, expected)
	case OpEach:
		return e.each(actual, expected)
	default:
		return false, fmt.Sprintf("unknown operator: %v", op)
	}
}

func (e *Evaluator) equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) || Equal(actual, expected) {
		return true, ""
	}

	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk && eOk && actualNum == expectedNum {
		return true, ""
	}

	if fmt.Sprint(actual) == fmt.Sprint(expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func (e *Evaluator) compareNumeric(actual, expected any, op Operator) (bool, string) {
	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if !aOk || !eOk {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, op, expected)
	}

	var passed bool
	switch op {
	case OpGreaterThan:
		passed = actualNum > expectedNum
	case OpGreaterOrEqual:
		passed = actualNum >= expectedNum
	case OpLessThan:
		passed = actualNum < expectedNum
	case OpLessOrEqual:
		passed = actualNum <= expectedNum
	}
	if passed {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v %s %v", actual, op, expected)
}

func (e *Evaluator) contains(actual, expected any) (bool, string) {
	if strings.Contains(fmt.Sprint(actual), fmt.Sprint(expected)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to contain '%v'", actual, expected)
}

func (e *Evaluator) matches(actual, expected any) (bool, string) {
	pattern := strings.TrimSuffix(strings.TrimPrefix(fmt.Sprint(expected), "/"), "/")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}
	if re.MatchString(fmt.Sprint(actual)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to match /%v/", actual, pattern)
}

// computeLength returns the length of a value, or -1 if it has none.
func computeLength(actual any) int {
	if actual == nil {
		return -1
	}
	rv := reflect.ValueOf(actual)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	default:
		return -1
	}
}

func (e *Evaluator) length(actual, expected any) (bool, string) {
	expectedLen, ok := toInt(expected)
	if !ok {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}
	actualLen := computeLength(actual)
	if actualLen == -1 {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}
	if actualLen == expectedLen {
		return true, ""
	}
	return false, fmt.Sprintf("expected length %d, got %d", expectedLen, actualLen)
}

func (e *Evaluator) includes(actual, expected any) (bool, string) {
	arr, ok := actual.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array, got %T", actual)
	}
	for _, item := range arr {
		if passed, _ := e.equals(item, expected); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected array to include %v", expected)
}

func (e *Evaluator) in(actual, expected any) (bool, string) {
	rv := reflect.ValueOf(expected)
	if expected == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return false, fmt.Sprintf("expected array for 'in' operator, got %T", expected)
	}
	for i := 0; i < rv.Len(); i++ {
		if passed, _ := e.equals(actual, rv.Index(i).Interface()); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected %v to be in %v", actual, expected)
}

func (e *Evaluator) typeCheck(actual, expected any) (bool, string) {
	expectedType := fmt.Sprint(expected)
	actualType := jsonType(actual)
	if actualType == expectedType {
		return true, ""
	}
	return false, fmt.Sprintf("expected type %s, got %s", expectedType, actualType)
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return reflect.TypeOf(v).String()
	}
}

func (e *Evaluator) each(actual, expected any) (bool, string) {
	arr, ok := actual.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array for 'each' operator, got %T", actual)
	}

	check := func(item any) (bool, string) { return e.equals(item, expected) }
	if m, ok := expected.(map[string]any); ok {
		rawOp, hasOp := m["operator"]
		val, hasVal := m["value"]
		if hasOp && hasVal {
			op, err := ParseOperator(fmt.Sprint(rawOp))
			if err != nil {
				return false, err.Error()
			}
			if op == OpEach || op == OpSchema {
				return false, fmt.Sprintf("operator %s is not allowed in each", op)
			}
			check = func(item any) (bool, string) { return e.compare(item, op, val) }
		}
	}

	for i, item := range arr {
		if passed, msg := check(item); !passed {
			return false, fmt.Sprintf("item[%d]: %s", i, msg)
		}
	}
	return true, ""
}

// validatePathWithinBase refuses paths that resolve outside baseDir.
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}
	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}
	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}
	return nil
}

// schema validates actual against expected, which is either an inline schema
// (object or JSON text) or the path of a schema file.
func (e *Evaluator) schema(actual, expected any) (bool, string) {
	var schemaLoader gojsonschema.JSONLoader
	switch s := expected.(type) {
	case map[string]any:
		schemaLoader = gojsonschema.NewGoLoader(s)
	case string:
		if strings.HasPrefix(strings.TrimSpace(s), "{") {
			schemaLoader = gojsonschema.NewStringLoader(s)
			break
		}
		schemaPath := s
		if !filepath.IsAbs(schemaPath) && e.baseDir != "" {
			schemaPath = filepath.Join(e.baseDir, schemaPath)
		}
		if err := validatePathWithinBase(schemaPath, e.baseDir); err != nil {
			return false, err.Error()
		}
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			return false, fmt.Sprintf("failed to read schema file: %v", err)
		}
		schemaLoader = gojsonschema.NewBytesLoader(data)
	default:
		return false, fmt.Sprintf("unsupported schema value %T", expected)
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		return false, fmt.Sprintf("failed to marshal actual value: %v", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(actualJSON))
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err)
	}
	if result.Valid() {
		return true, ""
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return false, fmt.Sprintf("schema validation failed: %s", strings.Join(errs, "; "))
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	f, ok := toFloat64(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}
