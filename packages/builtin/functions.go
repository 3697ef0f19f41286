package builtin

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Func computes a value from string arguments.
type Func func(args []string) (string, error)

// Env function names usable as the value of a Function-kind environment entry.
const (
	RandomInt = "RandomInt"
	UUID      = "UUID"
	Timestamp = "Timestamp"
)

// Registry maps function names to implementations. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	funcs map[string]Func
}

func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]Func),
	}
	r.registerDefaults()
	return r
}

var defaultRegistry = NewRegistry()

// Default returns the shared registry with the built-in functions.
func Default() *Registry {
	return defaultRegistry
}

func (r *Registry) registerDefaults() {
	r.funcs[RandomInt] = funcRandomInt
	r.funcs[UUID] = funcUUID
	r.funcs[Timestamp] = funcTimestamp

	r.funcs["now"] = funcNow
	r.funcs["timestamp"] = funcTimestamp
	r.funcs["timestampMs"] = funcTimestampMs
	r.funcs["uuid"] = funcUUID
	r.funcs["random"] = funcRandom
	r.funcs["randomString"] = funcRandomString
	r.funcs["randomEmail"] = funcRandomEmail
	r.funcs["base64"] = funcBase64
	r.funcs["base64Decode"] = funcBase64Decode
	r.funcs["md5"] = funcMD5
	r.funcs["sha256"] = funcSHA256
	r.funcs["urlEncode"] = funcURLEncode
	r.funcs["urlDecode"] = funcURLDecode
	r.funcs["date"] = funcDate
}

func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Eval runs a zero-argument function by name.
func (r *Registry) Eval(name string) (string, bool) {
	fn, ok := r.funcs[strings.TrimSpace(name)]
	if !ok {
		return "", false
	}
	v, err := fn(nil)
	if err != nil {
		return "", false
	}
	return v, true
}

var funcCallPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// Call evaluates an expression of the form name(arg1, arg2).
func (r *Registry) Call(expr string) (string, bool) {
	matches := funcCallPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if matches == nil {
		return "", false
	}

	fn, ok := r.funcs[matches[1]]
	if !ok {
		return "", false
	}

	var args []string
	if matches[2] != "" {
		args = parseArgs(matches[2])
	}

	v, err := fn(args)
	if err != nil {
		return "", false
	}
	return v, true
}

func parseArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case !inQuote && (ch == '"' || ch == '\''):
			inQuote = true
			quoteChar = ch
		case inQuote && ch == quoteChar:
			inQuote = false
			quoteChar = 0
		case !inQuote && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}

	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}

	return args
}

func intArg(args []string, i int, name string, def int) (int, error) {
	if len(args) <= i {
		return def, nil
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("%s argument %q is not a valid integer", name, args[i])
	}
	return v, nil
}

func funcRandomInt(_ []string) (string, error) {
	return strconv.Itoa(rand.Intn(math.MaxInt32)), nil
}

func funcNow(_ []string) (string, error) {
	return time.Now().UTC().Format(time.RFC3339), nil
}

func funcTimestamp(_ []string) (string, error) {
	return strconv.FormatInt(time.Now().Unix(), 10), nil
}

func funcTimestampMs(_ []string) (string, error) {
	return strconv.FormatInt(time.Now().UnixMilli(), 10), nil
}

func funcUUID(_ []string) (string, error) {
	return uuid.New().String(), nil
}

func funcRandom(args []string) (string, error) {
	min, err := intArg(args, 0, "random() min", 0)
	if err != nil {
		return "", err
	}
	max, err := intArg(args, 1, "random() max", 100)
	if err != nil {
		return "", err
	}
	if max < min {
		return "", fmt.Errorf("random() max %d is below min %d", max, min)
	}
	return strconv.Itoa(rand.Intn(max-min+1) + min), nil
}

func funcRandomString(args []string) (string, error) {
	length, err := intArg(args, 0, "randomString() length", 16)
	if err != nil {
		return "", err
	}
	return randomString(length, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"), nil
}

func funcRandomEmail(_ []string) (string, error) {
	user := randomString(8, "abcdefghijklmnopqrstuvwxyz")
	domain := randomString(6, "abcdefghijklmnopqrstuvwxyz")
	return fmt.Sprintf("%s@%s.com", user, domain), nil
}

func funcBase64(args []string) (string, error) {
	if len(args) < 1 {
		return "", nil
	}
	return base64.StdEncoding.EncodeToString([]byte(args[0])), nil
}

func funcBase64Decode(args []string) (string, error) {
	if len(args) < 1 {
		return "", nil
	}
	decoded, err := base64.StdEncoding.DecodeString(args[0])
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func funcMD5(args []string) (string, error) {
	if len(args) < 1 {
		return "", nil
	}
	hash := md5.Sum([]byte(args[0]))
	return hex.EncodeToString(hash[:]), nil
}

func funcSHA256(args []string) (string, error) {
	if len(args) < 1 {
		return "", nil
	}
	hash := sha256.Sum256([]byte(args[0]))
	return hex.EncodeToString(hash[:]), nil
}

func funcURLEncode(args []string) (string, error) {
	if len(args) < 1 {
		return "", nil
	}
	return url.QueryEscape(args[0]), nil
}

func funcURLDecode(args []string) (string, error) {
	if len(args) < 1 {
		return "", nil
	}
	decoded, err := url.QueryUnescape(args[0])
	if err != nil {
		return args[0], nil
	}
	return decoded, nil
}

func funcDate(args []string) (string, error) {
	format := "2006-01-02"
	if len(args) >= 1 {
		format = args[0]
	}
	return time.Now().UTC().Format(format), nil
}

func randomString(length int, charset string) string {
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
