package env

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadDotEnv parses a .env file and returns key-value pairs.
// Supports: KEY=value, KEY="quoted value", KEY='single quoted', # comments.
// An optional "export " prefix is ignored. Unquoted values end at " #";
// double quoted values expand \n, \t, \" and \\.
func LoadDotEnv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	result := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue // not an assignment
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		if key == "" {
			continue
		}

		result[key] = dotEnvValue(strings.TrimSpace(value))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	return result, nil
}

// dotEnvValue unquotes a raw value from the right-hand side of an assignment.
func dotEnvValue(raw string) string {
	if len(raw) >= 2 {
		switch q := raw[0]; {
		case q == '\'' && raw[len(raw)-1] == '\'':
			return raw[1 : len(raw)-1]
		case q == '"' && raw[len(raw)-1] == '"':
			return unescapeDouble(raw[1 : len(raw)-1])
		}
	}
	if i := strings.Index(raw, " #"); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	return raw
}

func unescapeDouble(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '"', '\\':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// DotEnv loads a .env file as literal values in the given scope.
func DotEnv(path, scope string) (Envs, error) {
	vars, err := LoadDotEnv(path)
	if err != nil {
		return nil, err
	}
	out := make(Envs, len(vars))
	for k, v := range vars {
		out.Set(k, v, scope)
	}
	return out, nil
}
