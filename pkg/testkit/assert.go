package testkit

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wildcard matches any non-null value in an expected response or header.
const Wildcard = "{{*}}"

// AssertStatusCode checks the response code.
func AssertStatusCode(t testing.TB, step *Step, got int, body []byte) {
	t.Helper()
	assert.Equal(t, step.ExpectedCode, got,
		"[%s] HTTP status code mismatch\nbody: %s", step.Name, string(body))
}

// AssertJSONBody compares actual against the expected file contents after
// decoding both, so key order and whitespace never matter. Keys absent from
// expected are ignored; arrays must have the same length. A string value of
// "{{*}}" matches anything, and "{{name}}" must equal the captured variable.
func AssertJSONBody(t testing.TB, step *Step, vars Vars, expected, actual []byte) {
	t.Helper()
	if len(expected) == 0 {
		return
	}

	var expVal, actVal any
	require.NoError(t, json.Unmarshal(expected, &expVal),
		"[%s] expected response file is not valid JSON", step.Name)
	if !assert.NoError(t, json.Unmarshal(actual, &actVal),
		"[%s] actual response is not valid JSON\nbody: %s", step.Name, string(actual)) {
		return
	}

	if diffs := DiffJSON("", expVal, actVal, vars); len(diffs) > 0 {
		assert.Fail(t, fmt.Sprintf("[%s] response body mismatch", step.Name),
			"%s\nbody: %s", strings.Join(diffs, "\n"), string(actual))
	}
}

// AssertHeaders checks each expected header; Wildcard only requires presence.
func AssertHeaders(t testing.TB, step *Step, vars Vars, got func(string) string) {
	t.Helper()
	for name, want := range step.ExpectedHeaders {
		v := got(name)
		if want == Wildcard {
			assert.NotEmpty(t, v, "[%s] header %s missing", step.Name, name)
			continue
		}
		assert.Equal(t, vars.Expand(want), v, "[%s] header %s", step.Name, name)
	}
}

// DiffJSON returns a human-readable line per difference between two decoded
// JSON values. Only keys present in expected are compared.
func DiffJSON(path string, expected, actual any, vars Vars) []string {
	var diffs []string
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return append(diffs, fmt.Sprintf("  %s: expected object, got %T", keyPath(path), actual))
		}
		for k, ev := range exp {
			p := keyPath(path) + "." + k
			av, exists := act[k]
			if !exists {
				diffs = append(diffs, fmt.Sprintf("  %s: missing in actual", p))
				continue
			}
			diffs = append(diffs, DiffJSON(p, ev, av, vars)...)
		}
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return append(diffs, fmt.Sprintf("  %s: expected array, got %T", keyPath(path), actual))
		}
		if len(exp) != len(act) {
			diffs = append(diffs, fmt.Sprintf("  %s: array length expected=%d actual=%d", keyPath(path), len(exp), len(act)))
		}
		for i := 0; i < len(exp) && i < len(act); i++ {
			diffs = append(diffs, DiffJSON(fmt.Sprintf("%s[%d]", keyPath(path), i), exp[i], act[i], vars)...)
		}
	case string:
		if exp == Wildcard {
			if actual == nil {
				diffs = append(diffs, fmt.Sprintf("  %s: expected a value, got null", keyPath(path)))
			}
			break
		}
		if want := vars.Expand(exp); want != fmt.Sprintf("%v", actual) {
			diffs = append(diffs, fmt.Sprintf("  %s:\n    - %v\n    + %v", keyPath(path), want, actual))
		}
	default:
		if fmt.Sprintf("%v", expected) != fmt.Sprintf("%v", actual) {
			diffs = append(diffs, fmt.Sprintf("  %s:\n    - %v\n    + %v", keyPath(path), expected, actual))
		}
	}
	return diffs
}

func keyPath(path string) string {
	if path == "" {
		return "root"
	}
	return strings.TrimPrefix(path, ".")
}
