package testkit

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/orderly/pkg/event"
)

// Run executes the scenario in file path against handler.
func Run(t *testing.T, handler http.Handler, path string) {
	t.Helper()

	s, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("testkit: load scenario %q: %v", path, err)
	}
	t.Run(s.Name, func(t *testing.T) {
		runScenario(t, handler, s)
	})
}

// RunDir runs every scenario file in dir as a subtest. Scenarios share
// handler, so each one should use data of its own (distinct emails, say).
func RunDir(t *testing.T, handler http.Handler, dir string) {
	t.Helper()

	scenarios, errs := LoadAllFromDir(dir)
	for _, err := range errs {
		t.Errorf("%v", err)
	}
	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			runScenario(t, handler, s)
		})
	}
}

// recorder collects the names of the events fired while a step runs.
type recorder struct {
	mu    sync.Mutex
	fired []string
}

func (r *recorder) listen(name string) {
	event.Listen(name, func(any) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.fired = append(r.fired, name)
	})
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.fired
	r.fired = nil
	return out
}

func runScenario(t *testing.T, handler http.Handler, s *Scenario) {
	t.Helper()

	rec := &recorder{}
	seen := map[string]bool{}
	for _, st := range s.Steps {
		for _, name := range st.ExpectEvents {
			if !seen[name] {
				seen[name] = true
				rec.listen(name)
			}
		}
	}

	vars := Vars{}
	for i := range s.Steps {
		st := &s.Steps[i]
		ok := t.Run(st.Name, func(t *testing.T) {
			runStep(t, handler, s, st, vars, rec)
		})
		if !ok {
			// Later steps depend on what this one captured.
			return
		}
	}
}

func runStep(t *testing.T, handler http.Handler, s *Scenario, st *Step, vars Vars, rec *recorder) {
	t.Helper()

	var body io.Reader
	switch {
	case st.RequestFileName != "":
		data, err := os.ReadFile(s.resolve(st.RequestFileName))
		if err != nil {
			t.Fatalf("[%s] read request file %q: %v", st.Name, st.RequestFileName, err)
		}
		body = strings.NewReader(vars.Expand(string(data)))
	case len(st.RequestBody) > 0:
		body = strings.NewReader(vars.Expand(string(st.RequestBody)))
	}

	req := httptest.NewRequest(strings.ToUpper(st.RequestMethod), vars.Expand(st.RequestURL), body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range st.Headers {
		req.Header.Set(k, vars.Expand(v))
	}

	rec.take()
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	fired := rec.take()

	AssertStatusCode(t, st, w.Code, w.Body.Bytes())
	AssertHeaders(t, st, vars, w.Header().Get)

	if p := s.resolve(st.ResponseFileName); p != "" {
		expected, err := os.ReadFile(p)
		if err != nil {
			t.Errorf("[%s] read response file %q: %v", st.Name, st.ResponseFileName, err)
		} else {
			AssertJSONBody(t, st, vars, expected, bytes.TrimSpace(w.Body.Bytes()))
		}
	}

	if st.ExpectEvents != nil {
		if len(st.ExpectEvents) == 0 {
			assert.Empty(t, fired, "[%s] no events expected", st.Name)
		} else {
			assert.Equal(t, st.ExpectEvents, fired, "[%s] fired events", st.Name)
		}
	}

	if err := vars.Capture(w.Body.Bytes(), st.Capture); err != nil {
		t.Fatalf("[%s] %v", st.Name, err)
	}
}
