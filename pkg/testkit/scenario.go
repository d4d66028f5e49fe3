// Package testkit drives REST API tests from JSON scenario files.
//
// A scenario is an ordered list of requests fired at one http.Handler.
// Values captured from one response (an id, say) can be spliced into the
// URL, headers or body of the next request with {{name}}:
//
//	testdata/
//	  place_order.json           scenario
//	  place_order_req.json       request body
//	  place_order_res.json       expected response body
//
// Example _test.go:
//
//	func TestScenarios(t *testing.T) {
//	    testkit.RunDir(t, handler, "testdata")
//	}
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Scenario describes one API test case loaded from a JSON file.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       []Step `json:"steps"`

	dir string // directory of the scenario file
}

// Step is a single request and what its response must look like.
type Step struct {
	Name string `json:"name"`

	// Request
	RequestMethod   string            `json:"requestMethod"`   // GET when empty
	RequestURL      string            `json:"requestUrl"`      // e.g. /api/orders/{{orderId}}
	RequestFileName string            `json:"requestFileName"` // relative to the scenario dir
	RequestBody     json.RawMessage   `json:"requestBody"`     // inline alternative to requestFileName
	Headers         map[string]string `json:"headers"`

	// Response assertions
	ExpectedCode     int               `json:"expectedCode"`
	ResponseFileName string            `json:"responseFileName"` // relative to the scenario dir
	ExpectedHeaders  map[string]string `json:"expectedHeaders"`  // "{{*}}" only checks presence

	// ExpectEvents lists the pkg/event names the step must fire, in order.
	// Only names listed somewhere in the scenario are watched, so an empty
	// list asserts that none of those fired.
	ExpectEvents []string `json:"expectEvents"`

	// Capture maps a variable name to a dotted path into the JSON response,
	// e.g. {"orderId": "id", "firstItem": "orderItems.0.id"}.
	Capture map[string]string `json:"capture"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("testkit: invalid scenario %q: %w", abs, err)
	}

	s.dir = filepath.Dir(abs)
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i := range s.Steps {
		st := &s.Steps[i]
		if st.RequestURL == "" {
			return fmt.Errorf("steps[%d].requestUrl is required", i)
		}
		if st.ExpectedCode == 0 {
			return fmt.Errorf("steps[%d].expectedCode is required", i)
		}
		if st.RequestFileName != "" && len(st.RequestBody) > 0 {
			return fmt.Errorf("steps[%d]: requestFileName and requestBody are exclusive", i)
		}
		if st.RequestMethod == "" {
			st.RequestMethod = "GET"
		}
		if st.Name == "" {
			st.Name = fmt.Sprintf("%02d_%s", i+1, st.RequestMethod)
		}
	}
	return nil
}

// resolve returns name relative to the scenario directory.
func (s *Scenario) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// LoadAllFromDir loads every scenario in dir. Request and response body
// files living next to them are skipped; files that fail to load are
// returned as errors.
func LoadAllFromDir(dir string) ([]*Scenario, []error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(entries) == 0 {
		return nil, []error{fmt.Errorf("testkit: no scenario files found in %q", dir)}
	}
	sort.Strings(entries)

	var (
		loaded []*Scenario
		errs   []error
	)
	for _, path := range entries {
		if !isScenarioFile(path) {
			continue
		}
		s, err := LoadScenario(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		loaded = append(loaded, s)
	}
	if len(loaded) == 0 && len(errs) == 0 {
		errs = append(errs, fmt.Errorf("testkit: no scenario files found in %q", dir))
	}
	return loaded, errs
}

// isScenarioFile tells scenarios apart from body files by their top-level
// "steps" key.
func isScenarioFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var top map[string]json.RawMessage
	if json.Unmarshal(data, &top) != nil {
		return false
	}
	_, ok := top["steps"]
	return ok
}
