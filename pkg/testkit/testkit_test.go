package testkit_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/orderly/pkg/event"
	"github.com/shashiranjanraj/orderly/pkg/testkit"
)

// notes is a tiny create/read API used to exercise the runner.
func notes() http.Handler {
	var (
		mu    sync.Mutex
		store = map[string]string{}
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		mu.Lock()
		defer mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/notes":
			var in struct {
				Text string `json:"text"`
			}
			_ = json.NewDecoder(r.Body).Decode(&in)
			id := fmt.Sprintf("n%d", len(store)+1)
			store[id] = in.Text
			event.Fire("note.created", id)
			w.Header().Set("Location", "/notes/"+id)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"id":%q,"text":%q,"tags":[]}`, id, in.Text)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/notes/"):
			id := strings.TrimPrefix(r.URL.Path, "/notes/")
			text, ok := store[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"status":404}`)
				return
			}
			fmt.Fprintf(w, `{"id":%q,"text":%q}`, id, text)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"status":404}`)
		}
	})
}

func write(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestRunDirCapturesAcrossSteps(t *testing.T) {
	t.Cleanup(event.Flush)
	dir := t.TempDir()

	write(t, dir, "note_req.json", `{"text":"hello"}`)
	write(t, dir, "note_res.json", `{"id":"{{noteId}}","text":"hello"}`)
	write(t, dir, "note.json", `{
		"name": "create_then_read",
		"steps": [
			{
				"name": "create",
				"requestMethod": "POST",
				"requestUrl": "/notes",
				"requestFileName": "note_req.json",
				"expectedCode": 201,
				"expectedHeaders": {"Location": "{{*}}"},
				"expectEvents": ["note.created"],
				"capture": {"noteId": "id"}
			},
			{
				"name": "read",
				"requestUrl": "/notes/{{noteId}}",
				"expectedCode": 200,
				"responseFileName": "note_res.json",
				"expectEvents": []
			},
			{
				"name": "missing",
				"requestUrl": "/notes/nope",
				"expectedCode": 404
			}
		]
	}`)

	testkit.RunDir(t, notes(), dir)
}

func TestLoadAllFromDirSkipsBodyFiles(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.json", `{"name":"a","steps":[{"requestUrl":"/x","expectedCode":200}]}`)
	write(t, dir, "a_res.json", `[{"id":1}]`)
	write(t, dir, "b_req.json", `{"text":"x"}`)

	scenarios, errs := testkit.LoadAllFromDir(dir)
	assert.Empty(t, errs)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "GET", scenarios[0].Steps[0].RequestMethod)
	assert.Equal(t, "01_GET", scenarios[0].Steps[0].Name)
}

func TestLoadScenarioValidates(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"no_name.json":  `{"steps":[{"requestUrl":"/x","expectedCode":200}]}`,
		"no_steps.json": `{"name":"x","steps":[]}`,
		"no_url.json":   `{"name":"x","steps":[{"expectedCode":200}]}`,
		"no_code.json":  `{"name":"x","steps":[{"requestUrl":"/x"}]}`,
		"two_bodies.json": `{"name":"x","steps":[{"requestUrl":"/x","expectedCode":200,
			"requestFileName":"b.json","requestBody":{"a":1}}]}`,
	}
	for name, body := range cases {
		write(t, dir, name, body)
		_, err := testkit.LoadScenario(filepath.Join(dir, name))
		assert.Error(t, err, name)
	}
}

func TestDiffJSON(t *testing.T) {
	vars := testkit.Vars{"id": "abc"}
	decode := func(s string) any {
		var v any
		require.NoError(t, json.Unmarshal([]byte(s), &v))
		return v
	}

	assert.Empty(t, testkit.DiffJSON("",
		decode(`{"id":"{{id}}","createdAt":"{{*}}","total":21.00}`),
		decode(`{"id":"abc","createdAt":"2024-01-01T00:00:00Z","total":21,"extra":true}`), vars))

	assert.Len(t, testkit.DiffJSON("", decode(`{"id":"{{id}}"}`), decode(`{"id":"xyz"}`), vars), 1)
	assert.Len(t, testkit.DiffJSON("", decode(`{"id":"{{*}}"}`), decode(`{"id":null}`), vars), 1)
	assert.Len(t, testkit.DiffJSON("", decode(`{"missing":1}`), decode(`{}`), vars), 1)
	assert.Len(t, testkit.DiffJSON("", decode(`[1,2]`), decode(`[1]`), vars), 1)
}

func TestVars(t *testing.T) {
	vars := testkit.Vars{}
	require.NoError(t, vars.Capture([]byte(`{"id":"o1","orderItems":[{"id":"i1","quantity":2}]}`), map[string]string{
		"orderId": "id",
		"itemId":  "orderItems.0.id",
		"qty":     "orderItems.0.quantity",
	}))
	assert.Equal(t, testkit.Vars{"orderId": "o1", "itemId": "i1", "qty": "2"}, vars)
	assert.Equal(t, "/api/orders/o1/{{unknown}}/{{*}}", vars.Expand("/api/orders/{{orderId}}/{{unknown}}/{{*}}"))

	assert.Error(t, vars.Capture([]byte(`{"id":null}`), map[string]string{"x": "id"}))
	assert.Error(t, vars.Capture([]byte(`{"items":[]}`), map[string]string{"x": "items.0"}))
	assert.Error(t, vars.Capture([]byte(`not json`), map[string]string{"x": "id"}))
}
