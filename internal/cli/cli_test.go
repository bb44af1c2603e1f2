package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erauner12/toolbridge-resources/internal/auth"
	"github.com/erauner12/toolbridge-resources/internal/collection"
	"github.com/erauner12/toolbridge-resources/internal/httpapi"
)

const testCollection = "todos"

// newTestAPI serves the collection API over an in-memory repository seeded
// with items. fail, when set, may short-circuit a request with a 500.
func newTestAPI(t *testing.T, fail func(*http.Request) bool, items ...map[string]any) (*httptest.Server, *collection.Memory) {
	t.Helper()

	repo := collection.NewMemory()
	for _, item := range items {
		_, err := repo.Create(context.Background(), testCollection, item)
		require.NoError(t, err)
	}

	srv := &httpapi.Server{Repo: repo, Storage: "memory", Registry: prometheus.NewRegistry()}
	router := srv.Routes(auth.JWTCfg{DevMode: true})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail != nil && fail(r) {
			http.Error(w, `{"error":"boom!"}`, http.StatusInternalServerError)
			return
		}
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts, repo
}

func execute(t *testing.T, ts *httptest.Server, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--dev", "--url", ts.URL, "--collection", testCollection}, args...))
	err := cmd.Execute()
	return out.String(), err
}

type jsonOutput struct {
	Status string         `json:"status"`
	Data   []ResourceView `json:"data"`
	Error  *CLIError      `json:"error"`
}

func decodeOutput(t *testing.T, out string) jsonOutput {
	t.Helper()
	var o jsonOutput
	require.NoError(t, json.Unmarshal([]byte(out), &o), "output: %s", out)
	return o
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "resourcectl", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"fetch", "create", "update", "destroy", "lookup"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	for _, name := range []string{"config", "dev", "debug", "log-level", "url", "collection", "index"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	ts, _ := newTestAPI(t, nil)
	_, err := execute(t, ts, "fetch", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestMissingSecretOutsideDevMode(t *testing.T) {
	t.Setenv("RESOURCES_JWT_SECRET", "")
	t.Setenv("RESOURCES_DEV_MODE", "")

	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"fetch"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFetch(t *testing.T) {
	ts, _ := newTestAPI(t, nil, map[string]any{"a": "b"}, map[string]any{"b": "c"})

	out, err := execute(t, ts, "fetch", "--format", "json")
	require.NoError(t, err)

	o := decodeOutput(t, out)
	assert.Equal(t, "ok", o.Status)
	require.Len(t, o.Data, 2)
	assert.Equal(t, map[string]any{"id": float64(1), "a": "b"}, map[string]any(o.Data[0].Attributes))
	assert.Equal(t, map[string]any{"id": float64(2), "b": "c"}, map[string]any(o.Data[1].Attributes))
	assert.NotEqual(t, o.Data[0].LocalID, o.Data[1].LocalID)
}

func TestFetchTextEmpty(t *testing.T) {
	ts, _ := newTestAPI(t, nil)

	out, err := execute(t, ts, "fetch")
	require.NoError(t, err)
	assert.Equal(t, "(no resources)\n", out)
}

func TestFetchFailure(t *testing.T) {
	ts, _ := newTestAPI(t, func(*http.Request) bool { return true })

	out, err := execute(t, ts, "fetch", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	o := decodeOutput(t, out)
	assert.Equal(t, "error", o.Status)
	require.NotNil(t, o.Error)
	assert.Equal(t, "fetching", o.Error.Label)
}

func TestCreate(t *testing.T) {
	for _, optimistic := range []bool{false, true} {
		name := "pessimistic"
		if optimistic {
			name = "optimistic"
		}
		t.Run(name, func(t *testing.T) {
			ts, repo := newTestAPI(t, nil)

			args := []string{"create", `{"title":"a"}`, `{"title":"b"}`, `{"title":"c"}`, "--format", "json"}
			if optimistic {
				args = append(args, "--optimistic")
			}
			out, err := execute(t, ts, args...)
			require.NoError(t, err)

			o := decodeOutput(t, out)
			require.Len(t, o.Data, 3)
			titles := make([]any, 0, 3)
			for _, v := range o.Data {
				assert.Contains(t, v.Attributes, "id")
				assert.Empty(t, v.Pending)
				titles = append(titles, v.Attributes["title"])
			}
			assert.Equal(t, []any{"a", "b", "c"}, titles)

			page, err := repo.List(context.Background(), testCollection, collection.Cursor{}, 10)
			require.NoError(t, err)
			assert.Len(t, page.Items, 3)
		})
	}
}

func TestCreateInvalidJSON(t *testing.T) {
	ts, _ := newTestAPI(t, nil)

	_, err := execute(t, ts, "create", `{"title":`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCreateFailure(t *testing.T) {
	ts, _ := newTestAPI(t, func(r *http.Request) bool { return r.Method == http.MethodPost })

	out, err := execute(t, ts, "create", `{"title":"a"}`, "--optimistic")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [creating]")
}

func TestUpdate(t *testing.T) {
	ts, repo := newTestAPI(t, nil, map[string]any{"title": "a", "done": false})

	out, err := execute(t, ts, "update", "1", `{"done":true}`, "--patch", "--optimistic", "--format", "json")
	require.NoError(t, err)

	o := decodeOutput(t, out)
	require.Len(t, o.Data, 1)
	assert.Equal(t, map[string]any{"id": float64(1), "title": "a", "done": true}, map[string]any(o.Data[0].Attributes))

	stored, err := repo.Get(context.Background(), testCollection, 1)
	require.NoError(t, err)
	assert.Equal(t, true, stored["done"])
	assert.Equal(t, "a", stored["title"])
}

func TestUpdateReplace(t *testing.T) {
	ts, repo := newTestAPI(t, nil, map[string]any{"title": "a", "done": false})

	_, err := execute(t, ts, "update", "1", `{"title":"b"}`)
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), testCollection, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", stored["title"])
	assert.NotContains(t, stored, "done")
}

func TestUpdateUnknownID(t *testing.T) {
	ts, _ := newTestAPI(t, nil, map[string]any{"title": "a"})

	_, err := execute(t, ts, "update", "99", `{"title":"b"}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUpdateFailure(t *testing.T) {
	ts, repo := newTestAPI(t, func(r *http.Request) bool { return r.Method == http.MethodPut }, map[string]any{"title": "a"})

	out, err := execute(t, ts, "update", "1", `{"title":"b"}`, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	o := decodeOutput(t, out)
	require.NotNil(t, o.Error)
	assert.Equal(t, "updating", o.Error.Label)

	stored, err := repo.Get(context.Background(), testCollection, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", stored["title"])
}

func TestDestroy(t *testing.T) {
	ts, repo := newTestAPI(t, nil, map[string]any{"title": "a"}, map[string]any{"title": "b"})

	out, err := execute(t, ts, "destroy", "1", "--optimistic")
	require.NoError(t, err)
	assert.Equal(t, "destroyed 1 (1 remaining)\n", out)

	_, err = repo.Get(context.Background(), testCollection, 1)
	assert.ErrorIs(t, err, collection.ErrNotFound)
}

func TestDestroyFailure(t *testing.T) {
	ts, _ := newTestAPI(t, func(r *http.Request) bool { return r.Method == http.MethodDelete }, map[string]any{"title": "a"})

	_, err := execute(t, ts, "destroy", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestLookup(t *testing.T) {
	ts, _ := newTestAPI(t, nil,
		map[string]any{"owner": "alice", "title": "a"},
		map[string]any{"owner": "bob", "title": "b"},
		map[string]any{"owner": "alice", "title": "c"},
	)

	out, err := execute(t, ts, "lookup", "owner", "alice", "--format", "json")
	require.NoError(t, err)

	o := decodeOutput(t, out)
	require.Len(t, o.Data, 2)
	assert.Equal(t, "a", o.Data[0].Attributes["title"])
	assert.Equal(t, "c", o.Data[1].Attributes["title"])

	// ids are numbers on the wire; the string argument resolves to the same key
	out, err = execute(t, ts, "lookup", "id", "2", "--format", "json")
	require.NoError(t, err)
	o = decodeOutput(t, out)
	require.Len(t, o.Data, 1)
	assert.Equal(t, "bob", o.Data[0].Attributes["owner"])
}
