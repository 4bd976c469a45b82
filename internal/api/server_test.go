package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumarlokesh/autocomplete/internal/api"
	"github.com/kumarlokesh/autocomplete/internal/service"
	"github.com/kumarlokesh/autocomplete/internal/store"
	"github.com/kumarlokesh/autocomplete/internal/trie"
)

// brokenStore fails every write and health check.
type brokenStore struct {
	store.Store
}

func (brokenStore) Add(ctx context.Context, word string) error    { return errors.New("disk full") }
func (brokenStore) Delete(ctx context.Context, word string) error { return errors.New("disk full") }
func (brokenStore) Ping(ctx context.Context) error                { return errors.New("unreachable") }

func newTestServer(t *testing.T, st store.Store, opts api.Options) (*httptest.Server, *service.Service) {
	t.Helper()

	svc, err := service.New(trie.New(), st, service.Options{MaxLimit: 100, CacheSize: 16}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))

	server := api.NewServer(":0", svc, opts, zerolog.Nop())
	testServer := httptest.NewServer(server.Handler())
	t.Cleanup(testServer.Close)
	return testServer, svc
}

func doJSON(t *testing.T, client *http.Client, method, u, body string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, u, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeMap(t *testing.T, data []byte) map[string]string {
	t.Helper()

	var m map[string]string
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestAPI(t *testing.T) {
	st := store.NewMemoryStore("app", "apple", "application", "banana")
	testServer, _ := newTestServer(t, st, api.Options{CORSOrigins: []string{"*"}})
	client := testServer.Client()

	search := func(t *testing.T, query string) (*http.Response, []string) {
		t.Helper()
		resp, data := doJSON(t, client, http.MethodGet, testServer.URL+"/api/search?"+query, "")
		var words []string
		if resp.StatusCode == http.StatusOK {
			require.NoError(t, json.Unmarshal(data, &words))
		}
		return resp, words
	}

	t.Run("Search", func(t *testing.T) {
		t.Run("prefix", func(t *testing.T) {
			resp, words := search(t, "q=app")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			assert.Equal(t, []string{"app", "apple", "application"}, words)
		})

		t.Run("limit", func(t *testing.T) {
			resp, words := search(t, "q=app&limit=2")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, []string{"app", "apple"}, words)
		})

		t.Run("no match is an empty array", func(t *testing.T) {
			resp, data := doJSON(t, client, http.MethodGet, testServer.URL+"/api/search?q=zzz", "")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `[]`, string(data))
		})

		t.Run("missing q lists everything", func(t *testing.T) {
			resp, words := search(t, "")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, []string{"app", "apple", "application", "banana"}, words)
		})

		t.Run("unicode prefix", func(t *testing.T) {
			resp, data := doJSON(t, client, http.MethodPost, testServer.URL+"/api/add-word", `{"text":"日本語"}`)
			require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

			resp, words := search(t, "q="+url.QueryEscape("日本"))
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, []string{"日本語"}, words)
		})

		t.Run("bad limit", func(t *testing.T) {
			for _, q := range []string{"q=a&limit=abc", "q=a&limit=-3"} {
				resp, _ := search(t, q)
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
			}
		})

		t.Run("malformed prefix", func(t *testing.T) {
			resp, _ := search(t, "q=%ff")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	})

	t.Run("Add word", func(t *testing.T) {
		t.Run("success", func(t *testing.T) {
			resp, data := doJSON(t, client, http.MethodPost, testServer.URL+"/api/add-word", `{"text":"apricot"}`)
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
			assert.Equal(t, "Word added successfully", decodeMap(t, data)["message"])

			_, words := search(t, "q=apr")
			assert.Equal(t, []string{"apricot"}, words)

			stored, err := st.LoadAll(context.Background())
			require.NoError(t, err)
			assert.Contains(t, stored, "apricot")
		})

		t.Run("missing text", func(t *testing.T) {
			for _, body := range []string{`{}`, `{"text":""}`, `not json`, ``} {
				resp, data := doJSON(t, client, http.MethodPost, testServer.URL+"/api/add-word", body)
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
				assert.Equal(t, "Word is required", decodeMap(t, data)["error"], body)
			}
		})

		t.Run("invalid word", func(t *testing.T) {
			body := fmt.Sprintf(`{"text":%q}`, strings.Repeat("x", trie.DefaultMaxWordLength+1))
			resp, _ := doJSON(t, client, http.MethodPost, testServer.URL+"/api/add-word", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	})

	t.Run("Delete word", func(t *testing.T) {
		t.Run("success", func(t *testing.T) {
			resp, data := doJSON(t, client, http.MethodDelete, testServer.URL+"/api/delete-word", `{"text":"apple"}`)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "Word deleted successfully", decodeMap(t, data)["message"])

			_, words := search(t, "q=app")
			assert.Equal(t, []string{"app", "application"}, words)
		})

		t.Run("absent word", func(t *testing.T) {
			resp, _ := doJSON(t, client, http.MethodDelete, testServer.URL+"/api/delete-word", `{"text":"nothing"}`)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})

		t.Run("missing text", func(t *testing.T) {
			resp, data := doJSON(t, client, http.MethodDelete, testServer.URL+"/api/delete-word", `{}`)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Word is required", decodeMap(t, data)["error"])
		})
	})

	t.Run("Stats", func(t *testing.T) {
		resp, data := doJSON(t, client, http.MethodGet, testServer.URL+"/api/stats", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var stats service.Stats
		require.NoError(t, json.Unmarshal(data, &stats))
		assert.Equal(t, 5, stats.Words)
		assert.Positive(t, stats.Nodes)
	})

	t.Run("Health", func(t *testing.T) {
		resp, data := doJSON(t, client, http.MethodGet, testServer.URL+"/health", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", decodeMap(t, data)["status"])
	})

	t.Run("Routing", func(t *testing.T) {
		resp, _ := doJSON(t, client, http.MethodGet, testServer.URL+"/nope", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, _ = doJSON(t, client, http.MethodGet, testServer.URL+"/api/add-word", "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("CORS preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, testServer.URL+"/api/add-word", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")
	})
}

func TestAPI_BodyLimit(t *testing.T) {
	svc, err := service.New(trie.New(), store.NewMemoryStore(), service.Options{}, zerolog.Nop())
	require.NoError(t, err)
	server := api.NewServer(":0", svc, api.Options{MaxBodyBytes: 64}, zerolog.Nop())

	body := `{"text":"` + strings.Repeat("a", 128) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/add-word", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, svc.Stats().Words)
}

func TestAPI_CORSAllowList(t *testing.T) {
	testServer, _ := newTestServer(t, store.NewMemoryStore(), api.Options{CORSOrigins: []string{"https://example.com"}})

	get := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, testServer.URL+"/api/search?q=a", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		resp, err := testServer.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.Equal(t, "https://example.com", get("https://example.com").Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, get("https://evil.example").Header.Get("Access-Control-Allow-Origin"))
}

func TestAPI_StoreFailures(t *testing.T) {
	st := brokenStore{Store: store.NewMemoryStore("apple")}
	testServer, svc := newTestServer(t, st, api.Options{})
	client := testServer.Client()

	t.Run("add", func(t *testing.T) {
		resp, data := doJSON(t, client, http.MethodPost, testServer.URL+"/api/add-word", `{"text":"pear"}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Failed to add word", decodeMap(t, data)["error"])

		words, err := svc.Search("pear", 0)
		require.NoError(t, err)
		assert.Empty(t, words)
	})

	t.Run("delete rolls back", func(t *testing.T) {
		resp, _ := doJSON(t, client, http.MethodDelete, testServer.URL+"/api/delete-word", `{"text":"apple"}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		words, err := svc.Search("app", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"apple"}, words)
	})

	t.Run("health", func(t *testing.T) {
		resp, data := doJSON(t, client, http.MethodGet, testServer.URL+"/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "unavailable", decodeMap(t, data)["status"])
	})
}

func TestAPI_Reload(t *testing.T) {
	st := store.NewMemoryStore("apple")
	testServer, _ := newTestServer(t, st, api.Options{})
	client := testServer.Client()

	// Prime the search cache
	resp, data := doJSON(t, client, http.MethodGet, testServer.URL+"/api/search?q=ap", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["apple"]`, string(data))

	// Changes made behind the service's back
	require.NoError(t, st.Add(context.Background(), "apricot"))
	require.NoError(t, st.Delete(context.Background(), "apple"))

	resp, data = doJSON(t, client, http.MethodPost, testServer.URL+"/api/reload", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var body struct {
		Message string `json:"message"`
		Words   int    `json:"words"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "Index reloaded", body.Message)
	assert.Equal(t, 1, body.Words)

	resp, data = doJSON(t, client, http.MethodGet, testServer.URL+"/api/search?q=ap", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["apricot"]`, string(data))

	resp, _ = doJSON(t, client, http.MethodGet, testServer.URL+"/api/reload", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

// unloadableStore loads once and then fails every reload.
type unloadableStore struct {
	store.Store
	loads int
}

func (u *unloadableStore) LoadAll(ctx context.Context) ([]string, error) {
	u.loads++
	if u.loads > 1 {
		return nil, errors.New("unreachable")
	}
	return u.Store.LoadAll(ctx)
}

func TestAPI_ReloadFailure(t *testing.T) {
	testServer, _ := newTestServer(t, &unloadableStore{Store: store.NewMemoryStore("apple")}, api.Options{})

	resp, data := doJSON(t, testServer.Client(), http.MethodPost, testServer.URL+"/api/reload", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to reload index", decodeMap(t, data)["error"])

	resp, data = doJSON(t, testServer.Client(), http.MethodGet, testServer.URL+"/api/search?q=ap", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["apple"]`, string(data))
}

func TestServer_StartShutdown(t *testing.T) {
	svc, err := service.New(trie.New(), store.NewMemoryStore("go"), service.Options{}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))

	server := api.NewServer("127.0.0.1:0", svc, api.Options{}, zerolog.Nop())

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	require.Eventually(t, func() bool {
		return !strings.HasSuffix(server.Addr(), ":0")
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + server.Addr() + "/api/search?q=g")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["go"]`, string(bytes.TrimSpace(body)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
