package remote

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGitHub serves a single file through a minimal contents API.
type fakeGitHub struct {
	mu      sync.Mutex
	token   string
	content []byte
	sha     string
	puts    int
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+f.token {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
		return
	}
	if r.URL.Path != "/repos/acme/stock/contents/data/sync-data.json" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if f.content == nil {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}
		enc := base64.StdEncoding.EncodeToString(f.content)
		// Wrap like GitHub does.
		var wrapped strings.Builder
		for len(enc) > 60 {
			wrapped.WriteString(enc[:60] + "\n")
			enc = enc[60:]
		}
		wrapped.WriteString(enc)
		json.NewEncoder(w).Encode(map[string]string{"content": wrapped.String(), "encoding": "base64", "sha": f.sha})

	case http.MethodPut:
		var req putContentsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if f.content != nil && req.SHA == "" {
			http.Error(w, `{"message":"sha wasn't supplied"}`, http.StatusUnprocessableEntity)
			return
		}
		if req.SHA != f.sha {
			http.Error(w, `{"message":"does not match"}`, http.StatusConflict)
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sum := sha1.Sum(data)
		created := f.content == nil
		f.content, f.sha = data, hex.EncodeToString(sum[:])
		f.puts++
		if created {
			w.WriteHeader(http.StatusCreated)
		}
		json.NewEncoder(w).Encode(map[string]any{"content": map[string]string{"sha": f.sha}})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func newGitHubFixture(t *testing.T, token string) (*fakeGitHub, *GitHub) {
	t.Helper()
	fake := &fakeGitHub{token: "secret"}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	g := NewGitHub(GitHubConfig{
		Owner:   "acme",
		Repo:    "stock",
		Path:    "data/sync-data.json",
		Token:   token,
		BaseURL: server.URL,
	}, server.Client())
	return fake, g
}

func TestGitHubContract(t *testing.T) {
	_, g := newGitHubFixture(t, "secret")
	contract(t, g)
}

func TestGitHubLargeContent(t *testing.T) {
	fake, g := newGitHubFixture(t, "secret")
	body := []byte(strings.Repeat(`{"k":"value"}`, 40))

	require.NoError(t, g.Put(t.Context(), body, ""))
	snap, err := g.Fetch(t.Context())
	require.NoError(t, err)
	assert.Equal(t, body, snap.Content)
	assert.Equal(t, fake.sha, snap.Revision)
}

func TestGitHubUnauthorized(t *testing.T) {
	_, g := newGitHubFixture(t, "wrong")

	_, err := g.Fetch(t.Context())
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = g.Put(t.Context(), []byte("{}"), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGitHubRateLimitIsNotAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
	}))
	defer server.Close()

	g := NewGitHub(GitHubConfig{Owner: "acme", Repo: "stock", Path: "x.json", BaseURL: server.URL}, server.Client())
	_, err := g.Fetch(t.Context())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}
