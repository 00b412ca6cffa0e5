package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGitHubURL is the public GitHub REST endpoint.
const DefaultGitHubURL = "https://api.github.com"

// GitHubConfig locates the document in a repository.
type GitHubConfig struct {
	Owner   string
	Repo    string
	Path    string
	Branch  string
	Token   string
	BaseURL string
}

// GitHub stores the document as a file through the repository contents
// API. The blob sha serves as the revision marker.
type GitHub struct {
	cfg    GitHubConfig
	client *http.Client
	now    func() time.Time
}

// NewGitHub returns a GitHub remote. A nil client gets a default with a timeout.
func NewGitHub(cfg GitHubConfig, client *http.Client) *GitHub {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGitHubURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GitHub{cfg: cfg, client: client, now: time.Now}
}

func (g *GitHub) contentsURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		g.cfg.BaseURL, url.PathEscape(g.cfg.Owner), url.PathEscape(g.cfg.Repo),
		strings.TrimLeft(g.cfg.Path, "/"))
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

type putContentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

func (g *GitHub) do(ctx context.Context, method, u string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "zaloga")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github %s: %w", method, err)
	}
	return resp, nil
}

// statusError turns a non-success response into an error. 401 and 403
// without rate limiting mean the token is bad or lacks scope.
func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("github: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return unauthorized(err)
	case http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return fmt.Errorf("rate limited: %w", err)
		}
		return unauthorized(err)
	}
	return err
}

// Fetch implements Store.
func (g *GitHub) Fetch(ctx context.Context) (*Snapshot, error) {
	u := g.contentsURL()
	if g.cfg.Branch != "" {
		u += "?ref=" + url.QueryEscape(g.cfg.Branch)
	}

	resp, err := g.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var body contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding github contents: %w", err)
	}
	if body.Encoding != "" && body.Encoding != "base64" {
		return nil, fmt.Errorf("unsupported github content encoding %q", body.Encoding)
	}

	// GitHub wraps base64 content at 60 columns.
	raw := strings.Join(strings.Fields(body.Content), "")
	content, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding github content: %w", err)
	}
	return &Snapshot{Content: content, Revision: body.SHA}, nil
}

// Put implements Store. GitHub answers 409 when the sha is stale and 422
// when a sha is missing for an existing file; both mean another writer won.
func (g *GitHub) Put(ctx context.Context, content []byte, revision string) error {
	req := putContentsRequest{
		Message: fmt.Sprintf("Update %s - %s", g.cfg.Path, g.now().UTC().Format(time.RFC3339)),
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     revision,
		Branch:  g.cfg.Branch,
	}

	resp, err := g.do(ctx, http.MethodPut, g.contentsURL(), req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrRevisionMismatch
	}
	return statusError(resp)
}
