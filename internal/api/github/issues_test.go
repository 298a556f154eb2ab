package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssues(t *testing.T, mux *http.ServeMux) *Issues {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	i, err := NewIssues("bot-token", "acme/tracker", 5*time.Second, WithAPIBaseURL(srv.URL))
	require.NoError(t, err)
	return i
}

func TestNewIssues_RejectsBadRepo(t *testing.T) {
	for _, repo := range []string{"", "acme", "/tracker", "acme/", "a/b/c"} {
		_, err := NewIssues("t", repo, time.Second)
		assert.Error(t, err, repo)
	}
}

func TestCreateIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/tracker/issues", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer bot-token", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Fix login", body["title"])
		assert.Equal(t, IssueBody, body["body"])
		writeJSON(w, http.StatusCreated, map[string]any{"number": 12, "title": body["title"], "state": "open"})
	})
	i := newTestIssues(t, mux)

	issue, err := i.CreateIssue(context.Background(), "Fix login")
	require.NoError(t, err)
	assert.Equal(t, 12, issue.Number)
	assert.Equal(t, "Fix login", issue.Title)
	assert.Equal(t, "acme/tracker", i.FullName())
}

func TestOpenIssues_SkipsPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/tracker/issues", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"number": 1, "title": "first", "state": "open"},
			{"number": 2, "title": "a PR", "state": "open", "pull_request": map[string]string{"url": "x"}},
			{"number": 3, "title": "third", "state": "open"},
		})
	})
	i := newTestIssues(t, mux)

	issues, err := i.OpenIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, 1, issues[0].Number)
	assert.Equal(t, 3, issues[1].Number)
}

func TestOpenIssues_FollowsPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/tracker/issues", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, http.StatusOK, []map[string]any{
				{"number": 2, "title": "second", "state": "open"},
			})
			return
		}
		next := fmt.Sprintf("http://%s%s?state=open&per_page=100&page=2", r.Host, r.URL.Path)
		w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next", <%s>; rel="last"`, next, next))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"number": 1, "title": "first", "state": "open"},
		})
	})
	i := newTestIssues(t, mux)

	issues, err := i.OpenIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, 1, issues[0].Number)
	assert.Equal(t, 2, issues[1].Number)
}

func TestCloseIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/tracker/issues/5", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "closed", body["state"])
		writeJSON(w, http.StatusOK, map[string]any{"number": 5, "state": "closed"})
	})
	mux.HandleFunc("/repos/acme/tracker/issues/404", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})
	i := newTestIssues(t, mux)

	require.NoError(t, i.CloseIssue(context.Background(), 5))
	require.Error(t, i.CloseIssue(context.Background(), 404))
}
