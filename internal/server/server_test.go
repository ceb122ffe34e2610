package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"docsmith/internal/apperr"
	"docsmith/internal/database"
	"docsmith/internal/githost"
	"docsmith/internal/llm"
	"docsmith/internal/services"
	"docsmith/internal/source"
	"docsmith/internal/tests/mocks"
)

const testSecret = "test-secret"

type testEnv struct {
	URL       string
	completer *mocks.CompleterMock
	host      *mocks.HostMock
	tokens    []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	db, err := database.Init(database.Config{Path: filepath.Join(t.TempDir(), "docsmith.db"), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	env := &testEnv{completer: &mocks.CompleterMock{}, host: &mocks.HostMock{}}
	svc, err := services.NewServices(services.Deps{
		DB:        db,
		Completer: env.completer,
		Hosts: func(token string) (githost.Host, error) {
			env.tokens = append(env.tokens, token)
			return env.host, nil
		},
		Policy: llm.Policy{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, MaxRetries: 2},
		Logger: logger,
	})
	require.NoError(t, err)

	handler, err := New(Config{
		Services: svc,
		Sources:  source.NewResolver(nil, nil),
		Auth:     AuthConfig{JWTSecret: testSecret},
		Logger:   logger,
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	env.URL = srv.URL + DefaultBasePath
	return env
}

func token(t *testing.T, userID, provider, accessToken string) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Provider:         provider,
		AccessToken:      accessToken,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type result struct {
	Status  int
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func doJSON(t *testing.T, method, url string, body any, bearer string) result {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var out result
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	out.Status = res.StatusCode
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	res := doJSON(t, http.MethodGet, env.URL+"/health", nil, "")
	assert.Equal(t, http.StatusOK, res.Status)
	assert.True(t, res.Success)
	assert.JSONEq(t, `{"status":"ok"}`, string(res.Data))
}

func TestGenerate_CodeAnonymous(t *testing.T) {
	env := newTestEnv(t)
	env.completer.CompleteFunc = func(context.Context, llm.CompletionRequest) (string, error) {
		return "# Add\n\nAdds two numbers.", nil
	}

	res := doJSON(t, http.MethodPost, env.URL+"/generate", map[string]any{
		"method": "code", "data": "function add(a,b){return a+b}", "docType": "readme",
	}, "")
	require.Equal(t, http.StatusOK, res.Status, res.Error.Message)
	assert.True(t, res.Success)

	var gen struct {
		DocumentText string `json:"documentText"`
		DocumentID   string `json:"documentId"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &gen))
	assert.Equal(t, "# Add\n\nAdds two numbers.", gen.DocumentText)
	assert.Empty(t, gen.DocumentID)
	require.Equal(t, 1, env.completer.Calls())
	assert.Contains(t, env.completer.Requests[0].UserPrompt, "function add(a,b){return a+b}")
}

func TestGenerate_SavesForAuthenticatedUser(t *testing.T) {
	env := newTestEnv(t)
	env.completer.CompleteFunc = func(context.Context, llm.CompletionRequest) (string, error) {
		return "# Scripts\n\nRuns things.", nil
	}
	alice := token(t, "alice", "github", "gh-token")

	res := doJSON(t, http.MethodPost, env.URL+"/generate", map[string]any{
		"method":  "upload",
		"data":    "scripts",
		"files":   []map[string]string{{"path": "run.sh", "content": "echo hi"}},
		"docType": "guide",
		"title":   "Scripts guide",
	}, alice)
	require.Equal(t, http.StatusOK, res.Status, res.Error.Message)
	var gen struct {
		DocumentID string `json:"documentId"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &gen))
	require.NotEmpty(t, gen.DocumentID)

	list := doJSON(t, http.MethodGet, env.URL+"/documents", nil, alice)
	require.Equal(t, http.StatusOK, list.Status)
	var docs []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(list.Data, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "Scripts guide", docs[0].Title)

	versions := doJSON(t, http.MethodGet, env.URL+"/documents/"+gen.DocumentID+"/versions", nil, alice)
	require.Equal(t, http.StatusOK, versions.Status)
	var vs []map[string]any
	require.NoError(t, json.Unmarshal(versions.Data, &vs))
	assert.Len(t, vs, 1)

	bob := token(t, "bob", "github", "")
	other := doJSON(t, http.MethodGet, env.URL+"/documents/"+gen.DocumentID, nil, bob)
	assert.Equal(t, http.StatusNotFound, other.Status)
	assert.False(t, other.Success)
	assert.Equal(t, apperr.CodeNotFound, other.Error.Code)
}

func TestGenerate_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	cases := map[string]map[string]any{
		"unknown doc type": {"method": "code", "data": "x := 1", "docType": "poem"},
		"unknown method":   {"method": "svn", "data": "x := 1", "docType": "readme"},
		"blank code":       {"method": "code", "data": "   ", "docType": "readme"},
		"missing docType":  {"method": "code", "data": "x := 1"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			res := doJSON(t, http.MethodPost, env.URL+"/generate", body, "")
			assert.Equal(t, http.StatusBadRequest, res.Status)
			assert.False(t, res.Success)
			assert.Equal(t, apperr.CodeValidation, res.Error.Code)
			assert.NotEmpty(t, res.Error.Message)
		})
	}
	assert.Zero(t, env.completer.Calls())
}

func TestGenerate_RateLimitExhausted(t *testing.T) {
	env := newTestEnv(t)
	env.completer.CompleteFunc = func(context.Context, llm.CompletionRequest) (string, error) {
		return "", apperr.New(apperr.KindRateLimit, "llm.client", "rate limit exceeded")
	}

	res := doJSON(t, http.MethodPost, env.URL+"/generate", map[string]any{
		"method": "code", "data": "x := 1", "docType": "readme",
	}, "")
	assert.Equal(t, http.StatusTooManyRequests, res.Status)
	assert.Equal(t, apperr.CodeRateLimit, res.Error.Code)
	assert.Equal(t, 3, env.completer.Calls())
}

func TestReview(t *testing.T) {
	env := newTestEnv(t)
	env.completer.CompleteFunc = func(context.Context, llm.CompletionRequest) (string, error) {
		return "```json\n{\"score\": 87.6, \"summary\": \"Solid\", \"improvements\": [\"Add examples\"]}\n```", nil
	}

	res := doJSON(t, http.MethodPost, env.URL+"/review", map[string]any{"content": "# Title\n\nBody"}, "")
	require.Equal(t, http.StatusOK, res.Status, res.Error.Message)
	var review struct {
		Score           int      `json:"score"`
		Summary         string   `json:"summary"`
		MissingSections []string `json:"missingSections"`
		Improvements    []string `json:"improvements"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &review))
	assert.Equal(t, 88, review.Score)
	assert.Equal(t, "Solid", review.Summary)
	assert.NotNil(t, review.MissingSections)
	assert.Equal(t, []string{"Add examples"}, review.Improvements)
}

func TestReview_MalformedResponse(t *testing.T) {
	env := newTestEnv(t)
	env.completer.CompleteFunc = func(context.Context, llm.CompletionRequest) (string, error) {
		return "I think this documentation is quite good overall.", nil
	}

	res := doJSON(t, http.MethodPost, env.URL+"/review", map[string]any{"content": "# Title"}, "")
	assert.Equal(t, http.StatusBadGateway, res.Status)
	assert.Equal(t, apperr.CodeMalformedAIResponse, res.Error.Code)

	empty := doJSON(t, http.MethodPost, env.URL+"/review", map[string]any{"content": " "}, "")
	assert.Equal(t, http.StatusBadRequest, empty.Status)
	assert.Equal(t, apperr.CodeValidation, empty.Error.Code)
}

func TestPublish_RequiresGitHubSession(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{
		"mode": "commit", "owner": "acme", "repo": "widgets", "path": "README.md",
		"content": "# Widgets", "message": "docs: update README",
	}

	anonymous := doJSON(t, http.MethodPost, env.URL+"/publish", body, "")
	assert.Equal(t, http.StatusUnauthorized, anonymous.Status)
	assert.Equal(t, apperr.CodeUnauthorized, anonymous.Error.Code)

	google := doJSON(t, http.MethodPost, env.URL+"/publish", body, token(t, "alice", "google", "tok"))
	assert.Equal(t, http.StatusUnauthorized, google.Status)
	assert.Empty(t, env.host.Calls)
}

func TestPublish_Commit(t *testing.T) {
	env := newTestEnv(t)
	res := doJSON(t, http.MethodPost, env.URL+"/publish", map[string]any{
		"mode": "commit", "owner": "acme", "repo": "widgets", "docType": "readme",
		"content": "# Widgets", "message": "docs: update README",
	}, token(t, "alice", "github", "gh-token"))
	require.Equal(t, http.StatusOK, res.Status, res.Error.Message)

	var out struct {
		Mode   string `json:"mode"`
		Commit struct {
			SHA     string `json:"sha"`
			Path    string `json:"path"`
			Created bool   `json:"created"`
		} `json:"commit"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &out))
	assert.Equal(t, "commit", out.Mode)
	assert.Equal(t, "commit-sha", out.Commit.SHA)
	assert.Equal(t, "README.md", out.Commit.Path)
	assert.True(t, out.Commit.Created)
	assert.Equal(t, []string{"GetFile", "PutFile"}, env.host.Calls)
	assert.Equal(t, []string{"gh-token"}, env.tokens)
}

func TestPublish_PullRequestMissingBase(t *testing.T) {
	env := newTestEnv(t)
	env.host.GetBranchHeadFunc = func(context.Context, string, string, string) (string, error) {
		return "", &apperr.Error{Kind: apperr.KindNotFound, Op: "githost.GetBranchHead", Message: "Not Found", Status: 404}
	}

	res := doJSON(t, http.MethodPost, env.URL+"/publish", map[string]any{
		"mode": "pr", "owner": "acme", "repo": "widgets", "path": "docs/API.md", "base": "develop",
		"content": "# API", "message": "docs: API reference",
	}, token(t, "alice", "github", "gh-token"))
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, apperr.CodeNotFound, res.Error.Code)
	assert.Contains(t, res.Error.Message, "develop")
	assert.Equal(t, []string{"GetBranchHead"}, env.host.Calls)
}

func TestModels(t *testing.T) {
	env := newTestEnv(t)
	res := doJSON(t, http.MethodGet, env.URL+"/models", nil, "")
	require.Equal(t, http.StatusOK, res.Status)
	var groups []struct {
		ProviderID string `json:"providerId"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &groups))
	require.NotEmpty(t, groups)
	assert.Equal(t, "openai", groups[0].ProviderID)
}

func TestAuth_RejectsInvalidTokens(t *testing.T) {
	env := newTestEnv(t)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "mallory"},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	for _, bearer := range []string{"not-a-jwt", forged} {
		res := doJSON(t, http.MethodGet, env.URL+"/documents", nil, bearer)
		assert.Equal(t, http.StatusUnauthorized, res.Status)
		assert.False(t, res.Success)
		assert.Equal(t, apperr.CodeUnauthorized, res.Error.Code)
	}

	anonymous := doJSON(t, http.MethodGet, env.URL+"/documents", nil, "")
	assert.Equal(t, http.StatusUnauthorized, anonymous.Status)
}
