package mocks

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// GitHubServer is an in-memory stand-in for the GitHub REST endpoints the
// publisher and the repository fetcher use.
type GitHubServer struct {
	*httptest.Server

	mu       sync.Mutex
	seq      int
	files    map[string]fakeFile
	refs     map[string]string
	pulls    []map[string]any
	Puts     []map[string]any
	RefPosts []map[string]any
	Repo     map[string]any
	Tree     []map[string]any
	AuthSeen []string
}

type fakeFile struct {
	content []byte
	sha     string
}

func NewGitHubServer() *GitHubServer {
	s := &GitHubServer{
		files: map[string]fakeFile{},
		refs:  map[string]string{"main": "base-sha"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}", s.getRepo)
	mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{path...}", s.getContents)
	mux.HandleFunc("PUT /repos/{owner}/{repo}/contents/{path...}", s.putContents)
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/ref/{ref...}", s.getRef)
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/refs", s.createRef)
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/trees/{sha}", s.getTree)
	mux.HandleFunc("POST /repos/{owner}/{repo}/pulls", s.createPull)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.AuthSeen = append(s.AuthSeen, r.Header.Get("Authorization"))
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	return s
}

// BaseURL is the value to hand to githost.NewClient.
func (s *GitHubServer) BaseURL() string { return s.Server.URL + "/" }

// SeedFile stores content on branch and returns its blob SHA.
func (s *GitHubServer) SeedFile(branch, path, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	sha := fmt.Sprintf("blob-%d", s.seq)
	s.files[fileKey(branch, path)] = fakeFile{content: []byte(content), sha: sha}
	return sha
}

func (s *GitHubServer) SeedBranch(branch, sha string) {
	s.mu.Lock()
	s.refs[branch] = sha
	s.mu.Unlock()
}

func (s *GitHubServer) HasBranch(branch string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.refs[branch]
	return ok
}

func (s *GitHubServer) FileContent(branch, path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileKey(branch, path)]
	return string(f.content), ok
}

func (s *GitHubServer) PullCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pulls)
}

func (s *GitHubServer) LastPull() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pulls) == 0 {
		return nil
	}
	return s.pulls[len(s.pulls)-1]
}

func (s *GitHubServer) LastPut() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Puts) == 0 {
		return nil
	}
	return s.Puts[len(s.Puts)-1]
}

func fileKey(branch, path string) string {
	if branch == "" {
		branch = "main"
	}
	return branch + ":" + path
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
}

func (s *GitHubServer) getRepo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Repo == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, s.Repo)
}

func (s *GitHubServer) getContents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := r.PathValue("path")
	f, ok := s.files[fileKey(r.URL.Query().Get("ref"), path)]
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":     "file",
		"path":     path,
		"sha":      f.sha,
		"encoding": "base64",
		"content":  base64.StdEncoding.EncodeToString(f.content),
	})
}

func (s *GitHubServer) putContents(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Problems parsing JSON"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Puts = append(s.Puts, body)

	path := r.PathValue("path")
	branch, _ := body["branch"].(string)
	if _, ok := s.refs[branchOrMain(branch)]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Branch " + branch + " not found"})
		return
	}
	key := fileKey(branch, path)
	existing, exists := s.files[key]
	sha, hasSHA := body["sha"].(string)
	switch {
	case exists && !hasSHA:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": `Invalid request. "sha" wasn't supplied.`})
		return
	case exists && sha != existing.sha:
		writeJSON(w, http.StatusConflict, map[string]any{"message": path + " does not match " + sha})
		return
	case !exists && hasSHA:
		notFound(w)
		return
	}

	content, err := base64.StdEncoding.DecodeString(fmt.Sprint(body["content"]))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "content is not valid Base64"})
		return
	}
	s.seq++
	blob := fmt.Sprintf("blob-%d", s.seq)
	commit := fmt.Sprintf("commit-%d", s.seq)
	s.files[key] = fakeFile{content: content, sha: blob}
	s.refs[branchOrMain(branch)] = commit

	status := http.StatusOK
	if !exists {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"content": map[string]any{"path": path, "sha": blob, "html_url": s.URL + "/blob/" + path},
		"commit":  map[string]any{"sha": commit, "html_url": s.URL + "/commit/" + commit},
	})
}

func branchOrMain(b string) string {
	if b == "" {
		return "main"
	}
	return b
}

func (s *GitHubServer) getRef(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := strings.TrimPrefix(r.PathValue("ref"), "heads/")
	sha, ok := s.refs[ref]
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ref":    "refs/heads/" + ref,
		"object": map[string]any{"sha": sha, "type": "commit"},
	})
}

func (s *GitHubServer) createRef(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.RefPosts = append(s.RefPosts, body)
	ref, _ := body["ref"].(string)
	sha, _ := body["sha"].(string)
	name := strings.TrimPrefix(ref, "refs/heads/")
	if _, ok := s.refs[name]; ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "Reference already exists"})
		return
	}
	s.refs[name] = sha
	s.copyBranchFiles(sha, name)
	writeJSON(w, http.StatusCreated, map[string]any{"ref": ref, "object": map[string]any{"sha": sha}})
}

// copyBranchFiles gives a new branch the files of the branch it forked from.
func (s *GitHubServer) copyBranchFiles(fromSHA, to string) {
	for branch, head := range s.refs {
		if head != fromSHA || branch == to {
			continue
		}
		prefix := branch + ":"
		for key, f := range s.files {
			if strings.HasPrefix(key, prefix) {
				s.files[to+":"+strings.TrimPrefix(key, prefix)] = f
			}
		}
		return
	}
}

func (s *GitHubServer) getTree(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"sha": r.PathValue("sha"), "tree": s.Tree, "truncated": false})
}

func (s *GitHubServer) createPull(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()
	head, _ := body["head"].(string)
	if _, ok := s.refs[head]; !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "Validation Failed", "errors": []any{map[string]any{"resource": "PullRequest", "field": "head", "code": "invalid"}}})
		return
	}
	s.pulls = append(s.pulls, body)
	number := len(s.pulls)
	writeJSON(w, http.StatusCreated, map[string]any{
		"number":   number,
		"title":    body["title"],
		"body":     body["body"],
		"html_url": fmt.Sprintf("%s/pull/%d", s.URL, number),
	})
}
