package models

import (
	"fmt"
	"time"
)

const DefaultBranch = "main"

// ProviderGitHub is the only auth provider allowed to publish.
const ProviderGitHub = "github"

// Session is what the auth collaborator hands to the publisher.
type Session struct {
	UserID      string `json:"userId"`
	AccessToken string `json:"-"`
	Provider    string `json:"provider"`
}

type CommitRequest struct {
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	Path    string `json:"path"`
	Content string `json:"content"`
	Message string `json:"message"`
	Branch  string `json:"branch,omitempty"`
}

type PullRequestRequest struct {
	CommitRequest
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Base  string `json:"base,omitempty"`
	Head  string `json:"head,omitempty"`
}

// EphemeralBranchName builds the docs/<doctype>-<timestamp> head branch.
func EphemeralBranchName(docType DocumentType, now time.Time) string {
	kind := string(docType)
	if kind == "" {
		kind = "update"
	}
	return fmt.Sprintf("docs/%s-%d", kind, now.Unix())
}

// RemoteFileHandle is the existence/SHA state of a file on the host. An
// empty ContentSHA means the file does not exist yet.
type RemoteFileHandle struct {
	Path       string `json:"path"`
	ContentSHA string `json:"contentSha,omitempty"`
}

func (h *RemoteFileHandle) Exists() bool {
	return h != nil && h.ContentSHA != ""
}

type CommitResult struct {
	SHA     string `json:"sha"`
	URL     string `json:"url,omitempty"`
	Path    string `json:"path"`
	Branch  string `json:"branch"`
	Created bool   `json:"created"`
}

type PullRequestResult struct {
	Number int           `json:"number"`
	URL    string        `json:"url"`
	Title  string        `json:"title"`
	Head   string        `json:"head"`
	Base   string        `json:"base"`
	Commit *CommitResult `json:"commit,omitempty"`
}

type PublishMode string

const (
	PublishCommit      PublishMode = "commit"
	PublishPullRequest PublishMode = "pr"
)

// PublishRequest is the transport-independent publish call.
type PublishRequest struct {
	Mode    PublishMode  `json:"mode"`
	DocType DocumentType `json:"docType,omitempty"`
	PullRequestRequest
}

// PublishResult carries exactly one of Commit or PullRequest.
type PublishResult struct {
	Mode        PublishMode        `json:"mode"`
	Commit      *CommitResult      `json:"commit,omitempty"`
	PullRequest *PullRequestResult `json:"pullRequest,omitempty"`
}

// PublishState names each step of a publish action.
type PublishState string

const (
	StateIdle           PublishState = "idle"
	StateBranchPending  PublishState = "branch_pending"
	StateFetchingHandle PublishState = "fetching_handle"
	StateCreating       PublishState = "creating"
	StateUpdating       PublishState = "updating"
	StateCommitting     PublishState = "committing"
	StateCommitted      PublishState = "committed"
	StatePRCreating     PublishState = "pr_creating"
	StatePRCreated      PublishState = "pr_created"
	StateFailed         PublishState = "failed"
)
