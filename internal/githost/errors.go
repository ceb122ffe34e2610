package githost

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/go-github/v56/github"

	"docsmith/internal/apperr"
)

// ErrBranchExists is wrapped by CreateBranch when the ref is already there.
var ErrBranchExists = errors.New("branch already exists")

// classify turns a go-github failure into a classified error that carries
// the host's own message.
func classify(op string, resp *github.Response, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &apperr.Error{Kind: apperr.KindRateLimit, Op: op, Message: rateErr.Message, Status: http.StatusForbidden, Err: err}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &apperr.Error{Kind: apperr.KindRateLimit, Op: op, Message: abuseErr.Message, Status: http.StatusForbidden, Err: err}
	}

	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	message := err.Error()
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		message = hostMessage(ghErr)
		if ghErr.Response != nil {
			status = ghErr.Response.StatusCode
		}
	}

	switch {
	case status == http.StatusNotFound:
		return &apperr.Error{Kind: apperr.KindNotFound, Op: op, Message: message, Status: status, Err: err}
	case status == http.StatusUnauthorized:
		return &apperr.Error{Kind: apperr.KindAuthentication, Op: op, Message: message, Status: status, Err: err}
	case status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(message), "already exists"):
		return &apperr.Error{Kind: apperr.KindRemoteHost, Op: op, Message: message, Status: status, Err: errors.Join(ErrBranchExists, err)}
	default:
		return &apperr.Error{Kind: apperr.KindRemoteHost, Op: op, Message: message, Status: status, Err: err}
	}
}

func hostMessage(e *github.ErrorResponse) string {
	msg := e.Message
	for _, detail := range e.Errors {
		if detail.Message != "" && !strings.Contains(msg, detail.Message) {
			msg += ": " + detail.Message
		}
	}
	if msg == "" {
		msg = e.Error()
	}
	return msg
}

func remoteError(op string, status int, message string) error {
	return &apperr.Error{Kind: apperr.KindRemoteHost, Op: op, Message: message, Status: status}
}

// IsBranchExists reports whether err came from creating an existing branch.
func IsBranchExists(err error) bool {
	return errors.Is(err, ErrBranchExists)
}
