package client

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"docsmith/internal/apperr"
)

// Matches "status code: 429", "Error 400, Message: ..." and `POST "url": 401 Unauthorized`.
var statusPattern = regexp.MustCompile(`(?i)(?:status(?:\s*code)?[:= ]+|error code[:= ]+|^error |": )(\d{3})\b`)

var contextTooLargePhrases = []string{
	"context_length_exceeded",
	"maximum context length",
	"prompt is too long",
	"context window",
	"too many tokens",
	"input token count",
}

var authPhrases = []string{"invalid api key", "invalid x-api-key", "incorrect api key", "api key not valid", "authentication", "unauthorized", "permission denied"}

var ratePhrases = []string{"rate limit", "rate_limit", "too many requests", "resource_exhausted", "quota", "overloaded"}

var validationPhrases = []string{"invalid_request", "invalid request", "bad request", "invalid_argument"}

// ClassifyError maps a provider SDK error to a classified error. Context
// cancellation passes through as internal so the retry loop stops on ctx.
func ClassifyError(err error) *apperr.Error {
	if err == nil {
		return nil
	}
	var classified *apperr.Error
	if errors.As(err, &classified) {
		return classified
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindInternal, opComplete, err)
	}

	msg := strings.ToLower(err.Error())
	status := statusOf(err)

	// Context-length checks come first: providers report them as 400s.
	if containsAny(msg, contextTooLargePhrases) {
		return withStatus(apperr.Wrap(apperr.KindContextTooLarge, opComplete, err), status)
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || containsAny(msg, authPhrases):
		return withStatus(apperr.Wrap(apperr.KindAuthentication, opComplete, err), status)
	case status == http.StatusTooManyRequests || containsAny(msg, ratePhrases):
		return withStatus(apperr.Wrap(apperr.KindRateLimit, opComplete, err), status)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || containsAny(msg, validationPhrases):
		return withStatus(apperr.Wrap(apperr.KindValidation, opComplete, err), status)
	default:
		return withStatus(apperr.Wrap(apperr.KindInternal, opComplete, err), status)
	}
}

func statusOf(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return code
		}
	}
	return 0
}

func withStatus(e *apperr.Error, status int) *apperr.Error {
	e.Status = status
	return e
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
