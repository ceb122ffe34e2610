// Package recovery extracts a review result from free-form model output. It
// runs an ordered list of stages; each stage applies pure string transforms
// and then tries to parse, and later stages only run when earlier ones fail.
package recovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"docsmith/internal/apperr"
	"docsmith/internal/models"
)

const opParse = "recovery.Parse"

// Stage is a named sequence of transforms followed by a parse.
type Stage struct {
	Name       string
	Transforms []Transform
}

func (s Stage) Apply(raw string) string {
	out := raw
	for _, t := range s.Transforms {
		out = t(out)
	}
	return out
}

// Stages is the fallback chain in the order it runs.
var Stages = []Stage{
	{Name: "direct", Transforms: []Transform{StripCodeFences}},
	{Name: "repair", Transforms: []Transform{SliceObject, RemoveTrailingCommas, EscapeControlChars}},
	{Name: "aggressive", Transforms: []Transform{StripCodeFences, AggressiveSlice, CloseDanglingQuotes, RemoveTrailingCommas, EscapeControlChars, BalanceBrackets}},
}

var errMissingScore = errors.New("review is missing a numeric score")

// Parse returns the first review that any stage can decode and validate,
// trying the whole text first and then each later '{'. When every attempt
// fails the error is MALFORMED_AI_RESPONSE with a bounded preview.
func Parse(raw string) (*models.ReviewResult, error) {
	if !strings.Contains(raw, "{") {
		return nil, apperr.MalformedAIResponse(opParse, raw, errors.New("no JSON object in response"))
	}

	var firstErr error
	for _, candidate := range candidates(raw) {
		for _, stage := range Stages {
			result, err := decode(stage.Apply(candidate))
			if err == nil {
				return result, nil
			}
			if firstErr == nil || candidate == raw {
				firstErr = fmt.Errorf("%s stage: %w", stage.Name, err)
			}
		}
	}
	return nil, apperr.MalformedAIResponse(opParse, raw, firstErr)
}

// maxObjectStarts bounds how many later '{' positions Parse retries from.
const maxObjectStarts = 32

// candidates returns raw followed by the suffixes starting at each '{' after
// the first, so braces in leading commentary cannot hide the real object.
func candidates(raw string) []string {
	out := []string{raw}
	first := strings.IndexByte(raw, '{')
	for i := first + 1; i < len(raw) && len(out) <= maxObjectStarts; i++ {
		if raw[i] == '{' {
			out = append(out, raw[i:])
		}
	}
	return out
}

func decode(candidate string) (*models.ReviewResult, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(candidate)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("response is not a JSON object")
	}

	score, ok := numeric(obj["score"])
	if !ok {
		return nil, errMissingScore
	}

	return &models.ReviewResult{
		Score:            clampScore(score),
		Summary:          strings.TrimSpace(textOf(obj["summary"])),
		MissingSections:  stringList(field(obj, "missingSections", "missing_sections")),
		OutdatedWarnings: stringList(field(obj, "outdatedWarnings", "outdated_warnings")),
		Improvements:     stringList(field(obj, "improvements", "suggestions")),
		Positives:        stringList(field(obj, "positives", "strengths")),
	}, nil
}

func field(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v
		}
	}
	return nil
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func clampScore(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	r := math.Round(f)
	switch {
	case r < 0:
		return 0
	case r > 100:
		return 100
	default:
		return int(r)
	}
}

// stringList flattens v into non-blank, de-duplicated text entries in order.
func stringList(v any) []string {
	out := []string{}
	seen := map[string]bool{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	switch items := v.(type) {
	case nil:
	case []any:
		for _, item := range items {
			add(textOf(item))
		}
	default:
		add(textOf(items))
	}
	return out
}

var preferredKeys = []string{"title", "section", "name", "issue", "message", "text", "suggestion", "description", "detail"}

// textOf renders scalars as text and flattens objects to "a - b" or "k: v".
func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(textOf(item)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		var parts []string
		for _, k := range preferredKeys {
			if s := strings.TrimSpace(textOf(t[k])); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " - ")
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s := strings.TrimSpace(textOf(t[k])); s != "" {
				parts = append(parts, k+": "+s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
