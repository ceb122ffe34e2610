package prompt

import (
	"path"
	"strings"
	"unicode"
)

// FileCategory decides how much of a file's content reaches the prompt.
type FileCategory string

const (
	CategoryConfig FileCategory = "config"
	CategoryAuth   FileCategory = "auth"
	CategoryAPI    FileCategory = "api"
	CategoryOther  FileCategory = "other"
)

// Budget is the byte budget for a file of this category.
func (c FileCategory) Budget() int {
	switch c {
	case CategoryConfig:
		return 1500
	case CategoryAuth, CategoryAPI:
		return 3000
	default:
		return 2000
	}
}

var configNames = map[string]bool{
	"package.json":       true,
	"go.mod":             true,
	"go.sum":             true,
	"requirements.txt":   true,
	"pyproject.toml":     true,
	"setup.py":           true,
	"cargo.toml":         true,
	"pom.xml":            true,
	"build.gradle":       true,
	"tsconfig.json":      true,
	"dockerfile":         true,
	"docker-compose.yml": true,
	"makefile":           true,
	".env.example":       true,
}

var configExts = map[string]bool{
	".yaml": true, ".yml": true, ".toml": true, ".ini": true, ".cfg": true, ".conf": true,
}

var authTokens = []string{"auth", "oauth", "login", "logout", "signin", "signup", "session", "jwt", "passport", "permission", "rbac", "credential"}

var apiTokens = []string{"api", "apis", "route", "routes", "router", "controller", "controllers", "handler", "handlers", "endpoint", "endpoints", "openapi", "swagger", "graphql", "resolver", "resolvers"}

// Classify assigns path to a category. Auth wins over api, api over config,
// so "config/auth.js" is auth and "api/config.yaml" is api.
func Classify(p string) FileCategory {
	clean := strings.ToLower(path.Clean(strings.ReplaceAll(p, "\\", "/")))
	tokens := splitTokens(clean)

	if hasTokenPrefix(tokens, authTokens) {
		return CategoryAuth
	}
	if hasToken(tokens, apiTokens) {
		return CategoryAPI
	}
	base := path.Base(clean)
	if configNames[base] || configExts[path.Ext(base)] || strings.Contains(base, "config") || strings.HasPrefix(base, ".env") {
		return CategoryConfig
	}
	return CategoryOther
}

func splitTokens(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasToken(tokens, want []string) bool {
	for _, t := range tokens {
		for _, w := range want {
			if t == w {
				return true
			}
		}
	}
	return false
}

// hasTokenPrefix matches "auth" against "authservice" and "authentication".
func hasTokenPrefix(tokens, want []string) bool {
	for _, t := range tokens {
		if strings.HasPrefix(t, "author") && !strings.HasPrefix(t, "authoriz") {
			continue
		}
		for _, w := range want {
			if strings.HasPrefix(t, w) {
				return true
			}
		}
	}
	return false
}
