package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	"golang.org/x/mod/modfile"

	"docsmith/internal/models"
)

const (
	ManifestNPM    = "npm"
	ManifestGo     = "go"
	ManifestPython = "python"
)

// manifestOrder is the preference when a repository carries several.
var manifestOrder = []string{"package.json", "go.mod", "requirements.txt"}

// IsManifest reports whether ParseManifest understands p.
func IsManifest(p string) bool {
	base := strings.ToLower(path.Base(p))
	for _, m := range manifestOrder {
		if base == m {
			return true
		}
	}
	return false
}

// ParseManifest reads scripts and dependencies from a package.json, go.mod
// or requirements.txt. Other paths return nil without error.
func ParseManifest(p, content string) (*models.PackageManifest, error) {
	switch strings.ToLower(path.Base(p)) {
	case "package.json":
		return parsePackageJSON(content)
	case "go.mod":
		return parseGoMod(p, content)
	case "requirements.txt":
		return parseRequirements(content), nil
	default:
		return nil, nil
	}
}

// FindManifest returns the first parseable manifest, preferring top-level
// files and the order package.json, go.mod, requirements.txt.
func FindManifest(files []models.SourceFile) *models.PackageManifest {
	best, bestScore := (*models.PackageManifest)(nil), -1
	for _, f := range files {
		if !IsManifest(f.Path) {
			continue
		}
		m, err := ParseManifest(f.Path, f.Content)
		if err != nil || m == nil {
			continue
		}
		score := strings.Count(f.Path, "/")*len(manifestOrder) + manifestIndex(f.Path)
		if best == nil || score < bestScore {
			best, bestScore = m, score
		}
	}
	return best
}

func manifestIndex(p string) int {
	base := strings.ToLower(path.Base(p))
	for i, m := range manifestOrder {
		if base == m {
			return i
		}
	}
	return len(manifestOrder)
}

type packageJSON struct {
	Name            string            `json:"name"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func parsePackageJSON(content string) (*models.PackageManifest, error) {
	var pkg packageJSON
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return nil, fmt.Errorf("parse package.json: %w", err)
	}
	return &models.PackageManifest{
		Kind:            ManifestNPM,
		Name:            pkg.Name,
		Scripts:         nonNil(pkg.Scripts),
		Dependencies:    nonNil(pkg.Dependencies),
		DevDependencies: nonNil(pkg.DevDependencies),
	}, nil
}

func parseGoMod(p, content string) (*models.PackageManifest, error) {
	f, err := modfile.ParseLax(p, []byte(content), nil)
	if err != nil {
		return nil, fmt.Errorf("parse go.mod: %w", err)
	}
	m := &models.PackageManifest{
		Kind:            ManifestGo,
		Scripts:         map[string]string{},
		Dependencies:    map[string]string{},
		DevDependencies: map[string]string{},
	}
	if f.Module != nil {
		m.Name = f.Module.Mod.Path
	}
	for _, req := range f.Require {
		if req.Indirect {
			continue
		}
		m.Dependencies[req.Mod.Path] = req.Mod.Version
	}
	return m, nil
}

var requirementLine = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)(\[[^\]]*\])?\s*(.*)$`)

func parseRequirements(content string) *models.PackageManifest {
	m := &models.PackageManifest{
		Kind:            ManifestPython,
		Scripts:         map[string]string{},
		Dependencies:    map[string]string{},
		DevDependencies: map[string]string{},
	}
	s := bufio.NewScanner(strings.NewReader(content))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		if i := strings.Index(line, ";"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		match := requirementLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		version := strings.TrimSpace(match[3])
		if version == "" {
			version = "*"
		}
		m.Dependencies[strings.ToLower(match[1])] = version
	}
	return m
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
