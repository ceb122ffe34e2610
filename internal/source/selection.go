package source

import (
	"path"
	"sort"
	"strings"

	"docsmith/internal/prompt"
)

const (
	// MaxFiles bounds how many files are read into a descriptor.
	MaxFiles = 25
	// MaxFileSize skips files larger than this many bytes.
	MaxFileSize = 100_000
	// MaxStructureEntries bounds the directory listing.
	MaxStructureEntries = 400
)

// ignoredDirs are never listed or read.
var ignoredDirs = map[string]bool{
	"node_modules": true, "__pycache__": true, ".git": true, "dist": true, "build": true,
	"target": true, "vendor": true, "bin": true, "obj": true, ".idea": true, ".vscode": true,
	"coverage": true, "tmp": true, "temp": true, ".cache": true, ".venv": true, "venv": true,
	".next": true, ".nuxt": true, "out": true, "third_party": true,
}

var binaryExts = map[string]bool{
	".zip": true, ".tar": true, ".gz": true, ".exe": true, ".dll": true, ".so": true, ".class": true,
	".jar": true, ".war": true, ".7z": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".bin": true, ".dat": true, ".obj": true, ".o": true, ".a": true,
	".lib": true, ".wasm": true, ".pyc": true, ".pyo": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".ico": true, ".webp": true, ".bmp": true, ".svg": true, ".pdf": true, ".mp4": true,
	".mp3": true, ".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".lock": true,
}

var lockFiles = map[string]bool{
	"package-lock.json": true, "yarn.lock": true, "pnpm-lock.yaml": true, "go.sum": true,
	"poetry.lock": true, "cargo.lock": true, "composer.lock": true, "gemfile.lock": true,
}

var manifestFiles = map[string]bool{
	"package.json": true, "go.mod": true, "requirements.txt": true, "pyproject.toml": true,
	"cargo.toml": true, "pom.xml": true, "build.gradle": true, "gemfile": true, "composer.json": true,
}

var entryPoints = map[string]bool{
	"main.go": true, "main.py": true, "app.py": true, "manage.py": true, "index.js": true,
	"index.ts": true, "server.js": true, "server.ts": true, "app.js": true, "app.ts": true,
	"main.ts": true, "main.js": true, "main.rs": true, "lib.rs": true, "program.cs": true,
}

var sourceExts = map[string]bool{
	".go": true, ".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true,
	".cjs": true, ".rs": true, ".java": true, ".kt": true, ".rb": true, ".php": true, ".cs": true,
	".swift": true, ".c": true, ".h": true, ".cpp": true, ".hpp": true, ".scala": true, ".vue": true,
	".svelte": true, ".sql": true, ".graphql": true, ".proto": true, ".sh": true,
}

// Skip reports whether p is vendored, generated, binary or a lock file.
func Skip(p string) bool {
	p = strings.ReplaceAll(p, "\\", "/")
	for _, dir := range strings.Split(path.Dir(p), "/") {
		if ignoredDirs[dir] {
			return true
		}
	}
	base := strings.ToLower(path.Base(p))
	if lockFiles[base] || binaryExts[path.Ext(base)] {
		return true
	}
	return strings.HasSuffix(base, ".min.js") || strings.HasSuffix(base, ".min.css")
}

// rank orders candidates: manifests, entry points, README, then auth, api
// and config files, then other source. -1 means not worth reading.
func rank(p string) int {
	base := strings.ToLower(path.Base(p))
	switch {
	case manifestFiles[base]:
		return 0
	case entryPoints[base]:
		return 1
	case strings.HasPrefix(base, "readme"):
		return 2
	}
	switch prompt.Classify(p) {
	case prompt.CategoryAuth, prompt.CategoryAPI:
		return 3
	case prompt.CategoryConfig:
		return 4
	}
	if sourceExts[path.Ext(base)] {
		if strings.Contains(base, "_test.") || strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") {
			return 6
		}
		return 5
	}
	if path.Ext(base) == ".md" {
		return 7
	}
	return -1
}

// SelectFiles picks at most limit paths worth reading, best first. Shallow
// paths win ties so top-level files are preferred.
func SelectFiles(paths []string, limit int) []string {
	if limit <= 0 {
		limit = MaxFiles
	}
	type candidate struct {
		path  string
		rank  int
		depth int
	}
	var cands []candidate
	for _, p := range paths {
		if Skip(p) {
			continue
		}
		r := rank(p)
		if r < 0 {
			continue
		}
		cands = append(cands, candidate{path: p, rank: r, depth: strings.Count(p, "/")})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].rank != cands[j].rank {
			return cands[i].rank < cands[j].rank
		}
		if cands[i].depth != cands[j].depth {
			return cands[i].depth < cands[j].depth
		}
		return cands[i].path < cands[j].path
	})
	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.path
	}
	return out
}

// Structure returns the sorted directory listing, without skipped paths.
func Structure(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !Skip(p) {
			out = append(out, strings.ReplaceAll(p, "\\", "/"))
		}
	}
	sort.Strings(out)
	if len(out) > MaxStructureEntries {
		out = out[:MaxStructureEntries]
	}
	return out
}
