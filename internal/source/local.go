package source

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	filepathx "github.com/yargevad/filepathx"

	"docsmith/internal/apperr"
	"docsmith/internal/models"
	"docsmith/internal/utils"
)

// IgnoreFile lists extra ignore patterns for LoadDirectory, one per line.
const IgnoreFile = ".docsmithignore"

// LocalOwner is the owner recorded for directory and upload sources.
const LocalOwner = "local"

// LoadDirectory ingests files under root matching the ** glob patterns,
// "**/*" when none are given. Paths matched by .docsmithignore are skipped.
func LoadDirectory(root string, patterns []string) (*models.RepositoryDescriptor, error) {
	const op = "source.LoadDirectory"
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, apperr.Validation(op, "invalid directory %q", root)
	}
	if !utils.DirectoryExists(abs) {
		return nil, apperr.NotFound(op, "directory %s does not exist", root)
	}
	if len(patterns) == 0 {
		patterns = []string{"**/*"}
	}
	ignores, err := utils.ReadPatternFile(filepath.Join(abs, IgnoreFile))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}

	seen := map[string]bool{}
	var paths, readable []string
	for _, pattern := range patterns {
		matches, err := filepathx.Glob(filepath.Join(abs, pattern))
		if err != nil {
			return nil, apperr.Validation(op, "invalid glob pattern %q", pattern)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			rel, err := filepath.Rel(abs, m)
			if err != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			rel = filepath.ToSlash(rel)
			if seen[rel] || rel == IgnoreFile || ignored(rel, ignores) {
				continue
			}
			seen[rel] = true
			paths = append(paths, rel)
			if info.Size() <= MaxFileSize {
				readable = append(readable, rel)
			}
		}
	}

	var files []models.SourceFile
	for _, rel := range SelectFiles(readable, MaxFiles) {
		content, err := os.ReadFile(filepath.Join(abs, filepath.FromSlash(rel)))
		if err != nil || looksBinary(content) {
			continue
		}
		files = append(files, models.SourceFile{Path: rel, Content: string(content)})
	}

	desc := assemble(&models.RepositoryDescriptor{Owner: LocalOwner, Name: filepath.Base(abs)}, paths, files)
	if len(desc.Files) == 0 {
		return nil, apperr.Validation(op, "no readable source files under %s", root)
	}
	return desc, nil
}

// ignored matches rel against gitignore-like patterns: "dir/" prefixes,
// globs on the base name, and globs on the full path.
func ignored(rel string, patterns []string) bool {
	base := path.Base(rel)
	for _, p := range patterns {
		p = strings.TrimPrefix(p, "/")
		if strings.HasSuffix(p, "/") {
			dir := strings.TrimSuffix(p, "/")
			if strings.HasPrefix(rel, dir+"/") || strings.Contains(rel, "/"+dir+"/") {
				return true
			}
			continue
		}
		if ok, _ := path.Match(p, base); ok {
			return true
		}
		if ok, _ := path.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// FromUploads builds a descriptor from uploaded files. Paths are cleaned
// and must stay relative.
func FromUploads(name string, uploads []models.SourceFile) (*models.RepositoryDescriptor, error) {
	const op = "source.FromUploads"
	name = strings.TrimSpace(name)
	if name == "" {
		name = "upload"
	}
	byPath := map[string]string{}
	var paths []string
	for _, u := range uploads {
		p := path.Clean("/" + strings.ReplaceAll(u.Path, "\\", "/"))[1:]
		if p == "" || Skip(p) || len(u.Content) > MaxFileSize || looksBinary([]byte(u.Content)) {
			continue
		}
		if _, dup := byPath[p]; !dup {
			paths = append(paths, p)
		}
		byPath[p] = u.Content
	}

	var files []models.SourceFile
	for _, p := range SelectFiles(paths, MaxFiles) {
		files = append(files, models.SourceFile{Path: p, Content: byPath[p]})
	}
	desc := assemble(&models.RepositoryDescriptor{Owner: LocalOwner, Name: name}, paths, files)
	if len(desc.Files) == 0 {
		return nil, apperr.Validation(op, "no readable files were uploaded")
	}
	return desc, nil
}
