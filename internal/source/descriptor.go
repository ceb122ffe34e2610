package source

import (
	"path"
	"sort"
	"strings"

	"docsmith/internal/models"
)

// assemble fills the derived parts of a descriptor from the listing and
// the files that were read.
func assemble(repo *models.RepositoryDescriptor, paths []string, files []models.SourceFile) *models.RepositoryDescriptor {
	kept := make([]models.SourceFile, 0, len(files))
	for _, f := range files {
		if f.Path == "" || strings.TrimSpace(f.Content) == "" {
			continue
		}
		kept = append(kept, f)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Path < kept[j].Path })

	repo.Files = kept
	repo.FileStructure = Structure(paths)
	repo.PackageManifest = FindManifest(kept)
	repo.DetectedStack = DetectStack(paths, repo.PackageManifest)
	if repo.PrimaryLanguage == "" {
		repo.PrimaryLanguage = primaryLanguage(paths)
	}
	return repo
}

// primaryLanguage is the language with the most files.
func primaryLanguage(paths []string) string {
	counts := map[string]int{}
	for _, p := range paths {
		if Skip(p) {
			continue
		}
		if lang, ok := languageByExt[strings.ToLower(path.Ext(p))]; ok {
			counts[lang]++
		}
	}
	best, bestN := "", 0
	for lang, n := range counts {
		if n > bestN || (n == bestN && lang < best) {
			best, bestN = lang, n
		}
	}
	return best
}

// looksBinary treats NUL bytes or mostly control characters as binary.
func looksBinary(b []byte) bool {
	if len(b) > 4096 {
		b = b[:4096]
	}
	if len(b) == 0 {
		return false
	}
	nonPrintable := 0
	for _, c := range b {
		if c == 0x00 {
			return true
		}
		if c < 9 || (c > 13 && c < 32) {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(b)) > 0.3
}
