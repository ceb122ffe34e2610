package models

import "strings"

// SourceFile is one file selected for the prompt. Content may already be
// shortened by the fetcher; the prompt builder applies its own budget.
type SourceFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// PackageManifest is the subset of a package manifest that ends up in prompts.
type PackageManifest struct {
	Kind            string            `json:"kind"`
	Name            string            `json:"name,omitempty"`
	Scripts         map[string]string `json:"scripts,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
}

// RepositoryDescriptor is a normalized summary of a source repository.
type RepositoryDescriptor struct {
	Owner           string              `json:"owner"`
	Name            string              `json:"name"`
	Description     string              `json:"description,omitempty"`
	PrimaryLanguage string              `json:"primaryLanguage,omitempty"`
	URL             string              `json:"url,omitempty"`
	FileStructure   []string            `json:"fileStructure"`
	PackageManifest *PackageManifest    `json:"packageManifest,omitempty"`
	DetectedStack   map[string][]string `json:"detectedStack,omitempty"`
	Files           []SourceFile        `json:"files"`
}

// FullName returns "owner/name".
func (r *RepositoryDescriptor) FullName() string {
	return r.Owner + "/" + r.Name
}

// SourceContext is either raw text or a repository descriptor, never both.
type SourceContext struct {
	Text       string
	Repository *RepositoryDescriptor
}

func TextSource(text string) SourceContext {
	return SourceContext{Text: text}
}

func RepositorySource(repo *RepositoryDescriptor) SourceContext {
	return SourceContext{Repository: repo}
}

func (s SourceContext) IsRepository() bool {
	return s.Repository != nil
}

// RepositoryURL and RepositoryName describe the source for persistence; both
// are empty for raw text.
func (s SourceContext) RepositoryURL() string {
	if s.Repository == nil {
		return ""
	}
	return s.Repository.URL
}

func (s SourceContext) RepositoryName() string {
	if s.Repository == nil {
		return ""
	}
	return s.Repository.FullName()
}

// IsBlank reports whether raw text is empty after trimming.
func (s SourceContext) IsBlank() bool {
	return s.Repository == nil && strings.TrimSpace(s.Text) == ""
}
