// Package prompt turns a source context into the system and user prompts
// sent to the completion provider.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"docsmith/internal/apperr"
	"docsmith/internal/models"
)

const opBuild = "prompt.Build"

// Prompt is the pair handed to the completion client.
type Prompt struct {
	System string
	User   string
}

// keyDependencies are highlighted in the manifest section when a dependency
// name contains one of them.
var keyDependencies = []string{
	"react", "vue", "angular", "svelte", "next", "nuxt", "express", "fastify", "nestjs", "koa",
	"django", "flask", "fastapi", "gin", "echo", "fiber", "chi", "gorm", "prisma", "typeorm",
	"mongoose", "sequelize", "graphql", "grpc", "redis", "postgres", "mysql", "sqlite", "mongodb",
	"jest", "vitest", "pytest", "testify", "tailwind", "jwt", "passport", "oauth", "auth",
	"openai", "anthropic", "langchain", "stripe", "aws-sdk", "firebase", "supabase",
}

// Build validates src and composes the prompt pair for docType.
func Build(src models.SourceContext, docType models.DocumentType) (Prompt, error) {
	if !docType.Valid() {
		return Prompt{}, apperr.Validation(opBuild, "invalid document type %q", docType)
	}
	system, err := SystemPrompt(docType)
	if err != nil {
		return Prompt{}, apperr.Wrap(apperr.KindInternal, opBuild, err)
	}

	if src.Repository == nil {
		if strings.TrimSpace(src.Text) == "" {
			return Prompt{}, apperr.Validation(opBuild, "source text is empty")
		}
		user := fmt.Sprintf("Analyze the following and produce %s documentation.\n\n%s", docType.Label(), src.Text)
		return Prompt{System: system, User: user}, nil
	}

	repo := src.Repository
	if strings.TrimSpace(repo.Owner) == "" || strings.TrimSpace(repo.Name) == "" {
		return Prompt{}, apperr.Validation(opBuild, "repository owner and name are required")
	}
	if len(repo.Files) == 0 {
		return Prompt{}, apperr.Validation(opBuild, "repository %s has no files", repo.FullName())
	}
	return Prompt{System: system, User: buildRepositoryPrompt(repo, docType)}, nil
}

func buildRepositoryPrompt(repo *models.RepositoryDescriptor, docType models.DocumentType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following repository and produce %s documentation.\n\n", docType.Label())

	b.WriteString("## Repository\n")
	fmt.Fprintf(&b, "Name: %s\n", repo.FullName())
	if repo.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", repo.Description)
	}
	if repo.PrimaryLanguage != "" {
		fmt.Fprintf(&b, "Primary language: %s\n", repo.PrimaryLanguage)
	}
	if repo.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", repo.URL)
	}

	writeStack(&b, repo.DetectedStack)
	writeManifest(&b, repo.PackageManifest)

	if len(repo.FileStructure) > 0 {
		b.WriteString("\n## Directory Structure\n")
		for _, p := range repo.FileStructure {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}

	b.WriteString("\n## Source Files\n")
	for _, f := range repo.Files {
		category := Classify(f.Path)
		fmt.Fprintf(&b, "\n### %s (%s)\n```\n%s\n```\n", f.Path, category, Truncate(f.Content, category.Budget()))
	}
	return b.String()
}

func writeStack(b *strings.Builder, stack map[string][]string) {
	if len(stack) == 0 {
		return
	}
	categories := make([]string, 0, len(stack))
	for c, techs := range stack {
		if len(techs) > 0 {
			categories = append(categories, c)
		}
	}
	if len(categories) == 0 {
		return
	}
	sort.Strings(categories)

	b.WriteString("\n## Technology Stack\n")
	for _, c := range categories {
		techs := append([]string(nil), stack[c]...)
		sort.Strings(techs)
		fmt.Fprintf(b, "- %s: %s\n", c, strings.Join(techs, ", "))
	}
}

func writeManifest(b *strings.Builder, m *models.PackageManifest) {
	if m == nil {
		return
	}
	fmt.Fprintf(b, "\n## Package Manifest (%s)\n", m.Kind)
	if m.Name != "" {
		fmt.Fprintf(b, "Package: %s\n", m.Name)
	}
	if len(m.Scripts) > 0 {
		b.WriteString("Scripts:\n")
		for _, name := range sortedKeys(m.Scripts) {
			fmt.Fprintf(b, "- %s: %s\n", name, m.Scripts[name])
		}
	}
	writeDependencies(b, "Dependencies", m.Dependencies)
	writeDependencies(b, "Dev dependencies", m.DevDependencies)
}

func writeDependencies(b *strings.Builder, title string, deps map[string]string) {
	if len(deps) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, name := range sortedKeys(deps) {
		marker := ""
		if IsKeyDependency(name) {
			marker = "★ "
		}
		if v := deps[name]; v != "" {
			fmt.Fprintf(b, "- %s%s@%s\n", marker, name, v)
		} else {
			fmt.Fprintf(b, "- %s%s\n", marker, name)
		}
	}
}

// IsKeyDependency reports whether name contains an allow-listed framework.
func IsKeyDependency(name string) bool {
	lower := strings.ToLower(name)
	for _, k := range keyDependencies {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
