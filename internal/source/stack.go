package source

import (
	"path"
	"sort"
	"strings"

	"docsmith/internal/models"
)

// Stack categories.
const (
	StackLanguage       = "language"
	StackFramework      = "framework"
	StackDatabase       = "database"
	StackTesting        = "testing"
	StackInfrastructure = "infrastructure"
)

var languageByExt = map[string]string{
	".go": "Go", ".py": "Python", ".js": "JavaScript", ".jsx": "JavaScript", ".mjs": "JavaScript",
	".ts": "TypeScript", ".tsx": "TypeScript", ".rs": "Rust", ".java": "Java", ".kt": "Kotlin",
	".rb": "Ruby", ".php": "PHP", ".cs": "C#", ".swift": "Swift", ".c": "C", ".cpp": "C++",
	".scala": "Scala", ".vue": "Vue", ".svelte": "Svelte",
}

type stackRule struct {
	needle   string
	category string
	name     string
}

// dependencyRules match by substring against dependency names.
var dependencyRules = []stackRule{
	{"react", StackFramework, "React"},
	{"next", StackFramework, "Next.js"},
	{"vue", StackFramework, "Vue"},
	{"@angular/core", StackFramework, "Angular"},
	{"svelte", StackFramework, "Svelte"},
	{"express", StackFramework, "Express"},
	{"fastify", StackFramework, "Fastify"},
	{"@nestjs/core", StackFramework, "NestJS"},
	{"koa", StackFramework, "Koa"},
	{"django", StackFramework, "Django"},
	{"flask", StackFramework, "Flask"},
	{"fastapi", StackFramework, "FastAPI"},
	{"gin-gonic/gin", StackFramework, "Gin"},
	{"labstack/echo", StackFramework, "Echo"},
	{"gofiber/fiber", StackFramework, "Fiber"},
	{"go-chi/chi", StackFramework, "chi"},
	{"huma", StackFramework, "Huma"},
	{"spf13/cobra", StackFramework, "Cobra"},
	{"prisma", StackDatabase, "Prisma"},
	{"typeorm", StackDatabase, "TypeORM"},
	{"mongoose", StackDatabase, "MongoDB"},
	{"mongodb", StackDatabase, "MongoDB"},
	{"sequelize", StackDatabase, "Sequelize"},
	{"gorm", StackDatabase, "GORM"},
	{"sqlalchemy", StackDatabase, "SQLAlchemy"},
	{"redis", StackDatabase, "Redis"},
	{"pg", StackDatabase, "PostgreSQL"},
	{"postgres", StackDatabase, "PostgreSQL"},
	{"psycopg", StackDatabase, "PostgreSQL"},
	{"mysql", StackDatabase, "MySQL"},
	{"sqlite", StackDatabase, "SQLite"},
	{"jest", StackTesting, "Jest"},
	{"vitest", StackTesting, "Vitest"},
	{"mocha", StackTesting, "Mocha"},
	{"pytest", StackTesting, "pytest"},
	{"testify", StackTesting, "testify"},
	{"cypress", StackTesting, "Cypress"},
	{"playwright", StackTesting, "Playwright"},
}

// fileRules match by base name or path prefix.
var fileRules = []stackRule{
	{"dockerfile", StackInfrastructure, "Docker"},
	{"docker-compose.yml", StackInfrastructure, "Docker Compose"},
	{"docker-compose.yaml", StackInfrastructure, "Docker Compose"},
	{"compose.yaml", StackInfrastructure, "Docker Compose"},
	{".github/workflows/", StackInfrastructure, "GitHub Actions"},
	{".gitlab-ci.yml", StackInfrastructure, "GitLab CI"},
	{"terraform", StackInfrastructure, "Terraform"},
	{"k8s/", StackInfrastructure, "Kubernetes"},
	{"helm/", StackInfrastructure, "Helm"},
	{"makefile", StackInfrastructure, "Make"},
}

// DetectStack groups technologies found in paths and manifest by category.
// Each category's names are sorted and unique.
func DetectStack(paths []string, manifest *models.PackageManifest) map[string][]string {
	found := map[string]map[string]bool{}
	add := func(category, name string) {
		if found[category] == nil {
			found[category] = map[string]bool{}
		}
		found[category][name] = true
	}

	for _, p := range paths {
		p = strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
		if Skip(p) {
			continue
		}
		if lang, ok := languageByExt[path.Ext(p)]; ok {
			add(StackLanguage, lang)
		}
		base := path.Base(p)
		for _, r := range fileRules {
			if base == r.needle || strings.HasPrefix(p, r.needle) || strings.Contains(p, "/"+r.needle) {
				add(r.category, r.name)
			}
		}
		if strings.HasSuffix(base, ".tf") {
			add(StackInfrastructure, "Terraform")
		}
	}

	if manifest != nil {
		switch manifest.Kind {
		case ManifestGo:
			add(StackLanguage, "Go")
		case ManifestPython:
			add(StackLanguage, "Python")
		}
		for _, deps := range []map[string]string{manifest.Dependencies, manifest.DevDependencies} {
			for dep := range deps {
				matchDependency(strings.ToLower(dep), add)
			}
		}
	}

	out := make(map[string][]string, len(found))
	for category, names := range found {
		list := make([]string, 0, len(names))
		for n := range names {
			list = append(list, n)
		}
		sort.Strings(list)
		out[category] = list
	}
	return out
}

func matchDependency(dep string, add func(category, name string)) {
	for _, r := range dependencyRules {
		if r.needle == "pg" {
			if dep == "pg" {
				add(r.category, r.name)
			}
			continue
		}
		if strings.Contains(dep, r.needle) {
			add(r.category, r.name)
		}
	}
}
