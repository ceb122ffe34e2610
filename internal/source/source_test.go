package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsmith/internal/apperr"
	"docsmith/internal/githost"
	"docsmith/internal/models"
	"docsmith/internal/prompt"
	"docsmith/internal/tests/mocks"
)

func TestParseRepositoryURL(t *testing.T) {
	cases := []struct {
		in   string
		want RepositoryRef
	}{
		{"https://github.com/acme/widgets", RepositoryRef{"github.com", "acme", "widgets"}},
		{"https://github.com/acme/widgets.git", RepositoryRef{"github.com", "acme", "widgets"}},
		{"https://github.com/acme/widgets/tree/main/src", RepositoryRef{"github.com", "acme", "widgets"}},
		{"github.com/acme/widgets", RepositoryRef{"github.com", "acme", "widgets"}},
		{"git@github.com:acme/widgets.git", RepositoryRef{"github.com", "acme", "widgets"}},
		{"ssh://git@gitlab.com/team/api.git", RepositoryRef{"gitlab.com", "team", "api"}},
		{"acme/widgets", RepositoryRef{"github.com", "acme", "widgets"}},
		{"  https://GitHub.com/acme/widgets/  ", RepositoryRef{"github.com", "acme", "widgets"}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRepositoryURL(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"", "   ", "https://github.com/acme", "ftp://github.com/a/b", "widgets"} {
		_, err := ParseRepositoryURL(bad)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), bad)
	}

	ref, _ := ParseRepositoryURL("acme/widgets")
	assert.True(t, ref.IsGitHub())
	assert.Equal(t, "https://github.com/acme/widgets.git", ref.CloneURL())
}

func TestSkip(t *testing.T) {
	for _, p := range []string{"node_modules/x/index.js", "vendor/github.com/a/b.go", "assets/logo.png", "package-lock.json", "web/app.min.js", "a/.git/config"} {
		assert.True(t, Skip(p), p)
	}
	for _, p := range []string{"main.go", "src/auth/login.ts", "docs/guide.md", "Dockerfile"} {
		assert.False(t, Skip(p), p)
	}
}

func TestSelectFiles_PrefersManifestsAndEntryPoints(t *testing.T) {
	paths := []string{
		"src/util/strings.ts",
		"src/routes/users.ts",
		"src/auth/session.ts",
		"package.json",
		"src/index.ts",
		"tsconfig.json",
		"README.md",
		"node_modules/react/index.js",
		"src/util/strings.test.ts",
		"logo.png",
	}
	got := SelectFiles(paths, 0)
	assert.Equal(t, []string{
		"package.json",
		"src/index.ts",
		"README.md",
		"src/auth/session.ts",
		"src/routes/users.ts",
		"tsconfig.json",
		"src/util/strings.ts",
		"src/util/strings.test.ts",
	}, got)

	assert.Len(t, SelectFiles(paths, 2), 2)
}

func TestSelectFiles_CapsAtMaxFiles(t *testing.T) {
	var paths []string
	for i := 0; i < 60; i++ {
		paths = append(paths, filepath.ToSlash(filepath.Join("pkg", "f"+strings.Repeat("x", i)+".go")))
	}
	assert.Len(t, SelectFiles(paths, MaxFiles), MaxFiles)
}

func TestParseManifest_PackageJSON(t *testing.T) {
	m, err := ParseManifest("package.json", `{
		"name": "widgets",
		"scripts": {"test": "jest"},
		"dependencies": {"express": "^4.18.0"},
		"devDependencies": {"jest": "^29.0.0"}
	}`)
	require.NoError(t, err)
	assert.Equal(t, ManifestNPM, m.Kind)
	assert.Equal(t, "widgets", m.Name)
	assert.Equal(t, "jest", m.Scripts["test"])
	assert.Equal(t, "^4.18.0", m.Dependencies["express"])
	assert.Equal(t, "^29.0.0", m.DevDependencies["jest"])

	_, err = ParseManifest("package.json", "{not json")
	assert.Error(t, err)
}

func TestParseManifest_GoMod(t *testing.T) {
	m, err := ParseManifest("go.mod", "module example.com/widgets\n\ngo 1.22\n\nrequire (\n\tgithub.com/go-chi/chi/v5 v5.2.3\n\tgolang.org/x/text v0.28.0 // indirect\n)\n")
	require.NoError(t, err)
	assert.Equal(t, ManifestGo, m.Kind)
	assert.Equal(t, "example.com/widgets", m.Name)
	assert.Equal(t, map[string]string{"github.com/go-chi/chi/v5": "v5.2.3"}, m.Dependencies)
	assert.NotNil(t, m.Scripts)
}

func TestParseManifest_Requirements(t *testing.T) {
	m, err := ParseManifest("api/requirements.txt", "# web\nFlask==3.0.0\nrequests>=2.31 ; python_version > '3.8'\nuvicorn[standard]\n-r dev.txt\n")
	require.NoError(t, err)
	assert.Equal(t, ManifestPython, m.Kind)
	assert.Equal(t, map[string]string{"flask": "==3.0.0", "requests": ">=2.31", "uvicorn": "*"}, m.Dependencies)

	none, err := ParseManifest("Cargo.toml", "[package]")
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestFindManifest_PrefersTopLevel(t *testing.T) {
	files := []models.SourceFile{
		{Path: "web/package.json", Content: `{"name":"web"}`},
		{Path: "go.mod", Content: "module example.com/root\n"},
	}
	m := FindManifest(files)
	require.NotNil(t, m)
	assert.Equal(t, "example.com/root", m.Name)
}

func TestDetectStack(t *testing.T) {
	manifest := &models.PackageManifest{
		Kind:            ManifestNPM,
		Dependencies:    map[string]string{"express": "4", "pg": "8", "react-dom": "18"},
		DevDependencies: map[string]string{"jest": "29"},
	}
	stack := DetectStack([]string{"src/index.ts", "src/app.tsx", "Dockerfile", ".github/workflows/ci.yml", "node_modules/x/y.rb"}, manifest)

	assert.Equal(t, []string{"TypeScript"}, stack[StackLanguage])
	assert.Equal(t, []string{"Express", "React"}, stack[StackFramework])
	assert.Equal(t, []string{"PostgreSQL"}, stack[StackDatabase])
	assert.Equal(t, []string{"Jest"}, stack[StackTesting])
	assert.Equal(t, []string{"Docker", "GitHub Actions"}, stack[StackInfrastructure])
}

func TestGitHubFetcher_Fetch(t *testing.T) {
	srv := mocks.NewGitHubServer()
	t.Cleanup(srv.Close)
	srv.Repo = map[string]any{
		"name": "widgets", "description": "Widget API", "language": "TypeScript",
		"html_url": "https://github.com/acme/widgets", "default_branch": "main",
		"owner": map[string]any{"login": "acme"},
	}
	srv.Tree = []map[string]any{
		{"path": "package.json", "type": "blob", "size": 80},
		{"path": "src/index.ts", "type": "blob", "size": 30},
		{"path": "src/routes/users.ts", "type": "blob", "size": 30},
		{"path": "src/huge.ts", "type": "blob", "size": MaxFileSize + 1},
		{"path": "src", "type": "tree"},
		{"path": "node_modules/x/index.js", "type": "blob", "size": 10},
	}
	srv.SeedFile("main", "package.json", `{"name":"widgets","dependencies":{"express":"^4"}}`)
	srv.SeedFile("main", "src/index.ts", "import express from 'express'")
	srv.SeedFile("main", "src/routes/users.ts", "router.get('/users')")

	fetcher := NewGitHubFetcher(func(token string) (githost.RepositoryReader, error) {
		return githost.NewClient(token, srv.BaseURL())
	}, nil)
	desc, err := fetcher.Fetch(context.Background(), "tok", "acme", "widgets")
	require.NoError(t, err)

	assert.Equal(t, "acme", desc.Owner)
	assert.Equal(t, "TypeScript", desc.PrimaryLanguage)
	assert.Equal(t, "https://github.com/acme/widgets", desc.URL)
	assert.Equal(t, []string{"package.json", "src/huge.ts", "src/index.ts", "src/routes/users.ts"}, desc.FileStructure)
	require.Len(t, desc.Files, 3)
	assert.Equal(t, "package.json", desc.Files[0].Path)
	require.NotNil(t, desc.PackageManifest)
	assert.Equal(t, "widgets", desc.PackageManifest.Name)
	assert.Equal(t, []string{"Express"}, desc.DetectedStack[StackFramework])

	p, err := prompt.Build(models.RepositorySource(desc), models.DocReadme)
	require.NoError(t, err)
	for _, f := range desc.Files {
		assert.Contains(t, p.User, f.Path)
	}
}

func TestGitHubFetcher_MissingRepository(t *testing.T) {
	srv := mocks.NewGitHubServer()
	t.Cleanup(srv.Close)

	fetcher := NewGitHubFetcher(func(token string) (githost.RepositoryReader, error) {
		return githost.NewClient(token, srv.BaseURL())
	}, nil)
	_, err := fetcher.Fetch(context.Background(), "", "acme", "ghost")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCloneFetcher_FromRepository(t *testing.T) {
	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	files := map[string]string{
		"go.mod":                  "module example.com/svc\n\nrequire github.com/go-chi/chi/v5 v5.2.3\n",
		"cmd/svc/main.go":         "package main\n\nfunc main() {}\n",
		"internal/api/handler.go": "package api\n",
		"assets/logo.png":         "\x89PNG\x00\x00",
	}
	for p, content := range files {
		require.NoError(t, util.WriteFile(fs, p, []byte(content), 0o644))
		_, err := wt.Add(p)
		require.NoError(t, err)
	}
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)

	desc, err := NewCloneFetcher(nil).FromRepository(repo, RepositoryRef{Host: "gitlab.com", Owner: "team", Name: "svc"})
	require.NoError(t, err)

	assert.Equal(t, "team", desc.Owner)
	assert.Equal(t, "Go", desc.PrimaryLanguage)
	assert.Equal(t, []string{"cmd/svc/main.go", "go.mod", "internal/api/handler.go"}, desc.FileStructure)
	require.Len(t, desc.Files, 3)
	require.NotNil(t, desc.PackageManifest)
	assert.Equal(t, "example.com/svc", desc.PackageManifest.Name)
	assert.Equal(t, []string{"chi"}, desc.DetectedStack[StackFramework])
}

func TestLoadDirectory_HonoursIgnoreFile(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	write("main.py", "print('hi')\n")
	write("requirements.txt", "flask==3.0.0\n")
	write("fixtures/big.json", "{}")
	write("notes.snap", "snapshot")
	write(IgnoreFile, "fixtures/\n*.snap\n")

	desc, err := LoadDirectory(root, nil)
	require.NoError(t, err)

	assert.Equal(t, LocalOwner, desc.Owner)
	assert.Equal(t, filepath.Base(root), desc.Name)
	assert.Equal(t, []string{"main.py", "requirements.txt"}, desc.FileStructure)
	assert.Equal(t, []string{"Flask"}, desc.DetectedStack[StackFramework])

	only, err := LoadDirectory(root, []string{"*.txt", "**/*.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"requirements.txt"}, only.FileStructure)

	_, err = LoadDirectory(filepath.Join(root, "missing"), nil)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestFromUploads(t *testing.T) {
	desc, err := FromUploads("my-app", []models.SourceFile{
		{Path: "/src/../server.js", Content: "const express = require('express')"},
		{Path: "package.json", Content: `{"name":"my-app","dependencies":{"express":"4"}}`},
		{Path: "dist/bundle.js", Content: "x"},
		{Path: "img.bin", Content: "\x00\x01"},
	})
	require.NoError(t, err)

	assert.Equal(t, "my-app", desc.Name)
	assert.Equal(t, []string{"package.json", "server.js"}, desc.FileStructure)
	assert.Equal(t, "my-app", desc.PackageManifest.Name)

	_, err = FromUploads("x", []models.SourceFile{{Path: "../..", Content: "x"}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
