package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docsmith/internal/models"
	"docsmith/internal/server"
	"docsmith/internal/source"
)

// cliUser owns documents saved from the command line.
const cliUser = "local"

func withApp(cmd *cobra.Command, opts AppOptions, fn func(ctx context.Context, app *App) error) error {
	app, err := NewApp(cfg, logger, opts)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(cmd.Context(), app)
}

func cliSession() models.Session {
	return models.Session{UserID: cliUser, Provider: models.ProviderGitHub, AccessToken: cfg.GitHub.Token}
}

// readInput reads a file, or stdin when name is "-".
func readInput(name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderMarkdown(md string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	fmt.Print(out)
	return nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, AppOptions{}, func(ctx context.Context, app *App) error {
				if cfg.Auth.JWTSecret == "" {
					logger.Warn("auth.jwt_secret is not set; bearer tokens are rejected and requests run anonymously")
				}
				handler, err := server.New(server.Config{
					Services: app.Services,
					Sources:  app.Sources,
					BasePath: cfg.Server.BasePath,
					Auth:     server.AuthConfig{JWTSecret: cfg.Auth.JWTSecret},
					Logger:   logger,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{
					Addr:              cfg.Server.Addr,
					Handler:           handler,
					ReadHeaderTimeout: cfg.Server.Timeout,
					ReadTimeout:       cfg.Server.Timeout,
					IdleTimeout:       cfg.Server.Timeout,
				}
				logger.Info("serving docsmith API", zap.String("addr", cfg.Server.Addr), zap.String("base_path", cfg.Server.BasePath))
				return runServer(ctx, srv)
			})
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("base-path", "", "API base path")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("server.base_path", cmd.Flags().Lookup("base-path"))
	return cmd
}

// runServer serves until ctx is done or the listener fails. The shutdown
// goroutine exits on both paths.
func runServer(ctx context.Context, srv *http.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	err := srv.ListenAndServe()
	cancel()
	<-done
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func generateCmd() *cobra.Command {
	var method, docType, out, title, name string
	var globs []string
	var save, raw bool
	cmd := &cobra.Command{
		Use:   "generate [source...]",
		Short: "Generate documentation",
		Long: `Generate documentation from one of:
  --method code     a file of pasted code ("-" reads stdin)
  --method github   a GitHub repository URL or owner/name
  --method git      any git URL (cloned in memory)
  --method dir      a local directory (default "."), honouring .docsmithignore
  --method upload   the listed files`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dt, err := models.ParseDocumentType(docType)
			if err != nil {
				return err
			}
			opts := AppOptions{WithoutDatabase: !save}
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				src, err := resolveCLISource(ctx, app, method, name, globs, args)
				if err != nil {
					return err
				}
				var res *models.GenerationResult
				if save {
					res, err = app.Services.Generation.GenerateFor(ctx, cliSession(), src, dt, title)
				} else {
					res, err = app.Services.Generation.Generate(ctx, src, dt)
				}
				if err != nil {
					return err
				}
				if res.DocumentID != "" {
					logger.Info("document saved", zap.String("id", res.DocumentID))
				}
				if out != "" {
					return os.WriteFile(out, []byte(res.DocumentText), 0o644)
				}
				if raw {
					fmt.Println(res.DocumentText)
					return nil
				}
				return renderMarkdown(res.DocumentText)
			})
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", "dir", "source method: code, github, git, dir or upload")
	cmd.Flags().StringVarP(&docType, "type", "t", string(models.DocReadme), "document type: readme, api, guide, contributing or architecture")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the document to this file")
	cmd.Flags().StringVar(&title, "title", "", "title for the saved document")
	cmd.Flags().StringVar(&name, "name", "", "project name for uploaded files")
	cmd.Flags().StringSliceVar(&globs, "glob", nil, "glob patterns for the dir method (supports **)")
	cmd.Flags().BoolVar(&save, "save", false, "save the document to the local history")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	return cmd
}

func resolveCLISource(ctx context.Context, app *App, method, name string, globs, args []string) (models.SourceContext, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "dir":
		root := "."
		if len(args) > 0 {
			root = args[0]
		}
		desc, err := source.LoadDirectory(root, globs)
		if err != nil {
			return models.SourceContext{}, err
		}
		return models.RepositorySource(desc), nil
	case string(source.MethodCode):
		if len(args) != 1 {
			return models.SourceContext{}, errors.New("code method takes one file, or - for stdin")
		}
		text, err := readInput(args[0])
		if err != nil {
			return models.SourceContext{}, err
		}
		return app.Sources.Resolve(ctx, source.Request{Method: source.MethodCode, Data: text}, "")
	case string(source.MethodUpload):
		if len(args) == 0 {
			return models.SourceContext{}, errors.New("upload method takes at least one file")
		}
		files := make([]models.SourceFile, 0, len(args))
		for _, p := range args {
			content, err := readInput(p)
			if err != nil {
				return models.SourceContext{}, err
			}
			files = append(files, models.SourceFile{Path: filepath.ToSlash(p), Content: content})
		}
		return app.Sources.Resolve(ctx, source.Request{Method: source.MethodUpload, Data: name, Files: files}, "")
	default:
		m, err := source.ParseMethod(method)
		if err != nil {
			return models.SourceContext{}, err
		}
		if len(args) != 1 {
			return models.SourceContext{}, fmt.Errorf("%s method takes one repository URL", m)
		}
		return app.Sources.Resolve(ctx, source.Request{Method: m, Data: args[0]}, cfg.GitHub.Token)
	}
}

func reviewCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "review <file|->",
		Short: "Review a markdown document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, AppOptions{WithoutDatabase: true}, func(ctx context.Context, app *App) error {
				res, err := app.Services.Review.Review(ctx, content)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(res)
				}
				printReview(res)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the review as JSON")
	return cmd
}

func printReview(res *models.ReviewResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(fmt.Sprintf("Score %d/100", res.Score))
	tw.AppendRow(table.Row{"Summary", res.Summary})
	sections := []struct {
		name  string
		items []string
	}{
		{"Missing sections", res.MissingSections},
		{"Outdated", res.OutdatedWarnings},
		{"Improvements", res.Improvements},
		{"Positives", res.Positives},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		tw.AppendSeparator()
		tw.AppendRow(table.Row{s.name, "- " + strings.Join(s.items, "\n- ")})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: text.Colors{text.Bold}},
		{Number: 2, WidthMax: 80},
	})
	tw.Render()
}

func publishCmd() *cobra.Command {
	var req models.PublishRequest
	var mode, docType, repoRef string
	cmd := &cobra.Command{
		Use:   "publish <file|->",
		Short: "Commit a document to GitHub or open a pull request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(args[0])
			if err != nil {
				return err
			}
			ref, err := source.ParseRepositoryURL(repoRef)
			if err != nil {
				return err
			}
			if !ref.IsGitHub() {
				return fmt.Errorf("%s is not a GitHub repository", repoRef)
			}
			req.Owner, req.Repo, req.Content = ref.Owner, ref.Name, content
			req.Mode = models.PublishMode(mode)
			if docType != "" {
				if req.DocType, err = models.ParseDocumentType(docType); err != nil {
					return err
				}
			}
			return withApp(cmd, AppOptions{WithoutDatabase: true}, func(ctx context.Context, app *App) error {
				res, err := app.Services.Publish.Publish(ctx, cliSession(), req)
				if err != nil {
					return err
				}
				switch {
				case res.PullRequest != nil:
					fmt.Printf("Opened pull request #%d: %s\n", res.PullRequest.Number, res.PullRequest.URL)
				case res.Commit != nil:
					fmt.Printf("Committed %s to %s (%s)\n", res.Commit.Path, res.Commit.Branch, res.Commit.SHA)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&repoRef, "repo", "", "target repository, owner/name or URL")
	f.StringVar(&mode, "mode", string(models.PublishCommit), "commit or pr")
	f.StringVarP(&docType, "type", "t", "", "document type, used for the default path and branch name")
	f.StringVar(&req.Path, "path", "", "file path in the repository")
	f.StringVarP(&req.Message, "message", "m", "", "commit message")
	f.StringVar(&req.Branch, "branch", "", "branch to commit to (commit mode)")
	f.StringVar(&req.Base, "base", "", "pull request base branch")
	f.StringVar(&req.Head, "head", "", "pull request head branch (default docs/<type>-<timestamp>)")
	f.StringVar(&req.Title, "title", "", "pull request title")
	f.StringVar(&req.Body, "body", "", "pull request body")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List completion models and whether a key is configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, AppOptions{WithoutDatabase: true}, func(ctx context.Context, app *App) error {
				groups, err := app.Services.Models.ListModelGroups()
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Provider", "Model", "API name", "Default", "Key"})
				for _, g := range groups {
					for _, m := range g.Models {
						tw.AppendRow(table.Row{g.ProviderName, m.DisplayName, m.APIName, yesNo(m.Default), yesNo(m.Enabled)})
					}
				}
				tw.Render()
				return nil
			})
		},
	}
}

func documentsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "documents", Short: "Browse documents saved with generate --save"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, AppOptions{}, func(ctx context.Context, app *App) error {
				docs, err := app.Services.Documents.List(ctx, cliUser)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Type", "Repository", "Version", "Updated"})
				for _, d := range docs {
					tw.AppendRow(table.Row{d.ID, d.Title, d.DocType, d.RepositoryName, d.Version, d.UpdatedAt.Format(time.DateTime)})
				}
				tw.Render()
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Render a saved document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, AppOptions{}, func(ctx context.Context, app *App) error {
				doc, err := app.Services.Documents.Get(ctx, cliUser, args[0])
				if err != nil {
					return err
				}
				return renderMarkdown(doc.Content)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "versions <id>",
		Short: "List a document's versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, AppOptions{}, func(ctx context.Context, app *App) error {
				versions, err := app.Services.Documents.Versions(ctx, cliUser, args[0])
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Version", "Created", "Characters"})
				for _, ver := range versions {
					tw.AppendRow(table.Row{ver.Version, ver.CreatedAt.Format(time.DateTime), len(ver.Content)})
				}
				tw.Render()
				return nil
			})
		},
	})
	return cmd
}

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "keys", Short: "Manage provider API keys in the OS keyring"}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <provider>",
		Short: "Store an API key read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, AppOptions{WithoutDatabase: true}, func(ctx context.Context, app *App) error {
				keys, err := app.Keys()
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Enter the %s API key: ", args[0])
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				return keys.StoreApiKey(args[0], []byte(strings.TrimSpace(line)))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List providers with a stored key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, AppOptions{WithoutDatabase: true}, func(ctx context.Context, app *App) error {
				keys, err := app.Keys()
				if err != nil {
					return err
				}
				entries, err := keys.ListApiKeys()
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Provider", "Label"})
				for _, e := range entries {
					tw.AppendRow(table.Row{e["provider"], e["label"]})
				}
				tw.Render()
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <provider>",
		Short: "Remove a stored API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, AppOptions{WithoutDatabase: true}, func(ctx context.Context, app *App) error {
				keys, err := app.Keys()
				if err != nil {
					return err
				}
				return keys.DeleteApiKey(args[0])
			})
		},
	})
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
