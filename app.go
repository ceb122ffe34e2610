package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"docsmith/internal/config"
	"docsmith/internal/database"
	"docsmith/internal/events"
	"docsmith/internal/githost"
	"docsmith/internal/llm"
	"docsmith/internal/llm/client"
	"docsmith/internal/services"
	"docsmith/internal/source"
)

// hostCacheSize bounds the per-token GitHub client cache.
const hostCacheSize = 64

// App owns the process-wide collaborators shared by the CLI commands and
// the HTTP server.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *gorm.DB
	dbClose  func() error
	keys     *services.KeyringService
	hosts    *githost.Factory
	provider string
	model    string

	Services *services.Services
	Sources  *source.Resolver
}

type AppOptions struct {
	// WithoutDatabase skips opening SQLite; generated documents are not saved.
	WithoutDatabase bool
}

// NewApp wires the database, keyring, completion handle, GitHub client
// factory, services and source resolver from cfg.
func NewApp(cfg *config.Config, logger *zap.Logger, opts AppOptions) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, provider: cfg.LLM.Provider}
	events.EnableLogEmitter(logger.Named("events"))

	ring, err := services.OpenKeyring(services.KeyringOptions{
		FileDir:        cfg.Keyring.FileDir,
		FilePassphrase: cfg.Keyring.Passphrase,
	})
	if err != nil {
		logger.Warn("keyring unavailable, API keys must come from the environment", zap.Error(err))
	} else {
		a.keys = services.NewKeyringService(ring)
	}

	if !opts.WithoutDatabase {
		db, err := database.Init(database.Config{Path: cfg.Database.Path, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = db
		if sqlDB, err := db.DB(); err == nil {
			a.dbClose = sqlDB.Close
		}
	}

	a.hosts, err = githost.NewFactory(cfg.GitHub.BaseURL, hostCacheSize)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create github client factory: %w", err)
	}

	a.model, err = a.resolveModel()
	if err != nil {
		a.Close()
		return nil, err
	}
	llm.SetDefaultFactory(a.completerFactory())

	a.Services, err = services.NewServices(services.Deps{
		DB:        a.db,
		Completer: llm.Default(),
		Hosts:     a.hosts.Host,
		Available: a.providerAvailable,
		Model:     a.model,
		Policy: llm.Policy{
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			MaxRetries:   cfg.Retry.MaxRetries,
			Logger:       logger,
		},
		Logger: logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Sources = source.NewResolver(
		source.NewGitHubFetcher(a.hosts.Reader, logger),
		source.NewCloneFetcher(logger),
	)
	logger.Info("docsmith ready",
		zap.String("provider", a.provider),
		zap.String("model", a.model),
		zap.Bool("database", a.db != nil),
		zap.Bool("keyring", a.keys != nil))
	return a, nil
}

// resolveModel uses llm.model when set, else the catalog default for the
// configured provider.
func (a *App) resolveModel() (string, error) {
	if m := strings.TrimSpace(a.cfg.LLM.Model); m != "" {
		return m, nil
	}
	catalog, err := services.NewModelCatalogService(nil)
	if err != nil {
		return "", err
	}
	def, err := catalog.DefaultForProvider(a.provider)
	if err != nil {
		return "", fmt.Errorf("no default model for provider %q: %w", a.provider, err)
	}
	return def.APIName, nil
}

func (a *App) completerFactory() llm.Factory {
	return func(ctx context.Context) (llm.Completer, error) {
		key := a.cfg.APIKey(a.provider, a.keyStore())
		c, err := client.NewForProvider(ctx, a.provider, key, client.Options{
			Model:     a.model,
			MaxTokens: a.cfg.LLM.MaxTokens,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func (a *App) providerAvailable(providerID string) bool {
	return a.cfg.APIKey(providerID, a.keyStore()) != ""
}

// keyStore avoids handing a typed nil to config.APIKey.
func (a *App) keyStore() config.KeyStore {
	if a.keys == nil {
		return nil
	}
	return a.keys
}

// Keys returns the keyring service, or an error when no keyring could be opened.
func (a *App) Keys() (*services.KeyringService, error) {
	if a.keys == nil {
		return nil, fmt.Errorf("no keyring backend is available; set keyring.passphrase to use the file backend")
	}
	return a.keys, nil
}

// Close releases the database. Safe to call more than once.
func (a *App) Close() {
	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
		a.dbClose = nil
	}
	llm.ResetDefault()
}
