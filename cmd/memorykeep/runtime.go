package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/youssefsiam38/memorykeep"
	"github.com/youssefsiam38/memorykeep/chat"
	"github.com/youssefsiam38/memorykeep/domain"
	"github.com/youssefsiam38/memorykeep/hooks"
	"github.com/youssefsiam38/memorykeep/internal/config"
	"github.com/youssefsiam38/memorykeep/internal/database"
	"github.com/youssefsiam38/memorykeep/internal/logging"
	"github.com/youssefsiam38/memorykeep/provider"
	"github.com/youssefsiam38/memorykeep/provider/claude"
	"github.com/youssefsiam38/memorykeep/provider/gemini"
)

// errNoResponder is the generation error when no provider is configured.
var errNoResponder = errors.New("no model provider configured")

// runtime is the wired service.
type runtime struct {
	cfg    *config.Config
	zap    *zap.Logger
	logger *logging.Adapter
	db     *database.DB
	engine *memorykeep.Engine
	domain *domain.Service
	chat   *chat.Service
}

// open loads the configuration and wires every component. The schema is
// migrated before open returns.
func (a *app) open(ctx context.Context) (*runtime, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	zl, err := logging.New(cfg.Logging.Level, a.verbose)
	if err != nil {
		return nil, err
	}
	logger := logging.Adapt(zl)

	caps, err := buildCapabilities(ctx, cfg.Provider)
	if err != nil {
		_ = zl.Sync()
		return nil, err
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		_ = zl.Sync()
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		_ = zl.Sync()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	registry := hooks.NewRegistry()
	hooks.NewLoggingHooks(logger.Named("hooks")).Register(registry)

	opts := []memorykeep.Option{
		memorykeep.WithConfig(cfg.Memory),
		memorykeep.WithLogger(logger.Named("engine")),
		memorykeep.WithHooks(registry),
	}
	if cfg.DirectivesDir != "" {
		opts = append(opts, memorykeep.WithDirectives(memorykeep.FileDirectives{
			Dir:    cfg.DirectivesDir,
			Logger: logger.Named("directives"),
		}))
	}

	engine, err := memorykeep.New(db.Store, caps.authority, caps.sidecar, opts...)
	if err != nil {
		db.Close()
		_ = zl.Sync()
		return nil, err
	}

	logger.Debug("runtime ready",
		"driver", cfg.Database.Driver,
		"provider", cfg.Provider.Name,
		"capacity", cfg.Memory.Capacity,
		"flush_threshold", cfg.Memory.FlushThreshold,
	)

	return &runtime{
		cfg:    cfg,
		zap:    zl,
		logger: logger,
		db:     db,
		engine: engine,
		domain: domain.New(db.Store),
		chat:   chat.NewService(engine, caps.responder, logger.Named("chat")),
	}, nil
}

// Close releases the database and flushes the logger.
func (r *runtime) Close() {
	r.db.Close()
	_ = r.zap.Sync()
}

func (a *app) loadConfig() (*config.Config, error) {
	path := a.configPath
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		path = abs
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if a.ephemeral {
		cfg.Database.Driver = config.DriverMemory
	}
	return cfg, nil
}

// capabilities are the model-backed collaborators of one provider.
type capabilities struct {
	authority memorykeep.Authority
	sidecar   memorykeep.Sidecar
	responder memorykeep.Responder
}

// buildCapabilities wires the configured provider. With no provider the
// engine runs on its neutral fallbacks and replies report an error.
func buildCapabilities(ctx context.Context, cfg config.ProviderConfig) (*capabilities, error) {
	var authorityModel, sidecarModel, responderModel provider.Model

	switch cfg.Name {
	case config.ProviderClaude:
		client := claude.NewClient(cfg.APIKey)
		authority := orDefault(cfg.AuthorityModel, claude.DefaultAuthorityModel)
		authorityModel = claude.New(client, authority)
		sidecarModel = claude.New(client, orDefault(cfg.SidecarModel, claude.DefaultSidecarModel))
		responderModel = claude.New(client, orDefault(cfg.ResponderModel, authority))

	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.APIKey, genai.HTTPOptions{})
		if err != nil {
			return nil, err
		}
		authority := orDefault(cfg.AuthorityModel, gemini.DefaultAuthorityModel)
		authorityModel = newGeminiModel(client, authority)
		sidecarModel = newGeminiModel(client, orDefault(cfg.SidecarModel, gemini.DefaultSidecarModel))
		responderModel = newGeminiModel(client, orDefault(cfg.ResponderModel, authority))

	case config.ProviderNone, "":
		return &capabilities{responder: noResponder{}}, nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}

	return &capabilities{
		authority: provider.NewAuthority(authorityModel),
		sidecar:   provider.NewSidecar(sidecarModel),
		responder: provider.NewResponder(responderModel),
	}, nil
}

// newGeminiModel folds the system instruction for Gemma models, which
// reject it.
func newGeminiModel(client *genai.Client, model string) *gemini.Model {
	if strings.HasPrefix(model, "gemma") {
		return gemini.New(client, model, gemini.WithFoldedSystem())
	}
	return gemini.New(client, model)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type noResponder struct{}

func (noResponder) Generate(ctx context.Context, messages []memorykeep.Message) (string, error) {
	return "", errNoResponder
}
