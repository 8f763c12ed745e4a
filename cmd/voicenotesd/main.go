// Command voicenotesd runs the voice notes HTTP service: audio uploads in,
// transcripts with structured notes out, with optional export to Notion or
// Google Docs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/voicenotes/api"
	"github.com/skillsenselab/voicenotes/audio"
	"github.com/skillsenselab/voicenotes/audio/ffmpeg"
	"github.com/skillsenselab/voicenotes/audio/native"
	"github.com/skillsenselab/voicenotes/auth"
	"github.com/skillsenselab/voicenotes/config"
	"github.com/skillsenselab/voicenotes/export"
	"github.com/skillsenselab/voicenotes/export/gdocs"
	"github.com/skillsenselab/voicenotes/export/notion"
	"github.com/skillsenselab/voicenotes/logger"
	"github.com/skillsenselab/voicenotes/observability"
	"github.com/skillsenselab/voicenotes/pipeline"
	"github.com/skillsenselab/voicenotes/provider"
	"github.com/skillsenselab/voicenotes/resilience"
	"github.com/skillsenselab/voicenotes/secrets"
	"github.com/skillsenselab/voicenotes/server"
	"github.com/skillsenselab/voicenotes/server/endpoint"
	"github.com/skillsenselab/voicenotes/server/middleware"
	"github.com/skillsenselab/voicenotes/transcription"
	"github.com/skillsenselab/voicenotes/transcription/openai"
	"github.com/skillsenselab/voicenotes/transcription/whisper"
	"github.com/skillsenselab/voicenotes/util"
	"github.com/skillsenselab/voicenotes/version"
)

const serviceName = "voicenotesd"

func main() {
	var (
		configFile  string
		showVersion bool
		mintClient  string
	)
	flag.StringVar(&configFile, "config", "", "path to config file (default: auto-discover)")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.StringVar(&mintClient, "mint-token", "", "print a bearer token for the named client and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s %s\n", serviceName, version.GetFullVersion())
		return
	}

	if err := run(configFile, mintClient); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(configFile, mintClient string) error {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}

	var cfg config.Config
	if err := config.Load(serviceName, &cfg, opts...); err != nil {
		return err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if mintClient != "" {
		return printToken(cfg.Auth, mintClient)
	}

	logger.Init(cfg.Logging)
	log := logger.New(&cfg.Logging, serviceName)
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting voicenotesd", map[string]interface{}{
		"version":     version.GetShortVersion(),
		"environment": cfg.Environment,
	})

	var metrics *observability.Metrics
	if cfg.Observability.Enabled {
		m, shutdown, err := initObservability(ctx, &cfg)
		if err != nil {
			return err
		}
		defer shutdown()
		metrics = m
	}

	recognizer := buildRecognizer(&cfg, log)

	decoders := []audio.Decoder{
		ffmpeg.New(cfg.FFmpeg, log),
		native.New(log),
	}

	pipe, err := pipeline.New(cfg.Pipeline, recognizer, decoders, log)
	if err != nil {
		return err
	}

	exports, err := buildExports(&cfg, log)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, log)

	var extra []middleware.Middleware
	if cfg.Auth.Enabled {
		mgr, err := auth.NewManager(cfg.Auth)
		if err != nil {
			return err
		}
		extra = append(extra, middleware.Auth(&middleware.AuthConfig{
			TokenValidator: mgr.ValidatorFunc(),
			SkipPaths:      []string{"/v1/health", "/v1/version"},
		}))
	}
	srv.ApplyMiddleware(extra...)

	var routeMW []gin.HandlerFunc
	if cfg.Server.RateLimitPerMinute > 0 {
		routeMW = append(routeMW, middleware.GinWrap(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Server.RateLimitPerMinute,
		})))
	}
	api.NewHandler(pipe, exports, metrics, log).Register(srv.GinEngine(), routeMW...)
	srv.RegisterDefaultEndpoints(serviceName, healthChecker(recognizer, exports))

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")

	// The signal context is already done; shut down on a fresh one.
	return srv.Stop(context.Background())
}

// buildRecognizer assembles the speech backends and wraps them in the
// priority fallback so a down sidecar degrades to the next backend per
// request instead of failing the service.
func buildRecognizer(cfg *config.Config, log *logger.Logger) *transcription.Fallback {
	reg := transcription.NewRegistry()
	reg.Set(whisper.ProviderName, whisper.NewProvider(cfg.Transcription.Whisper))
	if cfg.Transcription.OpenAI.APIKey != "" {
		reg.Set(openai.ProviderName, openai.NewProvider(cfg.Transcription.OpenAI))
		log.Info("OpenAI transcription backend enabled", map[string]interface{}{
			"api_key": util.MaskSecret(cfg.Transcription.OpenAI.APIKey, 4),
		})
	}
	return transcription.NewFallback(reg, cfg.Transcription.Priority)
}

// buildExports wires the configured export targets, each wrapped with retry
// on transient failures. Returns nil when no target is configured, which the
// API handler reports to clients that request an export.
func buildExports(cfg *config.Config, log *logger.Logger) (*provider.Registry[export.Target], error) {
	targets := export.NewRegistry()
	retryCfg := resilience.DefaultRetryConfig()

	if cfg.Export.Notion.Token != "" && cfg.Export.Notion.DatabaseID != "" {
		targets.Set(notion.ProviderName, export.WithRetry(notion.NewTarget(cfg.Export.Notion), retryCfg, log))
	}
	if cfg.Export.GDocs.ClientID != "" {
		vault, err := secrets.New(cfg.Secrets.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("gdocs export requires a secrets passphrase: %w", err)
		}
		targets.Set(gdocs.ProviderName, export.WithRetry(gdocs.NewTarget(cfg.Export.GDocs, vault), retryCfg, log))
	}

	names := targets.List()
	if len(names) == 0 {
		return nil, nil
	}
	log.Info("Export targets configured", map[string]interface{}{
		"targets": names,
	})
	return targets, nil
}

// healthChecker reports per-backend availability for /v1/health.
func healthChecker(recognizer transcription.Provider, exports *provider.Registry[export.Target]) endpoint.HealthChecker {
	return func(ctx context.Context) []observability.Health {
		checks := []observability.Health{availability("transcription", recognizer.IsAvailable(ctx))}
		if exports != nil {
			for name, target := range exports.Instances() {
				checks = append(checks, availability("export:"+name, target.IsAvailable(ctx)))
			}
		}
		return checks
	}
}

func availability(name string, up bool) observability.Health {
	h := observability.Health{Name: name, Status: observability.HealthStatusUp}
	if !up {
		h.Status = observability.HealthStatusDown
		h.Message = "not available"
	}
	return h
}

// initObservability starts the OTLP tracer and meter and returns the request
// metrics plus a shutdown func that flushes both.
func initObservability(ctx context.Context, cfg *config.Config) (*observability.Metrics, func(), error) {
	flush, err := observability.Setup(ctx, cfg.Observability, observability.Identity{
		Name:        serviceName,
		Version:     version.Version,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init telemetry: %w", err)
	}

	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		flush(flushCtx) //nolint:errcheck
		return nil, nil, fmt.Errorf("init metrics: %w", err)
	}

	shutdown := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := flush(flushCtx); err != nil {
			logger.Warn("Telemetry shutdown error", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
	}
	return metrics, shutdown, nil
}

// printToken mints a bearer token for the named client so operators can hand
// out credentials without a separate tool.
func printToken(cfg auth.Config, client string) error {
	mgr, err := auth.NewManager(cfg)
	if err != nil {
		return err
	}
	token, err := mgr.Generate(client)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
