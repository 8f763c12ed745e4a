// Command voicenotes transcribes a single recording from the command line.
// It prints the transcript (or a rendered notes document) to stdout and can
// export the result to Notion or Google Docs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"github.com/skillsenselab/voicenotes/audio"
	"github.com/skillsenselab/voicenotes/audio/ffmpeg"
	"github.com/skillsenselab/voicenotes/audio/native"
	"github.com/skillsenselab/voicenotes/config"
	"github.com/skillsenselab/voicenotes/export"
	"github.com/skillsenselab/voicenotes/export/gdocs"
	"github.com/skillsenselab/voicenotes/export/notion"
	"github.com/skillsenselab/voicenotes/logger"
	"github.com/skillsenselab/voicenotes/notes"
	"github.com/skillsenselab/voicenotes/pipeline"
	"github.com/skillsenselab/voicenotes/render"
	"github.com/skillsenselab/voicenotes/resilience"
	"github.com/skillsenselab/voicenotes/secrets"
	"github.com/skillsenselab/voicenotes/source"
	"github.com/skillsenselab/voicenotes/source/s3"
	"github.com/skillsenselab/voicenotes/transcription"
	"github.com/skillsenselab/voicenotes/transcription/openai"
	"github.com/skillsenselab/voicenotes/transcription/whisper"
	"github.com/skillsenselab/voicenotes/version"
)

type options struct {
	input      string
	language   string
	maxSegment float64
	withNotes  bool
	exportTo   string
	outPath    string
	title      string
	configFile string
	gdocsAuth  bool
}

func main() {
	var (
		opts        options
		showVersion bool
	)
	flag.StringVar(&opts.input, "input", "", "recording to transcribe: local path or s3:// URL")
	flag.StringVar(&opts.language, "language", "", "language hint (ISO-639-1 tag, or auto)")
	flag.Float64Var(&opts.maxSegment, "max-segment", 0, "max segment length in seconds (0 = configured default)")
	flag.BoolVar(&opts.withNotes, "notes", false, "analyze the transcript into structured notes")
	flag.StringVar(&opts.exportTo, "export", "", "export target: notion or gdocs")
	flag.StringVar(&opts.outPath, "out", "", "write the result to this file instead of stdout")
	flag.StringVar(&opts.title, "title", "", "document title (default: derived from the input name)")
	flag.StringVar(&opts.configFile, "config", "", "path to config file (default: auto-discover)")
	flag.BoolVar(&opts.gdocsAuth, "gdocs-auth", false, "run the Google Docs consent flow, store the token, and exit")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("voicenotes %s\n", version.GetFullVersion())
		return
	}

	os.Exit(run(opts))
}

func run(opts options) int {
	var loadOpts []config.LoaderOption
	if opts.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(opts.configFile))
	}

	var cfg config.Config
	if err := config.Load("voicenotes", &cfg, loadOpts...); err != nil {
		return fatal(err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fatal(err)
	}

	// The transcript goes to stdout; keep logs off it.
	cfg.Logging.Output = "stderr"
	logger.Init(cfg.Logging)
	log := logger.New(&cfg.Logging, "voicenotes")
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.gdocsAuth {
		if err := runGDocsAuth(ctx, &cfg); err != nil {
			return fatal(err)
		}
		return 0
	}

	if opts.input == "" {
		fmt.Fprintln(os.Stderr, "voicenotes: -input is required")
		flag.Usage()
		return 2
	}
	switch opts.exportTo {
	case "", "none":
		opts.exportTo = ""
	case notion.ProviderName, gdocs.ProviderName:
	default:
		fmt.Fprintf(os.Stderr, "voicenotes: unknown export target %q (want notion or gdocs)\n", opts.exportTo)
		return 2
	}

	in, err := openInput(ctx, &cfg, opts.input)
	if err != nil {
		return fatal(err)
	}
	defer in.Close()

	recognizer := buildRecognizer(&cfg)
	decoders := []audio.Decoder{
		ffmpeg.New(cfg.FFmpeg, log),
		native.New(log),
	}
	pipe, err := pipeline.New(cfg.Pipeline, recognizer, decoders, log)
	if err != nil {
		return fatal(err)
	}

	out, err := pipe.Run(ctx, pipeline.Request{
		Path:              in.Path,
		Source:            in.Reader,
		Name:              in.Name,
		Language:          opts.language,
		MaxSegmentSeconds: opts.maxSegment,
	})
	if err != nil {
		return fatal(err)
	}
	for _, f := range out.Failed {
		fmt.Fprintf(os.Stderr, "warning: %v\n", f)
	}

	title := opts.title
	if title == "" {
		title = titleFrom(in.Name)
	}

	var digest *notes.Notes
	if opts.withNotes || opts.exportTo != "" {
		digest = notes.Analyze(out.Text)
	}

	content := out.Text
	if digest != nil {
		content = render.Markdown(render.Document{
			Title:      title,
			Transcript: out.Text,
			Notes:      digest,
		})
	}

	if err := writeResult(opts.outPath, content); err != nil {
		return fatal(err)
	}

	// A failed export is advisory, same as in the HTTP API: the transcript
	// has already been delivered.
	if opts.exportTo != "" {
		if err := runExport(ctx, &cfg, log, opts.exportTo, title, content, digest); err != nil {
			fmt.Fprintf(os.Stderr, "warning: export to %s failed: %v\n", opts.exportTo, err)
		}
	}
	return 0
}

func fatal(err error) int {
	fmt.Fprintf(os.Stderr, "voicenotes: %v\n", err)
	return 1
}

// openInput resolves a local path or s3:// reference. The S3 opener is only
// dialed when the reference needs it.
func openInput(ctx context.Context, cfg *config.Config, ref string) (*source.Input, error) {
	openers := []source.Opener{source.Local{}}
	if strings.HasPrefix(strings.ToLower(ref), "s3://") {
		s3opener, err := s3.New(ctx, cfg.Source.S3)
		if err != nil {
			return nil, err
		}
		openers = append(openers, s3opener)
	}
	return source.NewResolver(openers...).Open(ctx, ref)
}

func buildRecognizer(cfg *config.Config) *transcription.Fallback {
	reg := transcription.NewRegistry()
	reg.Set(whisper.ProviderName, whisper.NewProvider(cfg.Transcription.Whisper))
	if cfg.Transcription.OpenAI.APIKey != "" {
		reg.Set(openai.ProviderName, openai.NewProvider(cfg.Transcription.OpenAI))
	}
	return transcription.NewFallback(reg, cfg.Transcription.Priority)
}

func writeResult(path, content string) error {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if path == "" {
		_, err := os.Stdout.WriteString(content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, log *logger.Logger, name, title, md string, digest *notes.Notes) error {
	target, err := buildExportTarget(cfg, name)
	if err != nil {
		return err
	}
	wrapped := export.WithRetry(target, resilience.DefaultRetryConfig(), log)
	receipt, err := wrapped.Export(ctx, export.Document{
		Title:    title,
		Markdown: md,
		Actions:  digest.Actions,
	})
	if err != nil {
		return err
	}
	if receipt.URL != "" {
		fmt.Fprintf(os.Stderr, "exported to %s: %s\n", receipt.Target, receipt.URL)
	} else {
		fmt.Fprintf(os.Stderr, "exported to %s\n", receipt.Target)
	}
	return nil
}

func buildExportTarget(cfg *config.Config, name string) (export.Target, error) {
	switch name {
	case notion.ProviderName:
		if cfg.Export.Notion.Token == "" || cfg.Export.Notion.DatabaseID == "" {
			return nil, fmt.Errorf("export.notion.token and export.notion.database_id are required")
		}
		return notion.NewTarget(cfg.Export.Notion), nil
	case gdocs.ProviderName:
		if cfg.Export.GDocs.ClientID == "" {
			return nil, fmt.Errorf("export.gdocs.client_id is required")
		}
		vault, err := secrets.New(cfg.Secrets.Passphrase)
		if err != nil {
			return nil, err
		}
		return gdocs.NewTarget(cfg.Export.GDocs, vault), nil
	}
	return nil, fmt.Errorf("unknown export target %q", name)
}

// runGDocsAuth walks the one-time OAuth consent flow and seals the token
// into the configured token file.
func runGDocsAuth(ctx context.Context, cfg *config.Config) error {
	if cfg.Export.GDocs.ClientID == "" {
		return fmt.Errorf("export.gdocs.client_id is not configured")
	}
	vault, err := secrets.New(cfg.Secrets.Passphrase)
	if err != nil {
		return err
	}
	target := gdocs.NewTarget(cfg.Export.GDocs, vault)
	oauthCfg := target.OAuthConfig()

	url := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(os.Stderr, "Open this URL in a browser, approve access, then paste the code here:\n\n  %s\n\ncode: ", url)

	var code string
	if _, err := fmt.Scanln(&code); err != nil {
		return fmt.Errorf("read authorization code: %w", err)
	}
	tok, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := target.SaveToken(tok); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "token saved to %s\n", cfg.Export.GDocs.TokenFile)
	return nil
}

// titleFrom derives a document title from the recording name.
func titleFrom(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.TrimSpace(base)
	if base == "" || base == "." {
		return "Voice notes " + time.Now().Format("2006-01-02")
	}
	return base
}
