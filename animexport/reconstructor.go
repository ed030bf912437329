package animexport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/animexport/animexport/internal/browser"
	"github.com/hazyhaar/animexport/animexport/internal/host"
	"github.com/hazyhaar/animexport/animexport/internal/journal"
	"github.com/hazyhaar/animexport/animexport/internal/settle"
	"github.com/hazyhaar/animexport/idgen"
)

// Reconstructor runs captures against a live editor and replays journaled
// runs.
type Reconstructor struct {
	cfg      *Config
	logger   *slog.Logger
	newRunID idgen.Generator
	stdout   io.Writer
}

// New creates a Reconstructor.
func New(cfg *Config, logger *slog.Logger) *Reconstructor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconstructor{cfg: cfg, logger: logger, newRunID: idgen.Default}
}

// SetStdout redirects documents exported to "-".
func (r *Reconstructor) SetStdout(w io.Writer) { r.stdout = w }

// Capture starts or connects to Chrome, opens the editor and reconstructs
// the animation it shows.
func (r *Reconstructor) Capture(ctx context.Context) (*Report, error) {
	level, err := browser.ParseStealth(r.cfg.Browser.Stealth)
	if err != nil {
		return nil, err
	}
	mgr := browser.NewManager(browser.Config{
		RemoteURL:        r.cfg.Browser.Remote,
		UserDataDir:      r.cfg.Browser.UserDataDir,
		ResourceBlocking: r.cfg.Browser.ResourceBlocking,
		Stealth:          level,
		XvfbDisplay:      r.cfg.Browser.XvfbDisplay,
		NavigateTimeout:  r.cfg.Browser.NavigateTimeout,
		Logger:           r.logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return nil, fmt.Errorf("animexport: start browser: %w", err)
	}
	defer mgr.Close()

	mode := browser.PressMode(r.cfg.Playback.PressMode)
	var tab *browser.Tab
	if r.cfg.Editor.Attach {
		tab, err = browser.AttachTab(ctx, mgr, r.cfg.Editor.Pattern(), mode)
	} else {
		if r.cfg.Editor.URL == "" {
			return nil, fmt.Errorf("animexport: editor url is required")
		}
		tab, err = browser.OpenTab(ctx, mgr, r.cfg.Editor.URL, mode)
	}
	if err != nil {
		return nil, err
	}
	defer tab.Close()

	return r.capture(ctx, tab, tab.PageURL)
}

// capture runs the pipeline over h, journaling it when a journal is
// configured.
func (r *Reconstructor) capture(ctx context.Context, h host.Host, editorURL string) (*Report, error) {
	token, err := resolveToken("", r.cfg.Session.Token)
	if err != nil {
		return nil, err
	}
	opts := Options{Config: r.cfg, Token: token, Stdout: r.stdout, Logger: r.logger}

	if r.cfg.Journal.Path == "" {
		return Run(ctx, h, opts)
	}

	store, err := journal.Open(r.cfg.Journal.Path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	runID := r.newRunID()
	if err := store.Begin(ctx, runID, editorURL, token); err != nil {
		return nil, err
	}
	settings, err := yaml.Marshal(settingsOf(r.cfg))
	if err != nil {
		return nil, fmt.Errorf("animexport: encode run settings: %w", err)
	}
	if err := store.SetSettings(ctx, runID, string(settings)); err != nil {
		return nil, err
	}
	r.logger.Info("animexport: journaling run", "run_id", runID, "path", r.cfg.Journal.Path)

	report, runErr := Run(ctx, journal.NewRecorder(h, store, runID), opts)

	// The run may have been cancelled; the outcome is still recorded.
	if err := store.Finish(context.WithoutCancel(ctx), runID, outcome(report, runErr)); err != nil {
		r.logger.Warn("animexport: journal finish failed", "run_id", runID, "error", err)
	}
	if runErr != nil {
		return nil, runErr
	}
	report.RunID = runID
	return report, nil
}

// Replay reruns a journaled capture without a browser, with the run's own
// session token and output-shaping settings, and reports whether the output
// matches. It never overwrites the captured document: when the configured
// output is the run's own output path the replay goes to "<name>.replay<ext>".
func (r *Reconstructor) Replay(ctx context.Context, runID string) (*Report, error) {
	if r.cfg.Journal.Path == "" {
		return nil, fmt.Errorf("animexport: replay needs a journal path")
	}
	store, err := journal.Open(r.cfg.Journal.Path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	h, run, err := store.LoadHost(ctx, runID)
	if err != nil {
		return nil, err
	}
	cfg := *r.cfg
	if run.Settings != "" {
		var s runSettings
		if err := yaml.Unmarshal([]byte(run.Settings), &s); err != nil {
			return nil, fmt.Errorf("animexport: run %s settings: %w", runID, err)
		}
		s.apply(&cfg)
	}
	if out := replayPath(cfg.Export.Output, run.OutputPath); out != cfg.Export.Output {
		r.logger.Info("animexport: replay output moved off the captured document", "run_id", runID, "output", out)
		cfg.Export.Output = out
	}

	report, err := Run(ctx, h, Options{
		Config: &cfg,
		Token:  run.SessionToken,
		Waiter: settle.None{},
		Stdout: r.stdout,
		Logger: r.logger,
	})
	if err != nil {
		return nil, err
	}
	report.RunID = runID
	report.Reference = run.OutputSHA256

	r.logger.Info("animexport: replay finished",
		"run_id", runID, "matches", report.Matches(), "sha256", report.Output.SHA256)
	return report, nil
}

// Runs lists journaled runs, most recent first.
func (r *Reconstructor) Runs(ctx context.Context, limit int) ([]JournalRun, error) {
	if r.cfg.Journal.Path == "" {
		return nil, fmt.Errorf("animexport: no journal path configured")
	}
	store, err := journal.Open(r.cfg.Journal.Path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.List(ctx, limit)
}

// runSettings are the configuration values that shape a run's output. They
// are journaled with the run so a replay reproduces it under any config.
type runSettings struct {
	Selectors SelectorsConfig `yaml:"selectors"`
	Playback  PlaybackConfig  `yaml:"playback"`
	ViewBox   string          `yaml:"view_box"`
	Trigger   string          `yaml:"trigger"`
}

func settingsOf(cfg *Config) runSettings {
	return runSettings{
		Selectors: cfg.Selectors,
		Playback:  cfg.Playback,
		ViewBox:   cfg.Export.ViewBox,
		Trigger:   cfg.Export.Trigger,
	}
}

func (s runSettings) apply(cfg *Config) {
	cfg.Selectors = s.Selectors
	cfg.Playback = s.Playback
	cfg.Export.ViewBox = s.ViewBox
	cfg.Export.Trigger = s.Trigger
}

// replayPath returns out, or a sibling of it when out would overwrite the
// captured document.
func replayPath(out, captured string) string {
	if out == "-" || captured == "" || filepath.Clean(out) != filepath.Clean(captured) {
		return out
	}
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + ".replay" + ext
}

func outcome(report *Report, err error) journal.Outcome {
	if err != nil {
		return journal.Outcome{Err: err}
	}
	return journal.Outcome{
		KeyCount:   report.KeyTimes,
		TotalTime:  report.TotalTime,
		OutputPath: report.Output.Path,
		SHA256:     report.Output.SHA256,
		Size:       report.Output.Bytes,
	}
}
