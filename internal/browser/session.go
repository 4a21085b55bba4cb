package browser

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"webuser/internal/config"
	"webuser/internal/entity"
	"webuser/internal/ports"
	"webuser/pkg/apperr"
	"webuser/pkg/logg"
	"webuser/pkg/tracing"
)

const (
	sessionName   = "BrowserSession"
	sessionTracer = "browser.session"
)

// Session owns one browser process and its navigation context. It is
// an exclusively-held resource: operations block the calling goroutine
// and concurrent use of one Session is not supported.
type Session struct {
	config     *config.Config
	logger     *zap.Logger
	tracer     trace.Tracer
	info       entity.SessionInfo
	playwright *playwright.Playwright
	browser    playwright.Browser
	browserCtx playwright.BrowserContext
	page       playwright.Page
	keyboard   ports.Keyboard
	frames     []playwright.FrameLocator
	retry      *retrier
	pace       *pacing
	rng        *rand.Rand
	ready      bool
	closed     bool

	// dismissAlerts keeps the auto-dismiss dialog handler sticky across
	// page switches.
	dismissAlerts bool
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewSession(params Params) *Session {
	id := uuid.New()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	browserCfg := params.Config.BrowserConfig

	return &Session{
		config: params.Config,
		logger: params.Logger.With(
			zap.String(logg.Layer, sessionName),
			zap.String(logg.Session, id.String()),
		),
		tracer: otel.Tracer(sessionTracer),
		info: entity.SessionInfo{
			ID:        id,
			Browser:   entity.BrowserType(browserCfg.Type),
			Headless:  browserCfg.Headless,
			CreatedAt: time.Now(),
		},
		retry: newRetrier(
			time.Duration(browserCfg.FindTimeout)*time.Millisecond,
			time.Duration(browserCfg.PollInterval)*time.Millisecond,
		),
		pace: newPacing(browserCfg.Turbo, rng),
		rng:  rng,
	}
}

// Run wraps a browser session with scoped acquisition: launch, invoke
// fn, and close on every exit path, panics included. Close is
// idempotent, so closing again inside fn is harmless.
func Run(ctx context.Context, b ports.Browser, fn func(ports.Browser) error) error {
	if err := b.Launch(ctx); err != nil {
		return err
	}

	defer func() {
		_ = b.Close(ctx)
	}()

	return fn(b)
}

func (s *Session) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if s.ready {
		logger.Warn("Browser already open")

		return nil
	}

	logger.Info("Launching browser...", zap.String(logg.Browser, s.config.BrowserConfig.Type))

	runOptions := &playwright.RunOptions{
		DriverDirectory: resolveDriverDir(s.config.BrowserConfig, logger),
		Browsers:        []string{s.config.BrowserConfig.Type},
	}

	step.AddEvent("installing playwright")

	err = playwright.Install(runOptions)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_install_failed",
			apperr.MetaStage:  apperr.StageDriver,
		})
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run(runOptions)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageDriver,
		})
	}
	s.playwright = pw

	step.AddEvent("launching browser")

	browser, err := s.browserType().Launch(s.launchOptions())
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	s.browser = browser

	browserCtx, err := browser.NewContext(s.contextOptions())
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	s.browserCtx = browserCtx

	page, err := browserCtx.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	s.setPage(page)

	s.ready = true
	s.closed = false
	logger.Info("Browser launched successfully")

	return nil
}

// Close tears the session down. It is idempotent and never surfaces
// teardown failures: they are logged so they cannot mask whatever
// error the caller is already handling.
func (s *Session) Close(ctx context.Context) error {
	const op = "Close"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer step.End(nil)

	if s.closed {
		return nil
	}
	s.closed = true
	s.ready = false

	logger.Info("Closing browser...")

	if s.browserCtx != nil {
		if err := s.browserCtx.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}
		s.browserCtx = nil
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
		s.browser = nil
	}

	if s.playwright != nil {
		if err := s.playwright.Stop(); err != nil {
			logger.Warn("Failed to stop playwright", zap.Error(err))
		}
		s.playwright = nil
	}

	s.page = nil
	s.keyboard = nil
	s.frames = nil
	s.dismissAlerts = false
	logger.Info("Browser closed")

	return nil
}

func (s *Session) Info() entity.SessionInfo {
	return s.info
}

func (s *Session) IsReady() bool {
	return s.ready
}

// SetTurbo toggles between instant interactions and human-paced ones.
func (s *Session) SetTurbo(on bool) {
	s.pace.setTurbo(on)
}

func (s *Session) browserType() playwright.BrowserType {
	switch entity.BrowserType(s.config.BrowserConfig.Type) {
	case entity.BrowserChromium:
		return s.playwright.Chromium
	case entity.BrowserWebKit:
		return s.playwright.WebKit
	default:
		return s.playwright.Firefox
	}
}

func (s *Session) launchOptions() playwright.BrowserTypeLaunchOptions {
	cfg := s.config.BrowserConfig

	options := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	}

	if entity.BrowserType(cfg.Type) == entity.BrowserChromium {
		options.Args = []string{
			"--disable-blink-features=AutomationControlled",
			"--mute-audio",
			"--disable-notifications",
		}
	}

	if cfg.DownloadDir != "" {
		if err := os.MkdirAll(cfg.DownloadDir, 0755); err == nil {
			options.DownloadsPath = playwright.String(cfg.DownloadDir)
		} else {
			s.logger.Warn("Failed to create download dir", zap.Error(err))
		}
	}

	return options
}

func (s *Session) contextOptions() playwright.BrowserNewContextOptions {
	cfg := s.config.BrowserConfig

	options := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 720,
		},
		AcceptDownloads:   playwright.Bool(true),
		JavaScriptEnabled: playwright.Bool(true),
	}

	if cfg.UserAgent != "" {
		options.UserAgent = playwright.String(cfg.UserAgent)
	}

	return options
}

// setPage makes page the active tab. Frame scoping belongs to the
// previous page, so the stack is dropped.
func (s *Session) setPage(page playwright.Page) {
	s.page = page
	s.keyboard = pageKeyboard{kb: page.Keyboard()}
	s.frames = nil

	if s.dismissAlerts {
		s.registerDialogHandler()
	}
}

func (s *Session) ensurePageActive() error {
	if s.browserCtx == nil {
		return fmt.Errorf("browser context is nil")
	}

	if s.page != nil && !s.page.IsClosed() {
		return nil
	}

	s.logger.Info("Page closed, reconnecting to active page...")

	for _, p := range s.browserCtx.Pages() {
		if !p.IsClosed() {
			s.setPage(p)

			return nil
		}
	}

	page, err := s.browserCtx.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create new page: %w", err)
	}

	s.setPage(page)

	return nil
}

// requireReady is the common preamble of every operation.
func (s *Session) requireReady(op string) error {
	if !s.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := s.ensurePageActive(); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	return nil
}

type pageKeyboard struct {
	kb playwright.Keyboard
}

func (k pageKeyboard) Press(key string) error {
	return k.kb.Press(key)
}

func (k pageKeyboard) Type(text string) error {
	return k.kb.Type(text)
}
