package browser

import (
	"context"
	"strings"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"webuser/pkg/logg"
	"webuser/pkg/tracing"
)

// EnterFrame scopes subsequent element operations to the iframe the
// locator points at. Frames nest: entering again while inside a frame
// resolves the locator within the current one.
func (s *Session) EnterFrame(ctx context.Context, locator string) (err error) {
	const op = "EnterFrame"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, locator))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", locator))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	if !strings.HasPrefix(locator, "xpath=") {
		locator = "xpath=" + locator
	}

	var frame playwright.FrameLocator
	if n := len(s.frames); n > 0 {
		frame = s.frames[n-1].FrameLocator(locator)
	} else {
		frame = s.page.FrameLocator(locator)
	}

	s.frames = append(s.frames, frame)
	step.AddEvent("entered frame")

	return nil
}

// ExitFrame returns to the parent frame. At the top level it is a
// no-op, matching how drivers treat switching to the parent of the
// main document.
func (s *Session) ExitFrame(ctx context.Context) (err error) {
	const op = "ExitFrame"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	if n := len(s.frames); n > 0 {
		s.frames = s.frames[:n-1]
	}

	return nil
}

// DismissAlerts installs a dialog handler that dismisses every alert,
// confirm, and prompt the page raises. Registration survives tab
// switches and is applied at most once per page.
func (s *Session) DismissAlerts(ctx context.Context) (err error) {
	const op = "DismissAlerts"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	if s.dismissAlerts {
		return nil
	}
	s.dismissAlerts = true

	s.registerDialogHandler()
	step.AddEvent("dialog handler installed")

	return nil
}

func (s *Session) registerDialogHandler() {
	logger := s.logger

	s.page.OnDialog(func(dialog playwright.Dialog) {
		if err := dialog.Dismiss(); err != nil {
			logger.Warn("Failed to dismiss dialog", zap.Error(err))
		}
	})
}
