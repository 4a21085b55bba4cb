package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"webuser/internal/entity"
	"webuser/pkg/apperr"
	"webuser/pkg/logg"
	"webuser/pkg/tracing"
)

// find resolves a locator to its first match, scoped to the innermost
// entered frame when there is one. Locators are XPath expressions;
// resolution is fresh on every call because a handle from an earlier
// resolution may already be stale.
func (s *Session) find(locator string) playwright.Locator {
	if !strings.HasPrefix(locator, "xpath=") {
		locator = "xpath=" + locator
	}

	if n := len(s.frames); n > 0 {
		return s.frames[n-1].Locator(locator).First()
	}

	return s.page.Locator(locator).First()
}

// attemptTimeout bounds a single driver call so the retrier, not the
// driver, owns the overall deadline.
func (s *Session) attemptTimeout() *float64 {
	return playwright.Float(float64(s.config.BrowserConfig.PollInterval))
}

func (s *Session) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	step.AddEvent("navigating to URL")

	_, err = s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(s.config.BrowserConfig.NavigateTimeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	s.frames = nil
	s.pace.chill(s.pace.arrival)
	step.AddEvent("navigation completed")

	return nil
}

func (s *Session) Text(ctx context.Context, locator string) (text string, err error) {
	const op = "Text"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, locator))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", locator))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return "", err
	}

	err = s.retry.do(ctx, op, func() error {
		var innerErr error
		text, innerErr = s.find(locator).InnerText(playwright.LocatorInnerTextOptions{
			Timeout: s.attemptTimeout(),
		})

		return innerErr
	})

	if err != nil {
		return "", s.wrapInteraction(op, locator, err)
	}

	return text, nil
}

func (s *Session) Click(ctx context.Context, locator string) (err error) {
	const op = "Click"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, locator))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", locator))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	err = s.retry.do(ctx, op, func() error {
		return s.find(locator).Click(playwright.LocatorClickOptions{
			Timeout: s.attemptTimeout(),
		})
	})

	if err != nil {
		return s.wrapInteraction(op, locator, err)
	}

	s.pace.chill(s.pace.afterClick)
	step.AddEvent("click completed")

	return nil
}

func (s *Session) SendKeys(ctx context.Context, locator, text string, opts entity.SendKeysOptions) (err error) {
	const op = "SendKeys"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, locator))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", locator))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	err = s.retry.do(ctx, op, func() error {
		element := s.find(locator)

		if opts.ClickFirst {
			if innerErr := element.Click(playwright.LocatorClickOptions{
				Timeout: s.attemptTimeout(),
			}); innerErr != nil {
				return innerErr
			}
		}

		if opts.ClearFirst {
			if innerErr := element.Clear(playwright.LocatorClearOptions{
				Timeout: s.attemptTimeout(),
			}); innerErr != nil {
				return innerErr
			}
		}

		return element.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
			Delay:   playwright.Float(float64(s.pace.keyDelay().Milliseconds())),
			Timeout: s.attemptTimeout(),
		})
	})

	if err != nil {
		return s.wrapInteraction(op, locator, err)
	}

	s.pace.chill(s.pace.afterField)
	step.AddEvent("send keys completed")

	return nil
}

func (s *Session) Clear(ctx context.Context, locator string) (err error) {
	const op = "Clear"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, locator))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", locator))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	err = s.retry.do(ctx, op, func() error {
		return s.find(locator).Clear(playwright.LocatorClearOptions{
			Timeout: s.attemptTimeout(),
		})
	})

	if err != nil {
		return s.wrapInteraction(op, locator, err)
	}

	s.pace.chill(s.pace.afterClick)

	return nil
}

// Remove detaches the element from the DOM, typically to get an
// overlay out of the way of the element underneath it.
func (s *Session) Remove(ctx context.Context, locator string) (err error) {
	const op = "Remove"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, locator))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", locator))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	err = s.retry.do(ctx, op, func() error {
		_, innerErr := s.find(locator).Evaluate("el => el.remove()", nil, playwright.LocatorEvaluateOptions{
			Timeout: s.attemptTimeout(),
		})

		return innerErr
	})

	if err != nil {
		return s.wrapInteraction(op, locator, err)
	}

	step.AddEvent("element removed")

	return nil
}

// Length returns the element's child count, e.g. the number of options
// in a select.
func (s *Session) Length(ctx context.Context, locator string) (length int, err error) {
	const op = "Length"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, locator))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", locator))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return 0, err
	}

	err = s.retry.do(ctx, op, func() error {
		result, innerErr := s.find(locator).Evaluate("el => el.children.length", nil, playwright.LocatorEvaluateOptions{
			Timeout: s.attemptTimeout(),
		})
		if innerErr != nil {
			return innerErr
		}

		switch v := result.(type) {
		case int:
			length = v
		case float64:
			length = int(v)
		default:
			return fmt.Errorf("unexpected child count result %T", result)
		}

		return nil
	})

	if err != nil {
		return 0, s.wrapInteraction(op, locator, err)
	}

	return length, nil
}

// ScrollIntoView scrolls the element into the viewport if it is not
// already there.
func (s *Session) ScrollIntoView(ctx context.Context, locator string) (err error) {
	const op = "ScrollIntoView"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, locator))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", locator))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	err = s.retry.do(ctx, op, func() error {
		return s.find(locator).ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
			Timeout: s.attemptTimeout(),
		})
	})

	if err != nil {
		return s.wrapInteraction(op, locator, err)
	}

	s.pace.chill(s.pace.afterClick)

	return nil
}

func (s *Session) Attribute(ctx context.Context, locator, name string) (value string, err error) {
	const op = "Attribute"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, locator))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("selector", locator),
		attribute.String("attribute", name))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return "", err
	}

	err = s.retry.do(ctx, op, func() error {
		var innerErr error
		value, innerErr = s.find(locator).GetAttribute(name, playwright.LocatorGetAttributeOptions{
			Timeout: s.attemptTimeout(),
		})

		return innerErr
	})

	if err != nil {
		return "", s.wrapInteraction(op, locator, err)
	}

	return value, nil
}

func (s *Session) SelectByValue(ctx context.Context, locator, value string) (err error) {
	const op = "SelectByValue"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, locator))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", locator))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	err = s.retry.do(ctx, op, func() error {
		_, innerErr := s.find(locator).SelectOption(playwright.SelectOptionValues{
			Values: &[]string{value},
		}, playwright.LocatorSelectOptionOptions{
			Timeout: s.attemptTimeout(),
		})

		return innerErr
	})

	if err != nil {
		return s.wrapInteraction(op, locator, err)
	}

	s.pace.chill(s.pace.afterField)

	return nil
}

// SelectByIndex selects an option by index. When max exceeds min the
// index is picked at random from [min, max], matching random form
// filling.
func (s *Session) SelectByIndex(ctx context.Context, locator string, min, max int) (err error) {
	const op = "SelectByIndex"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, locator))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", locator))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	if min < 0 || (max != 0 && max < min) {
		return apperr.InvalidReqError(op, "index", fmt.Errorf("invalid index range [%d, %d]", min, max))
	}

	index := min
	if max > min {
		index = min + s.rng.Intn(max-min+1)
	}

	err = s.retry.do(ctx, op, func() error {
		_, innerErr := s.find(locator).SelectOption(playwright.SelectOptionValues{
			Indexes: &[]int{index},
		}, playwright.LocatorSelectOptionOptions{
			Timeout: s.attemptTimeout(),
		})

		return innerErr
	})

	if err != nil {
		return s.wrapInteraction(op, locator, err)
	}

	s.pace.chill(s.pace.afterField)

	return nil
}

// FillNext tabs from the focused element through successive fields,
// filling one entry per field. The configured fill click chance adds a
// random Space press per field for checkbox-style forms.
func (s *Session) FillNext(ctx context.Context, entries []entity.FormEntry) (err error) {
	const op = "FillNext"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.Int("fields", len(entries)))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	if err := fillNext(s.keyboard, entries, s.config.BrowserConfig.FillClickChance, s.rng, s.pace); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "fill_next_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	step.AddEvent("form filled")

	return nil
}

// WaitFor blocks until the locator resolves to an attached element or
// the timeout elapses. A non-positive timeout falls back to the
// configured find timeout.
func (s *Session) WaitFor(ctx context.Context, locator string, timeout time.Duration) (err error) {
	const op = "WaitFor"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, locator))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("selector", locator))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	if timeout <= 0 {
		timeout = time.Duration(s.config.BrowserConfig.FindTimeout) * time.Millisecond
	}

	err = s.find(locator).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
			apperr.MetaReason:   "wait_selector_timeout",
			apperr.MetaSelector: locator,
		})
	}

	return nil
}

// WaitUntil polls the predicate at the configured interval until it
// holds. Useful for confirming a form submission landed.
func (s *Session) WaitUntil(ctx context.Context, cond func() bool, timeout time.Duration) (err error) {
	const op = "WaitUntil"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	if timeout <= 0 {
		timeout = time.Duration(s.config.BrowserConfig.FindTimeout) * time.Millisecond
	}

	return s.retry.waitUntil(ctx, op, cond, timeout)
}

func (s *Session) Eval(ctx context.Context, script string) (result any, err error) {
	const op = "Eval"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return nil, err
	}

	result, err = s.page.Evaluate(script)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
		})
	}

	return result, nil
}

func (s *Session) Scroll(ctx context.Context, direction entity.ScrollDirection, amount int) (err error) {
	const op = "Scroll"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("direction", string(direction)),
		attribute.Int("amount", amount))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	var script string

	switch direction {
	case entity.ScrollDown:
		script = fmt.Sprintf("window.scrollBy(0, %d)", amount)
	case entity.ScrollUp:
		script = fmt.Sprintf("window.scrollBy(0, -%d)", amount)
	case entity.ScrollBottom:
		script = "window.scrollTo(0, document.body.scrollHeight)"
	case entity.ScrollTop:
		script = "window.scrollTo(0, 0)"
	default:
		return apperr.InvalidReqError(op, "direction", fmt.Errorf("unknown scroll direction %q", direction))
	}

	step.AddEvent("scrolling page")

	_, err = s.page.Evaluate(script)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "scroll_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	s.pace.chill(s.pace.afterClick)

	return nil
}

func (s *Session) PageSource(ctx context.Context) (source string, err error) {
	const op = "PageSource"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return "", err
	}

	source, err = s.page.Content()
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "content_failed",
			apperr.MetaStage:  apperr.StagePageState,
		})
	}

	return source, nil
}

// CurrentURL returns the URL of the active tab, empty when no page is
// open.
func (s *Session) CurrentURL() string {
	if s.page == nil {
		return ""
	}

	return s.page.URL()
}

func (s *Session) Title(ctx context.Context) (title string, err error) {
	const op = "Title"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return "", err
	}

	title, err = s.page.Title()
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "title_failed",
			apperr.MetaStage:  apperr.StagePageState,
		})
	}

	return title, nil
}

func (s *Session) PageState(ctx context.Context) (state *entity.PageState, err error) {
	const op = "PageState"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return nil, err
	}

	url := s.page.URL()
	title, _ := s.page.Title()

	elements, err := s.Elements(ctx)
	if err != nil {
		logger.Warn("Failed to snapshot elements", zap.Error(err))
		elements = []entity.Element{}
	}

	return &entity.PageState{
		URL:       url,
		Title:     title,
		Elements:  elements,
		Timestamp: time.Now(),
	}, nil
}

// OpenTab opens a new tab after the current one and switches to it.
// With a non-empty url the tab navigates there first.
func (s *Session) OpenTab(ctx context.Context, url string) (err error) {
	const op = "OpenTab"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	page, err := s.browserCtx.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	s.setPage(page)

	if url != "" {
		return s.Navigate(ctx, url)
	}

	return nil
}

func (s *Session) SwitchTab(ctx context.Context, index int) (err error) {
	const op = "SwitchTab"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.Int("tab", index))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	pages := s.browserCtx.Pages()
	if index < 0 || index >= len(pages) {
		return apperr.Wrap(op, apperr.CodeInvalidArgument, fmt.Errorf("tab index %d out of range [0, %d)", index, len(pages)), map[string]any{
			apperr.MetaTab: index,
		})
	}

	s.setPage(pages[index])

	return nil
}

// CloseTab closes the given tab and switches back to the first one.
func (s *Session) CloseTab(ctx context.Context, index int) (err error) {
	const op = "CloseTab"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op, attribute.Int("tab", index))
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	pages := s.browserCtx.Pages()
	if index < 0 || index >= len(pages) {
		return apperr.Wrap(op, apperr.CodeInvalidArgument, fmt.Errorf("tab index %d out of range [0, %d)", index, len(pages)), map[string]any{
			apperr.MetaTab: index,
		})
	}

	if err := pages[index].Close(); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "tab_close_failed",
			apperr.MetaTab:    index,
		})
	}

	if remaining := s.browserCtx.Pages(); len(remaining) > 0 {
		s.setPage(remaining[0])
	}

	return nil
}

func (s *Session) TabCount() int {
	if s.browserCtx == nil {
		return 0
	}

	return len(s.browserCtx.Pages())
}

func (s *Session) DeleteCookies(ctx context.Context) (err error) {
	const op = "DeleteCookies"
	logger := s.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err := s.requireReady(op); err != nil {
		return err
	}

	if err := s.browserCtx.ClearCookies(); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "clear_cookies_failed",
		})
	}

	return nil
}

func (s *Session) wrapInteraction(op, locator string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Code == apperr.CodeTimeout {
		return err
	}

	return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
		apperr.MetaReason:   "interaction_failed",
		apperr.MetaStage:    apperr.StageInteraction,
		apperr.MetaSelector: locator,
	})
}
