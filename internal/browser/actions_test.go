package browser

import (
	"context"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webuser/internal/entity"
)

// The fakes embed the playwright interfaces and override only what the
// operations under test touch; anything else panics through the
// embedded nil interface.
type fakeBrowserContext struct {
	playwright.BrowserContext
}

type fakePage struct {
	playwright.Page

	locator        *fakeLocator
	frameSelectors []string
	dialogHandlers int
}

func (p *fakePage) IsClosed() bool {
	return false
}

func (p *fakePage) Keyboard() playwright.Keyboard {
	return nil
}

func (p *fakePage) Locator(selector string, options ...playwright.PageLocatorOptions) playwright.Locator {
	p.locator.selectors = append(p.locator.selectors, selector)

	return p.locator
}

func (p *fakePage) FrameLocator(selector string) playwright.FrameLocator {
	p.frameSelectors = append(p.frameSelectors, selector)

	return &fakeFrameLocator{}
}

func (p *fakePage) Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error) {
	return nil, nil
}

func (p *fakePage) OnDialog(fn func(playwright.Dialog)) {
	p.dialogHandlers++
}

// embeddedFrameLocator lets fakeFrameLocator embed the interface without the
// embedded field name colliding with its FrameLocator method.
type embeddedFrameLocator = playwright.FrameLocator

type fakeFrameLocator struct {
	embeddedFrameLocator

	nested []string
}

func (f *fakeFrameLocator) FrameLocator(selector string) playwright.FrameLocator {
	f.nested = append(f.nested, selector)

	return &fakeFrameLocator{}
}

// embeddedLocator serves the same purpose as embeddedFrameLocator: the
// Locator interface has a Locator method, which would collide with the
// embedded field name.
type embeddedLocator = playwright.Locator

type fakeLocator struct {
	embeddedLocator

	selectors   []string
	clickOpts   []playwright.LocatorClickOptions
	clearOpts   []playwright.LocatorClearOptions
	pressOpts   []playwright.LocatorPressSequentiallyOptions
	pressed     []string
	evalOpts    []playwright.LocatorEvaluateOptions
	evaluated   []string
	evalResult  any
	scrollOpts  []playwright.LocatorScrollIntoViewIfNeededOptions
	scrollCalls int
}

func (l *fakeLocator) First() playwright.Locator {
	return l
}

func (l *fakeLocator) Click(options ...playwright.LocatorClickOptions) error {
	l.clickOpts = append(l.clickOpts, options...)

	return nil
}

func (l *fakeLocator) Clear(options ...playwright.LocatorClearOptions) error {
	l.clearOpts = append(l.clearOpts, options...)

	return nil
}

func (l *fakeLocator) PressSequentially(text string, options ...playwright.LocatorPressSequentiallyOptions) error {
	l.pressed = append(l.pressed, text)
	l.pressOpts = append(l.pressOpts, options...)

	return nil
}

func (l *fakeLocator) Evaluate(expression string, arg interface{}, options ...playwright.LocatorEvaluateOptions) (interface{}, error) {
	l.evaluated = append(l.evaluated, expression)
	l.evalOpts = append(l.evalOpts, options...)

	return l.evalResult, nil
}

func (l *fakeLocator) ScrollIntoViewIfNeeded(options ...playwright.LocatorScrollIntoViewIfNeededOptions) error {
	l.scrollCalls++
	l.scrollOpts = append(l.scrollOpts, options...)

	return nil
}

func newFakeSession(t *testing.T) (*Session, *fakePage) {
	t.Helper()

	s := newTestSession(t)
	page := &fakePage{locator: &fakeLocator{}}

	s.page = page
	s.browserCtx = fakeBrowserContext{}
	s.ready = true
	s.pace.sleep = func(time.Duration) {}
	s.retry.sleep = func(time.Duration) {}

	return s, page
}

// Every driver call inside a retry attempt carries the poll-interval
// timeout; anything longer and a detached element would stall the
// attempt instead of surfacing as a retryable failure.
func TestSendKeys_BoundsEachDriverCall(t *testing.T) {
	s, page := newFakeSession(t)

	err := s.SendKeys(context.Background(), "//input", "hello", entity.SendKeysOptions{
		ClickFirst: true,
		ClearFirst: true,
	})
	require.NoError(t, err)

	interval := float64(s.config.BrowserConfig.PollInterval)

	require.Len(t, page.locator.clickOpts, 1)
	require.NotNil(t, page.locator.clickOpts[0].Timeout)
	assert.Equal(t, interval, *page.locator.clickOpts[0].Timeout)

	require.Len(t, page.locator.clearOpts, 1)
	require.NotNil(t, page.locator.clearOpts[0].Timeout)
	assert.Equal(t, interval, *page.locator.clearOpts[0].Timeout)

	require.Len(t, page.locator.pressOpts, 1)
	require.NotNil(t, page.locator.pressOpts[0].Timeout)
	assert.Equal(t, interval, *page.locator.pressOpts[0].Timeout)
	require.NotNil(t, page.locator.pressOpts[0].Delay)

	assert.Equal(t, []string{"hello"}, page.locator.pressed)
}

func TestEnterFrame_StacksAndExits(t *testing.T) {
	s, page := newFakeSession(t)
	ctx := context.Background()

	require.NoError(t, s.EnterFrame(ctx, "//iframe[1]"))
	require.Len(t, s.frames, 1)
	assert.Equal(t, []string{"xpath=//iframe[1]"}, page.frameSelectors)

	require.NoError(t, s.EnterFrame(ctx, "//iframe[2]"))
	require.Len(t, s.frames, 2)
	// The second frame resolves inside the first, not from the page.
	assert.Len(t, page.frameSelectors, 1)

	require.NoError(t, s.ExitFrame(ctx))
	assert.Len(t, s.frames, 1)

	require.NoError(t, s.ExitFrame(ctx))
	require.NoError(t, s.ExitFrame(ctx))
	assert.Empty(t, s.frames)
}

func TestNavigate_ResetsFrameScope(t *testing.T) {
	s, _ := newFakeSession(t)
	ctx := context.Background()

	require.NoError(t, s.EnterFrame(ctx, "//iframe"))
	require.Len(t, s.frames, 1)

	require.NoError(t, s.Navigate(ctx, "https://example.com"))
	assert.Empty(t, s.frames)
}

func TestDismissAlerts_RegistersHandlerOnce(t *testing.T) {
	s, page := newFakeSession(t)
	ctx := context.Background()

	require.NoError(t, s.DismissAlerts(ctx))
	require.NoError(t, s.DismissAlerts(ctx))
	assert.Equal(t, 1, page.dialogHandlers)

	// Switching pages re-arms the handler on the new page.
	next := &fakePage{locator: &fakeLocator{}}
	s.setPage(next)
	assert.Equal(t, 1, next.dialogHandlers)
}

func TestRemove(t *testing.T) {
	s, page := newFakeSession(t)

	require.NoError(t, s.Remove(context.Background(), "//div[@id='overlay']"))

	require.Len(t, page.locator.evaluated, 1)
	assert.Equal(t, "el => el.remove()", page.locator.evaluated[0])
	require.Len(t, page.locator.evalOpts, 1)
	require.NotNil(t, page.locator.evalOpts[0].Timeout)
	assert.Equal(t, float64(s.config.BrowserConfig.PollInterval), *page.locator.evalOpts[0].Timeout)
}

func TestLength(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   int
	}{
		{name: "int result", result: 12, want: 12},
		{name: "float result", result: float64(7), want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, page := newFakeSession(t)
			page.locator.evalResult = tt.result

			got, err := s.Length(context.Background(), "//select")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{"el => el.children.length"}, page.locator.evaluated)
		})
	}
}

func TestScrollIntoView(t *testing.T) {
	s, page := newFakeSession(t)

	require.NoError(t, s.ScrollIntoView(context.Background(), "//footer"))

	assert.Equal(t, 1, page.locator.scrollCalls)
	require.Len(t, page.locator.scrollOpts, 1)
	require.NotNil(t, page.locator.scrollOpts[0].Timeout)
}
