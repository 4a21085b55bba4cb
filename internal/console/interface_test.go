package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"webuser/internal/config"
	"webuser/internal/entity"
	"webuser/internal/ports"
)

type recordingBrowser struct {
	ports.Browser

	navigated []string
	clicked   []string
	typed     []string
	filled    [][]entity.FormEntry
	waited    []string
	switched  []int
	removed   []string
	measured  []string
	scrolled  []string
	frames    []string
	exits     int
	dismissed int
	turbo     *bool
}

func (b *recordingBrowser) Navigate(_ context.Context, url string) error {
	b.navigated = append(b.navigated, url)

	return nil
}

func (b *recordingBrowser) Click(_ context.Context, locator string) error {
	b.clicked = append(b.clicked, locator)

	return nil
}

func (b *recordingBrowser) SendKeys(_ context.Context, locator, text string, opts entity.SendKeysOptions) error {
	b.typed = append(b.typed, locator+"="+text)

	return nil
}

func (b *recordingBrowser) FillNext(_ context.Context, entries []entity.FormEntry) error {
	b.filled = append(b.filled, entries)

	return nil
}

func (b *recordingBrowser) WaitFor(_ context.Context, locator string, _ time.Duration) error {
	b.waited = append(b.waited, locator)

	return nil
}

func (b *recordingBrowser) SwitchTab(_ context.Context, index int) error {
	b.switched = append(b.switched, index)

	return nil
}

func (b *recordingBrowser) Remove(_ context.Context, locator string) error {
	b.removed = append(b.removed, locator)

	return nil
}

func (b *recordingBrowser) Length(_ context.Context, locator string) (int, error) {
	b.measured = append(b.measured, locator)

	return 4, nil
}

func (b *recordingBrowser) ScrollIntoView(_ context.Context, locator string) error {
	b.scrolled = append(b.scrolled, locator)

	return nil
}

func (b *recordingBrowser) EnterFrame(_ context.Context, locator string) error {
	b.frames = append(b.frames, locator)

	return nil
}

func (b *recordingBrowser) ExitFrame(_ context.Context) error {
	b.exits++

	return nil
}

func (b *recordingBrowser) DismissAlerts(_ context.Context) error {
	b.dismissed++

	return nil
}

func (b *recordingBrowser) SetTurbo(on bool) {
	b.turbo = &on
}

func newTestInterface(b ports.Browser) *Interface {
	return NewInterface(Params{
		Config: &config.Config{
			AppConfig:     &config.AppConfig{},
			BrowserConfig: &config.BrowserConfig{Type: "firefox"},
		},
		Logger:  zap.NewNop(),
		Browser: b,
	})
}

func TestHandleCommand_Routing(t *testing.T) {
	b := &recordingBrowser{}
	i := newTestInterface(b)

	require.NoError(t, i.handleCommand("open https://example.com"))
	require.NoError(t, i.handleCommand("click //button[1]"))
	require.NoError(t, i.handleCommand(`type //input[@id="q"] hello world`))
	require.NoError(t, i.handleCommand("wait //div 2"))
	require.NoError(t, i.handleCommand("tab 1"))
	require.NoError(t, i.handleCommand("turbo off"))

	assert.Equal(t, []string{"https://example.com"}, b.navigated)
	assert.Equal(t, []string{"//button[1]"}, b.clicked)
	assert.Equal(t, []string{`//input[@id="q"]=hello world`}, b.typed)
	assert.Equal(t, []string{"//div"}, b.waited)
	assert.Equal(t, []int{1}, b.switched)
	require.NotNil(t, b.turbo)
	assert.False(t, *b.turbo)
}

func TestHandleCommand_ElementUtilities(t *testing.T) {
	b := &recordingBrowser{}
	i := newTestInterface(b)

	require.NoError(t, i.handleCommand("remove //div[@id='overlay']"))
	require.NoError(t, i.handleCommand("length //select"))
	require.NoError(t, i.handleCommand("scrollto //footer"))
	require.NoError(t, i.handleCommand("frame //iframe[1]"))
	require.NoError(t, i.handleCommand("frame parent"))
	require.NoError(t, i.handleCommand("alerts dismiss"))

	assert.Equal(t, []string{"//div[@id='overlay']"}, b.removed)
	assert.Equal(t, []string{"//select"}, b.measured)
	assert.Equal(t, []string{"//footer"}, b.scrolled)
	assert.Equal(t, []string{"//iframe[1]"}, b.frames)
	assert.Equal(t, 1, b.exits)
	assert.Equal(t, 1, b.dismissed)
	assert.Error(t, i.handleCommand("alerts ignore"))
}

func TestHandleCommand_Fill(t *testing.T) {
	b := &recordingBrowser{}
	i := newTestInterface(b)

	require.NoError(t, i.handleCommand("fill alice|skip|down:3|bob"))

	require.Len(t, b.filled, 1)
	assert.Equal(t, []entity.FormEntry{
		entity.TextEntry("alice"),
		entity.SkipEntry(),
		entity.ArrowDownEntry(3),
		entity.TextEntry("bob"),
	}, b.filled[0])
}

func TestHandleCommand_Errors(t *testing.T) {
	b := &recordingBrowser{}
	i := newTestInterface(b)

	assert.Error(t, i.handleCommand("type //input"))
	assert.Error(t, i.handleCommand("fill"))
	assert.Error(t, i.handleCommand("turbo sideways"))
	assert.Error(t, i.handleCommand("blorp"))
	assert.Error(t, i.handleCommand("tab nope"))
	assert.Error(t, i.handleCommand("cookies eat"))
}

func TestHandleCommand_Exit(t *testing.T) {
	i := newTestInterface(&recordingBrowser{})

	err := i.handleCommand("exit")
	require.Error(t, err)
	assert.Equal(t, "exit", err.Error())
}
