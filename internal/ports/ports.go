package ports

import (
	"context"
	"time"

	"webuser/internal/entity"
)

type Browser interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Text(ctx context.Context, locator string) (string, error)
	Click(ctx context.Context, locator string) error
	SendKeys(ctx context.Context, locator string, text string, opts entity.SendKeysOptions) error
	Clear(ctx context.Context, locator string) error
	Remove(ctx context.Context, locator string) error
	Length(ctx context.Context, locator string) (int, error)
	ScrollIntoView(ctx context.Context, locator string) error
	Attribute(ctx context.Context, locator string, name string) (string, error)
	SelectByValue(ctx context.Context, locator string, value string) error
	SelectByIndex(ctx context.Context, locator string, min int, max int) error
	FillNext(ctx context.Context, entries []entity.FormEntry) error
	WaitFor(ctx context.Context, locator string, timeout time.Duration) error
	WaitUntil(ctx context.Context, cond func() bool, timeout time.Duration) error
	Eval(ctx context.Context, script string) (any, error)
	Scroll(ctx context.Context, direction entity.ScrollDirection, amount int) error
	PageSource(ctx context.Context) (string, error)
	CurrentURL() string
	Title(ctx context.Context) (string, error)
	Elements(ctx context.Context) ([]entity.Element, error)
	PageState(ctx context.Context) (*entity.PageState, error)
	OpenTab(ctx context.Context, url string) error
	SwitchTab(ctx context.Context, index int) error
	CloseTab(ctx context.Context, index int) error
	TabCount() int
	EnterFrame(ctx context.Context, locator string) error
	ExitFrame(ctx context.Context) error
	DismissAlerts(ctx context.Context) error
	DeleteCookies(ctx context.Context) error
	SetTurbo(on bool)
	Info() entity.SessionInfo
	IsReady() bool
}

// Keyboard is the focused-element key sink used by FillNext. The
// playwright keyboard satisfies it through a thin adapter so the
// tab-through sequence can be exercised without a browser.
type Keyboard interface {
	Press(key string) error
	Type(text string) error
}
