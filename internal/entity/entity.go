package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BrowserType string

const (
	BrowserFirefox  BrowserType = "firefox"
	BrowserChromium BrowserType = "chromium"
	BrowserWebKit   BrowserType = "webkit"
)

// ParseBrowserType validates a configured browser name.
func ParseBrowserType(s string) (BrowserType, error) {
	switch BrowserType(s) {
	case BrowserFirefox, BrowserChromium, BrowserWebKit:
		return BrowserType(s), nil
	default:
		return "", fmt.Errorf("unknown browser type %q (must be firefox, chromium or webkit)", s)
	}
}

type SessionInfo struct {
	ID        uuid.UUID
	Browser   BrowserType
	Headless  bool
	CreatedAt time.Time
}

// FormEntry is one step of a tab-through form fill. Exactly one of
// Text, Skip or the arrow-down fields is meaningful per entry.
type FormEntry struct {
	Text string
	// ArrowDown presses ArrowDown instead of typing. When ArrowDownMax
	// is greater, the press count is picked at random from
	// [ArrowDown, ArrowDownMax], which suits select widgets.
	ArrowDown    int
	ArrowDownMax int
	Skip         bool
}

func TextEntry(text string) FormEntry {
	return FormEntry{Text: text}
}

func SkipEntry() FormEntry {
	return FormEntry{Skip: true}
}

func ArrowDownEntry(times int) FormEntry {
	return FormEntry{ArrowDown: times}
}

func ArrowDownRangeEntry(min, max int) FormEntry {
	return FormEntry{ArrowDown: min, ArrowDownMax: max}
}

type SendKeysOptions struct {
	ClickFirst bool
	ClearFirst bool
}

type ScrollDirection string

const (
	ScrollUp     ScrollDirection = "up"
	ScrollDown   ScrollDirection = "down"
	ScrollTop    ScrollDirection = "top"
	ScrollBottom ScrollDirection = "bottom"
)

type PageState struct {
	URL       string
	Title     string
	Elements  []Element
	Timestamp time.Time
}

type Element struct {
	Tag         string
	Text        string
	XPath       string
	Attributes  map[string]string
	Visible     bool
	Clickable   bool
	BoundingBox BoundingBox
}

type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}
