package console

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"webuser/internal/config"
	"webuser/internal/entity"
	"webuser/internal/ports"
	"webuser/pkg/logg"
)

type Interface struct {
	config   *config.Config
	logger   *zap.Logger
	browser  ports.Browser
	ctx      context.Context
	cancel   context.CancelFunc
	sigChan  chan os.Signal
	stopping bool
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Browser ports.Browser
}

func NewInterface(params Params) *Interface {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)

	return &Interface{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, "Console")),
		browser:  params.Browser,
		ctx:      ctx,
		cancel:   cancel,
		sigChan:  sigChan,
		stopping: false,
	}
}

func (i *Interface) Start() error {
	i.printBanner()
	i.printHelp()

	// Setup signal handler
	signal.Notify(i.sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-i.sigChan
		fmt.Println("\n\nInterrupt received, shutting down...")
		i.stopping = true
		i.Stop()
	}()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		if i.stopping {
			break
		}

		fmt.Print("\n> ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())

		if input == "" {
			continue
		}

		if err := i.handleCommand(input); err != nil {
			if err.Error() == "exit" {
				break
			}

			i.logger.Error("Command error", zap.Error(err))
			fmt.Printf("Error: %v\n", err)
		}
	}

	return nil
}

func (i *Interface) Stop() error {
	if i.stopping {
		return nil
	}

	i.stopping = true
	i.logger.Info("Stopping console interface...")

	i.cancel()

	fmt.Println("Goodbye!")
	os.Exit(0)

	return nil
}

func (i *Interface) handleCommand(input string) error {
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "help", "h":
		i.printHelp()

		return nil
	case "exit", "quit", "q":
		fmt.Println("Shutting down...")

		return fmt.Errorf("exit")
	case "open":
		return i.browser.Navigate(i.ctx, rest)
	case "text":
		text, err := i.browser.Text(i.ctx, rest)
		if err != nil {
			return err
		}

		fmt.Println(text)

		return nil
	case "click":
		return i.browser.Click(i.ctx, rest)
	case "type":
		locator, value, ok := strings.Cut(rest, " ")
		if !ok {
			return fmt.Errorf("usage: type XPATH TEXT")
		}

		return i.browser.SendKeys(i.ctx, locator, value, entity.SendKeysOptions{ClickFirst: true})
	case "clear":
		return i.browser.Clear(i.ctx, rest)
	case "remove":
		return i.browser.Remove(i.ctx, rest)
	case "length":
		length, err := i.browser.Length(i.ctx, rest)
		if err != nil {
			return err
		}

		fmt.Println(length)

		return nil
	case "scrollto":
		return i.browser.ScrollIntoView(i.ctx, rest)
	case "frame":
		if rest == "parent" {
			return i.browser.ExitFrame(i.ctx)
		}

		return i.browser.EnterFrame(i.ctx, rest)
	case "alerts":
		if rest != "dismiss" {
			return fmt.Errorf("usage: alerts dismiss")
		}

		return i.browser.DismissAlerts(i.ctx)
	case "attr":
		locator, name, ok := strings.Cut(rest, " ")
		if !ok {
			return fmt.Errorf("usage: attr XPATH NAME")
		}

		value, err := i.browser.Attribute(i.ctx, locator, name)
		if err != nil {
			return err
		}

		fmt.Println(value)

		return nil
	case "fill":
		return i.fill(rest)
	case "wait":
		return i.wait(rest)
	case "until":
		return i.until(rest)
	case "source":
		source, err := i.browser.PageSource(i.ctx)
		if err != nil {
			return err
		}

		fmt.Println(source)

		return nil
	case "url":
		fmt.Println(i.browser.CurrentURL())

		return nil
	case "title":
		title, err := i.browser.Title(i.ctx)
		if err != nil {
			return err
		}

		fmt.Println(title)

		return nil
	case "elements":
		return i.elements()
	case "scroll":
		return i.scroll(rest)
	case "eval":
		result, err := i.browser.Eval(i.ctx, rest)
		if err != nil {
			return err
		}

		fmt.Printf("%v\n", result)

		return nil
	case "tab":
		return i.tab(rest)
	case "tabs":
		fmt.Printf("%d tab(s) open\n", i.browser.TabCount())

		return nil
	case "cookies":
		if rest != "clear" {
			return fmt.Errorf("usage: cookies clear")
		}

		return i.browser.DeleteCookies(i.ctx)
	case "turbo":
		switch rest {
		case "on":
			i.browser.SetTurbo(true)
		case "off":
			i.browser.SetTurbo(false)
		default:
			return fmt.Errorf("usage: turbo on|off")
		}

		return nil
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
}

// fill parses "v1|v2|skip|down:3" into form entries and tabs them in.
func (i *Interface) fill(arg string) error {
	if arg == "" {
		return fmt.Errorf("usage: fill VALUE|VALUE|skip|down:N")
	}

	var entries []entity.FormEntry

	for _, field := range strings.Split(arg, "|") {
		switch {
		case field == "skip":
			entries = append(entries, entity.SkipEntry())
		case strings.HasPrefix(field, "down:"):
			times, err := strconv.Atoi(strings.TrimPrefix(field, "down:"))
			if err != nil {
				return fmt.Errorf("bad down count in %q: %w", field, err)
			}

			entries = append(entries, entity.ArrowDownEntry(times))
		default:
			entries = append(entries, entity.TextEntry(field))
		}
	}

	return i.browser.FillNext(i.ctx, entries)
}

func (i *Interface) wait(rest string) error {
	locator, timeoutArg, hasTimeout := strings.Cut(rest, " ")
	if locator == "" {
		return fmt.Errorf("usage: wait XPATH [SECONDS]")
	}

	var timeout time.Duration

	if hasTimeout {
		seconds, err := strconv.ParseFloat(timeoutArg, 64)
		if err != nil {
			return fmt.Errorf("bad timeout %q: %w", timeoutArg, err)
		}

		timeout = time.Duration(seconds * float64(time.Second))
	}

	return i.browser.WaitFor(i.ctx, locator, timeout)
}

// until blocks until the element's text contains the given substring.
func (i *Interface) until(rest string) error {
	locator, substr, ok := strings.Cut(rest, " ")
	if !ok {
		return fmt.Errorf("usage: until XPATH SUBSTRING")
	}

	return i.browser.WaitUntil(i.ctx, func() bool {
		text, err := i.browser.Text(i.ctx, locator)

		return err == nil && strings.Contains(text, substr)
	}, 0)
}

func (i *Interface) elements() error {
	elements, err := i.browser.Elements(i.ctx)
	if err != nil {
		return err
	}

	for _, elem := range elements {
		marker := " "
		if elem.Clickable {
			marker = "*"
		}

		fmt.Printf("%s <%s> %-40q %s\n", marker, elem.Tag, elem.Text, elem.XPath)
	}

	fmt.Printf("%d element(s)\n", len(elements))

	return nil
}

func (i *Interface) scroll(rest string) error {
	direction, amountArg, hasAmount := strings.Cut(rest, " ")

	amount := 500
	if hasAmount {
		parsed, err := strconv.Atoi(amountArg)
		if err != nil {
			return fmt.Errorf("bad scroll amount %q: %w", amountArg, err)
		}

		amount = parsed
	}

	return i.browser.Scroll(i.ctx, entity.ScrollDirection(direction), amount)
}

func (i *Interface) tab(rest string) error {
	switch {
	case rest == "new" || strings.HasPrefix(rest, "new "):
		url := strings.TrimSpace(strings.TrimPrefix(rest, "new"))

		return i.browser.OpenTab(i.ctx, url)
	case strings.HasPrefix(rest, "close "):
		index, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(rest, "close ")))
		if err != nil {
			return fmt.Errorf("bad tab index: %w", err)
		}

		return i.browser.CloseTab(i.ctx, index)
	default:
		index, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("usage: tab new [URL] | tab N | tab close N")
		}

		return i.browser.SwitchTab(i.ctx, index)
	}
}

func (i *Interface) printBanner() {
	fmt.Printf("\nwebuser - browser session console (%s)\n", i.config.BrowserConfig.Type)
	fmt.Println(strings.Repeat("-", 50))
}

func (i *Interface) printHelp() {
	help := `
Available commands:
  open URL              - Navigate to a page
  text XPATH            - Print element text
  click XPATH           - Click an element
  type XPATH TEXT       - Click and type into an element
  clear XPATH           - Clear an input
  remove XPATH          - Remove an element from the DOM
  length XPATH          - Print an element's child count
  scrollto XPATH        - Scroll an element into view
  frame XPATH           - Enter an iframe; frame parent exits it
  alerts dismiss        - Auto-dismiss page dialogs
  attr XPATH NAME       - Print an attribute value
  fill V1|skip|down:2   - Tab through a form filling fields
  wait XPATH [SECONDS]  - Wait for an element to appear
  until XPATH SUBSTR    - Wait until element text contains SUBSTR
  elements              - List interactive elements with XPaths
  source                - Print page source
  url, title            - Print current URL / title
  scroll DIR [AMOUNT]   - Scroll up/down/top/bottom
  eval JS               - Evaluate JavaScript
  tab new [URL]         - Open a tab; tab N switches, tab close N closes
  tabs                  - Count open tabs
  cookies clear         - Delete all cookies
  turbo on|off          - Toggle human-paced input
  help, exit
`
	fmt.Println(help)
}
