package bootstrap

import (
	"time"

	"go.uber.org/fx"

	"webuser/internal/browser"
	"webuser/internal/config"
	"webuser/internal/console"
	"webuser/internal/ports"
)

func NewApp() *fx.App {
	return fx.New(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,

			fx.Annotate(browser.NewSession, fx.As(new(ports.Browser))),

			console.NewInterface,
		),

		fx.Invoke(
			runConsole,
		),

		fx.StartTimeout(10*time.Second),
	)
}
