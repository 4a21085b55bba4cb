package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"webuser/internal/entity"
)

type Config struct {
	AppConfig     *AppConfig
	BrowserConfig *BrowserConfig
}

type AppConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type BrowserConfig struct {
	Type            string  `envconfig:"BROWSER_TYPE" default:"firefox"`
	Headless        bool    `envconfig:"BROWSER_HEADLESS" default:"true"`
	DriverPath      string  `envconfig:"BROWSER_DRIVER_PATH" default:""`
	DownloadDir     string  `envconfig:"BROWSER_DOWNLOAD_DIR" default:""`
	UserAgent       string  `envconfig:"BROWSER_USER_AGENT" default:""`
	NavigateTimeout int     `envconfig:"BROWSER_NAVIGATE_TIMEOUT" default:"60000"`
	FindTimeout     int     `envconfig:"BROWSER_FIND_TIMEOUT" default:"10000"`
	PollInterval    int     `envconfig:"BROWSER_POLL_INTERVAL" default:"100"`
	FillClickChance float64 `envconfig:"BROWSER_FILL_CLICK_CHANCE" default:"0"`
	Turbo           bool    `envconfig:"BROWSER_TURBO" default:"true"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	if _, err := entity.ParseBrowserType(conf.BrowserConfig.Type); err != nil {
		return nil, fmt.Errorf("validate browser config: %w", err)
	}

	if conf.BrowserConfig.FillClickChance < 0 || conf.BrowserConfig.FillClickChance > 1 {
		return nil, fmt.Errorf("validate browser config: BROWSER_FILL_CLICK_CHANCE must be within [0, 1]")
	}

	if conf.BrowserConfig.PollInterval <= 0 {
		return nil, fmt.Errorf("validate browser config: BROWSER_POLL_INTERVAL must be positive")
	}

	return &conf, nil
}
