package browser

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"webuser/internal/config"
	"webuser/pkg/logg"
)

const driverName = "playwright"

// driverExecutable returns the driver binary name for a GOOS value.
// Only windows carries an executable suffix.
func driverExecutable(goos string) string {
	if goos == "windows" {
		return driverName + ".exe"
	}

	return driverName
}

func pathListSeparator(goos string) string {
	if goos == "windows" {
		return ";"
	}

	return ":"
}

// findDriver searches for the driver executable: every PATH entry
// first, then the working directory and its ancestors, then the
// immediate child directories.
func findDriver(pathEnv, goos, workDir string) (string, bool) {
	name := driverExecutable(goos)

	for _, dir := range strings.Split(pathEnv, pathListSeparator(goos)) {
		if dir == "" {
			continue
		}

		if candidate := filepath.Join(dir, name); isRegularFile(candidate) {
			return candidate, true
		}
	}

	for dir := workDir; ; {
		if candidate := filepath.Join(dir, name); isRegularFile(candidate) {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if candidate := filepath.Join(workDir, entry.Name(), name); isRegularFile(candidate) {
			return candidate, true
		}
	}

	return "", false
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

// resolveDriverDir picks the driver directory handed to playwright.
// An empty result lets playwright manage its own driver.
func resolveDriverDir(cfg *config.BrowserConfig, logger *zap.Logger) string {
	if cfg.DriverPath != "" {
		if info, err := os.Stat(cfg.DriverPath); err == nil && info.IsDir() {
			return cfg.DriverPath
		}

		return filepath.Dir(cfg.DriverPath)
	}

	workDir, err := os.Getwd()
	if err != nil {
		workDir = "."
	}

	path, found := findDriver(os.Getenv("PATH"), runtime.GOOS, workDir)
	if !found {
		logger.Warn("Driver executable not found, falling back to managed driver",
			zap.String(logg.Driver, driverExecutable(runtime.GOOS)))

		return ""
	}

	logger.Info("Found driver executable", zap.String(logg.Driver, path))

	return filepath.Dir(path)
}
