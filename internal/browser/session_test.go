package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"webuser/internal/config"
	"webuser/internal/entity"
	"webuser/internal/ports"
)

func testConfig() *config.Config {
	return &config.Config{
		AppConfig: &config.AppConfig{LogLevel: "info"},
		BrowserConfig: &config.BrowserConfig{
			Type:            "firefox",
			Headless:        true,
			NavigateTimeout: 60000,
			FindTimeout:     10000,
			PollInterval:    100,
			Turbo:           true,
		},
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()

	return NewSession(Params{
		Config: testConfig(),
		Logger: zap.NewNop(),
	})
}

func TestNewSession(t *testing.T) {
	s := newTestSession(t)

	assert.Equal(t, entity.BrowserFirefox, s.Info().Browser)
	assert.True(t, s.Info().Headless)
	assert.NotZero(t, s.Info().ID)
	assert.False(t, s.IsReady())
	assert.Equal(t, 10*time.Second, s.retry.timeout)
	assert.Equal(t, 100*time.Millisecond, s.retry.interval)
	assert.True(t, s.pace.turbo)
}

func TestSessionClose_Idempotent(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))
	assert.False(t, s.IsReady())
}

func TestSessionOperations_RequireLaunch(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	assert.Error(t, s.Navigate(ctx, "https://example.com"))
	assert.Error(t, s.Click(ctx, "//button"))

	_, err := s.Text(ctx, "//p")
	assert.Error(t, err)

	assert.Empty(t, s.CurrentURL())
	assert.Zero(t, s.TabCount())
}

// fakeBrowser overrides just the lifecycle methods; everything else
// panics through the embedded nil interface, which these tests never
// touch.
type fakeBrowser struct {
	ports.Browser

	launchErr error
	launches  int
	closes    int
}

func (f *fakeBrowser) Launch(ctx context.Context) error {
	f.launches++

	return f.launchErr
}

func (f *fakeBrowser) Close(ctx context.Context) error {
	f.closes++

	return nil
}

func TestRun_ClosesExactlyOnce(t *testing.T) {
	b := &fakeBrowser{}

	err := Run(context.Background(), b, func(ports.Browser) error {
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, b.launches)
	assert.Equal(t, 1, b.closes)
}

func TestRun_ClosesWhenBodyFails(t *testing.T) {
	b := &fakeBrowser{}
	boom := errors.New("body failed")

	err := Run(context.Background(), b, func(ports.Browser) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, b.closes)
}

func TestRun_ClosesWhenBodyPanics(t *testing.T) {
	b := &fakeBrowser{}

	assert.Panics(t, func() {
		_ = Run(context.Background(), b, func(ports.Browser) error {
			panic("boom")
		})
	})

	assert.Equal(t, 1, b.closes)
}

func TestRun_NoCloseWhenLaunchFails(t *testing.T) {
	b := &fakeBrowser{launchErr: errors.New("no driver")}

	err := Run(context.Background(), b, func(ports.Browser) error {
		t.Fatal("body must not run")

		return nil
	})

	assert.Error(t, err)
	assert.Zero(t, b.closes)
}
