package headless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

var _ audit.Renderer = (*Chromedp)(nil)
var _ audit.Renderer = Noop{}

func TestNewChromedpDefaults(t *testing.T) {
	t.Parallel()

	r := NewChromedp(Config{}, nil)
	require.Equal(t, 30*time.Second, r.cfg.NavigationTimeout)
	require.True(t, r.CanRender())
	require.False(t, r.started)
}

func TestRenderDisablesWhenBrowserMissing(t *testing.T) {
	t.Parallel()

	r := NewChromedp(Config{}, nil)
	calls := 0
	r.alloc = func(Config) (context.Context, context.CancelFunc, error) {
		calls++
		return nil, nil, fmt.Errorf("start browser: %w", &exec.Error{Name: "chrome", Err: exec.ErrNotFound})
	}

	_, err := r.Render(context.Background(), "https://example.com/")
	require.ErrorIs(t, err, ErrRendererDisabled)
	require.False(t, errors.Is(err, audit.ErrResourceExhausted))
	require.False(t, r.CanRender())

	_, err = r.Render(context.Background(), "https://example.com/other")
	require.ErrorIs(t, err, ErrRendererDisabled)
	require.Equal(t, 1, calls)
}

func TestRenderClassifiesLaunchFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		exhausted bool
	}{
		{"out of memory", &os.PathError{Op: "fork/exec", Path: "/usr/bin/chromium", Err: syscall.ENOMEM}, true},
		{"no process slots", &os.PathError{Op: "fork/exec", Path: "/usr/bin/chromium", Err: syscall.EAGAIN}, true},
		{"too many open files", fmt.Errorf("pipe: %w", syscall.EMFILE), true},
		{"sandbox refused", errors.New("chrome failed to start: Running as root without --no-sandbox is not supported"), false},
		{"websocket never came up", errors.New("websocket url timeout reached"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewChromedp(Config{}, nil)
			r.alloc = func(Config) (context.Context, context.CancelFunc, error) {
				return nil, nil, fmt.Errorf("start browser: %w", tt.err)
			}
			_, err := r.Render(context.Background(), "https://example.com/")
			require.Error(t, err)
			require.Equal(t, tt.exhausted, errors.Is(err, audit.ErrResourceExhausted))
			require.Equal(t, !tt.exhausted, errors.Is(err, ErrRendererDisabled))
			require.False(t, r.CanRender())
		})
	}
}

func TestIdleWatcherWaitsForMainDocument(t *testing.T) {
	t.Parallel()

	w := newIdleWatcher()
	w.handle(&page.EventLifecycleEvent{Name: "networkIdle", LoaderID: cdp.LoaderID("old")})
	w.handle(&page.EventFrameNavigated{Frame: &cdp.Frame{ID: "main", LoaderID: "doc"}})
	w.handle(&page.EventFrameNavigated{Frame: &cdp.Frame{ID: "ad", ParentID: "main", LoaderID: "iframe"}})
	w.handle(&page.EventLifecycleEvent{Name: "networkIdle", LoaderID: "iframe"})
	w.handle(&page.EventLifecycleEvent{Name: "load", LoaderID: "doc"})
	require.False(t, w.ready())

	done := make(chan error, 1)
	go func() {
		done <- w.wait().Do(context.Background())
	}()
	select {
	case err := <-done:
		t.Fatalf("wait returned before the page went idle: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	w.handle(&page.EventLifecycleEvent{Name: "networkIdle", LoaderID: "doc"})
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return after networkIdle")
	}
	require.True(t, w.ready())
}

func TestIdleWatcherHonorsTimeout(t *testing.T) {
	t.Parallel()

	w := newIdleWatcher()
	w.handle(&page.EventFrameNavigated{Frame: &cdp.Frame{ID: "main", LoaderID: "doc"}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := w.wait().Do(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseReleasesBrowserOnce(t *testing.T) {
	t.Parallel()

	r := NewChromedp(Config{}, nil)
	released := 0
	r.started = true
	r.cancel = func() { released++ }

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	require.Equal(t, 1, released)
	require.False(t, r.CanRender())

	_, err := r.Render(context.Background(), "https://example.com/")
	require.ErrorIs(t, err, ErrRendererDisabled)
}

func TestCloseWithoutStartIsSafe(t *testing.T) {
	t.Parallel()

	r := NewChromedp(Config{}, nil)
	require.NoError(t, r.Close())
	require.False(t, r.CanRender())
}

func TestNoop(t *testing.T) {
	t.Parallel()

	n := NewNoop()
	require.False(t, n.CanRender())
	_, err := n.Render(context.Background(), "https://example.com/")
	require.ErrorIs(t, err, ErrRendererDisabled)
	require.NoError(t, n.Close())
}
