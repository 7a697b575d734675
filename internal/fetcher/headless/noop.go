package headless

import (
	"context"

	"github.com/JakeFAU/siteaudit/internal/audit"
)

// Noop implements audit.Renderer for builds or configs without a browser.
type Noop struct{}

// NewNoop creates a new Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// CanRender always reports false.
func (Noop) CanRender() bool { return false }

// Render always fails with ErrRendererDisabled.
func (Noop) Render(_ context.Context, _ string) (audit.Page, error) {
	return audit.Page{}, ErrRendererDisabled
}

// Close is a no-op.
func (Noop) Close() error { return nil }
