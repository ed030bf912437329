package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/animexport/animexport/internal/domtree"
	"github.com/hazyhaar/animexport/animexport/internal/host"
)

// PressMode selects how Tab.Press delivers a click.
type PressMode string

const (
	// PressDispatch dispatches a synthetic MouseEvent on the target element.
	PressDispatch PressMode = "dispatch"
	// PressInput sends real CDP mouse input at the coordinates.
	PressInput PressMode = "input"
)

// Tab is an editor page driven through CDP. It implements host.Host and
// host.FrameAwaiter.
type Tab struct {
	Page      *rod.Page
	PageURL   string
	PressMode PressMode

	owned  bool // opened by us, closed on Close
	router *rod.HijackRouter
}

// OpenTab creates a new tab with stealth applied and navigates to the
// editor URL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string, mode PressMode) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	t := &Tab{Page: page, PageURL: pageURL, PressMode: mode, owned: true}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		router, err := applyResourceBlocking(page, mgr.cfg.ResourceBlocking)
		if err != nil {
			mgr.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
		t.router = router
	}

	navCtx, cancel := context.WithTimeout(ctx, mgr.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	mgr.cfg.Logger.Info("browser: editor tab opened", "url", pageURL)
	return t, nil
}

// AttachTab finds an already open page whose URL matches the JS regex
// pattern. The page is left open on Close.
func AttachTab(ctx context.Context, mgr *Manager, pattern string, mode PressMode) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	pages, err := b.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("browser: list pages: %w", err)
	}
	page, err := pages.FindByURL(pattern)
	if err != nil {
		return nil, fmt.Errorf("browser: no open tab matches %q: %w", pattern, err)
	}

	pageURL := pattern
	if info, err := page.Info(); err == nil {
		pageURL = info.URL
	}
	mgr.cfg.Logger.Info("browser: attached to editor tab", "url", pageURL, "pages", len(pages))
	return &Tab{Page: page, PageURL: pageURL, PressMode: mode}, nil
}

const rectJS = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return null;
	const r = el.getBoundingClientRect();
	return {
		left: r.left + window.scrollX,
		top: r.top + window.scrollY,
		right: r.right + window.scrollX,
		bottom: r.bottom + window.scrollY,
	};
}`

// Rect returns the page-coordinate bounding box of the first match.
func (t *Tab) Rect(ctx context.Context, selector string) (host.Rect, error) {
	res, err := t.Page.Context(ctx).Eval(rectJS, selector)
	if err != nil {
		return host.Rect{}, fmt.Errorf("browser: rect %s: %w", selector, err)
	}
	if res.Value.Nil() {
		return host.Rect{}, fmt.Errorf("%w: %s", host.ErrNotFound, selector)
	}
	var r host.Rect
	if err := res.Value.Unmarshal(&r); err != nil {
		return host.Rect{}, fmt.Errorf("browser: rect %s: decode: %w", selector, err)
	}
	return r, nil
}

const dispatchJS = `(sel, x, y) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.dispatchEvent(new MouseEvent('click', {
		clientX: x,
		clientY: y,
		bubbles: true,
		cancelable: true,
	}));
	return true;
}`

const scrollJS = `() => ({x: window.scrollX, y: window.scrollY})`

// Press clicks at page coordinates (x, y) on the element matching
// selector.
func (t *Tab) Press(ctx context.Context, selector string, x, y float64) error {
	p := t.Page.Context(ctx)

	if t.PressMode == PressInput {
		if _, err := t.Rect(ctx, selector); err != nil {
			return err
		}
		res, err := p.Eval(scrollJS)
		if err != nil {
			return fmt.Errorf("browser: press: scroll offset: %w", err)
		}
		pt := proto.Point{
			X: x - res.Value.Get("x").Num(),
			Y: y - res.Value.Get("y").Num(),
		}
		if err := p.Mouse.MoveTo(pt); err != nil {
			return fmt.Errorf("browser: press: move: %w", err)
		}
		if err := p.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("browser: press: click: %w", err)
		}
		return nil
	}

	res, err := p.Eval(dispatchJS, selector, x, y)
	if err != nil {
		return fmt.Errorf("browser: press %s: %w", selector, err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("%w: %s", host.ErrNotFound, selector)
	}
	return nil
}

// Document serialises the live DOM and parses it.
func (t *Tab) Document(ctx context.Context) (*domtree.Document, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("browser: get DOM: %w", err)
	}
	return domtree.ParseString(res.Value.Str())
}

const framesJS = `(n) => new Promise((resolve) => {
	let i = 0;
	const step = () => (++i >= n) ? resolve(true) : requestAnimationFrame(step);
	requestAnimationFrame(step);
})`

// AwaitFrames resolves after n animation frames have been painted.
func (t *Tab) AwaitFrames(ctx context.Context, n int) error {
	if n <= 0 {
		n = 1
	}
	if _, err := t.Page.Context(ctx).Eval(framesJS, n); err != nil {
		return fmt.Errorf("browser: await frames: %w", err)
	}
	return nil
}

// Close stops request interception and closes the tab if we opened it.
func (t *Tab) Close() error {
	if t.router != nil {
		t.router.Stop()
		t.router = nil
	}
	if t.owned && t.Page != nil {
		return t.Page.Close()
	}
	return nil
}

var (
	_ host.Host         = (*Tab)(nil)
	_ host.FrameAwaiter = (*Tab)(nil)
)
