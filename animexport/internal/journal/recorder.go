package journal

import (
	"context"
	"fmt"

	"github.com/hazyhaar/animexport/animexport/internal/domtree"
	"github.com/hazyhaar/animexport/animexport/internal/host"
)

// Recorder wraps a host and journals what the pipeline observes through
// it. Rectangles are keyed by selector; documents by the number of
// presses made before the read, the last read winning.
type Recorder struct {
	inner   host.Host
	store   *Store
	runID   string
	presses int
}

// NewRecorder journals the reads made through inner under runID.
func NewRecorder(inner host.Host, store *Store, runID string) *Recorder {
	return &Recorder{inner: inner, store: store, runID: runID}
}

func (r *Recorder) Rect(ctx context.Context, selector string) (host.Rect, error) {
	rect, err := r.inner.Rect(ctx, selector)
	if err != nil {
		return rect, err
	}
	if err := r.store.PutRect(ctx, r.runID, selector, rect); err != nil {
		return rect, err
	}
	return rect, nil
}

func (r *Recorder) Press(ctx context.Context, selector string, x, y float64) error {
	if err := r.inner.Press(ctx, selector, x, y); err != nil {
		return err
	}
	r.presses++
	return nil
}

func (r *Recorder) Document(ctx context.Context) (*domtree.Document, error) {
	doc, err := r.inner.Document(ctx)
	if err != nil {
		return nil, err
	}
	html, err := doc.HTML()
	if err != nil {
		return nil, err
	}
	if err := r.store.PutFrame(ctx, r.runID, r.presses, html); err != nil {
		return nil, err
	}
	return doc, nil
}

// AwaitFrames delegates to the wrapped host.
func (r *Recorder) AwaitFrames(ctx context.Context, n int) error {
	a, ok := r.inner.(host.FrameAwaiter)
	if !ok {
		return fmt.Errorf("journal: host %T cannot await frames", r.inner)
	}
	return a.AwaitFrames(ctx, n)
}

var (
	_ host.Host         = (*Recorder)(nil)
	_ host.FrameAwaiter = (*Recorder)(nil)
)
