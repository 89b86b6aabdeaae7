package pipeline

import (
	"fmt"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ProgressFunc receives ordered progress events.  Emission is fire-and-forget:
// a panicking callback never aborts the operation.
type ProgressFunc func(current, total int, percent float64, message string)

// ProgressTracker emits start once, one progress event per item, and complete
// once.  It optionally renders an mpb bar when the context carries a writer.
type ProgressTracker struct {
	total   int
	phase   string
	cb      ProgressFunc
	mu      sync.Mutex
	current int

	container *mpb.Progress
	bar       *mpb.Bar
}

// NewProgressTracker wires a tracker to the operation context.  total may be
// zero, in which case only start/complete fire.
func NewProgressTracker(op *OperationContext, phase string, total int) *ProgressTracker {
	t := &ProgressTracker{
		total: total,
		phase: phase,
		cb:    op.OnProgress,
	}

	if op.ProgressOut != nil && total > 0 {
		t.container = mpb.New(mpb.WithWidth(64), mpb.WithOutput(op.ProgressOut))
		t.bar = t.container.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("%s:", phase),
					decor.WC{C: decor.DindentRight | decor.DextraSpace}),
			),
			mpb.AppendDecorators(
				decor.CountersNoUnit("(%d/%d) "),
				decor.NewPercentage("%d"),
			),
		)
	}

	return t
}

func (t *ProgressTracker) Start(message string) {
	t.emit(0, message)
}

// Step records one processed item.
func (t *ProgressTracker) Step(message string) {
	t.mu.Lock()
	t.current++
	current := t.current
	t.mu.Unlock()

	if t.bar != nil {
		t.bar.Increment()
	}
	t.emit(current, message)
}

func (t *ProgressTracker) Complete(message string) {
	t.mu.Lock()
	current := t.current
	t.mu.Unlock()

	t.emit(current, message)
	if t.container != nil {
		t.container.Wait()
	}
}

func (t *ProgressTracker) emit(current int, message string) {
	if t.cb == nil {
		return
	}

	percent := 100.0
	if t.total > 0 {
		percent = float64(current) / float64(t.total) * 100.0
	}

	// The callback belongs to the caller; whatever it does must not take
	// the pipeline down with it.
	defer func() { _ = recover() }()
	t.cb(current, t.total, percent, message)
}
