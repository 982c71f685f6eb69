package negotiation

import (
	"errors"
	"time"

	pion "github.com/pion/webrtc/v4"
)

// DefaultCandidateWindow is the debounce applied to local candidates.
const DefaultCandidateWindow = 100 * time.Millisecond

// Batcher coalesces a link's local candidates into batches and holds remote
// batches until the link can apply them. It is owned by the engine goroutine;
// only the timer callback runs elsewhere, and it just reports its generation.
type Batcher struct {
	window time.Duration

	pending []pion.ICECandidateInit
	timer   *time.Timer
	gen     uint64

	inbound [][]pion.ICECandidateInit
	stopped bool
}

func NewBatcher(window time.Duration) *Batcher {
	if window <= 0 {
		window = DefaultCandidateWindow
	}
	return &Batcher{window: window}
}

// Collect appends c and restarts the debounce window. When the window
// elapses without another candidate, fire is called with the generation to
// pass back to Due.
func (b *Batcher) Collect(c pion.ICECandidateInit, fire func(gen uint64)) {
	if b.stopped {
		return
	}
	b.pending = append(b.pending, c)

	if b.timer != nil {
		b.timer.Stop()
	}
	b.gen++
	gen := b.gen
	b.timer = time.AfterFunc(b.window, func() { fire(gen) })
}

// Due returns the pending batch if gen is the latest arming, nil for a timer
// that was superseded or cancelled.
func (b *Batcher) Due(gen uint64) []pion.ICECandidateInit {
	if gen != b.gen {
		return nil
	}
	return b.Flush()
}

// Flush cancels the window and returns whatever is pending. Used when
// gathering completes.
func (b *Batcher) Flush() []pion.ICECandidateInit {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++

	batch := b.pending
	b.pending = nil
	if len(batch) == 0 {
		return nil
	}
	return batch
}

// Pending is the number of local candidates waiting for the window.
func (b *Batcher) Pending() int {
	return len(b.pending)
}

// Buffer queues a remote batch.
func (b *Batcher) Buffer(batch []pion.ICECandidateInit) {
	if b.stopped || len(batch) == 0 {
		return
	}
	b.inbound = append(b.inbound, batch)
}

// Buffered is the number of remote candidates not yet applied.
func (b *Batcher) Buffered() int {
	n := 0
	for _, batch := range b.inbound {
		n += len(batch)
	}
	return n
}

// Drain applies every buffered remote candidate in receipt order and clears
// the buffer. A candidate that fails does not stop the rest.
func (b *Batcher) Drain(apply func(pion.ICECandidateInit) error) error {
	inbound := b.inbound
	b.inbound = nil

	var errs []error
	for _, batch := range inbound {
		for _, c := range batch {
			if err := apply(c); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Stop cancels the window and discards both directions without flushing.
func (b *Batcher) Stop() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
	b.pending = nil
	b.inbound = nil
	b.stopped = true
}
