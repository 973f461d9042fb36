package sampler

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"go.viam.com/reach/plugins"
)

// Progress counts finished evaluations and forwards the count to a plugins.Logger. Workers may
// call Increment concurrently; calls into the logger are serialized and throttled so that at most
// one update is reported per interval. Intermediate values may be skipped but Finish always
// reports the last one.
type Progress struct {
	mu      sync.Mutex
	logger  plugins.Logger
	done    atomic.Int64
	limiter *rate.Sometimes
}

// NewProgress announces total to the logger and returns a tracker starting at zero. A non-positive
// interval reports every update.
func NewProgress(logger plugins.Logger, total int, interval time.Duration) *Progress {
	limiter := &rate.Sometimes{Interval: interval}
	if interval <= 0 {
		limiter = &rate.Sometimes{Every: 1}
	}
	p := &Progress{logger: logger, limiter: limiter}
	logger.SetMaxProgress(total)
	return p
}

// Increment records one finished evaluation.
func (p *Progress) Increment() {
	n := p.done.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiter.Do(func() {
		p.logger.PrintProgress(int(n))
	})
}

// Done returns the number of finished evaluations.
func (p *Progress) Done() int {
	return int(p.done.Load())
}

// Finish reports the final count.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger.PrintProgress(p.Done())
}
