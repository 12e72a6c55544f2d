// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	applog "micpipe/internal/log"
)

// Poller reads the latest snapshot from a source at a fixed interval and
// hands it to every transport. It is the only reader of the engine on
// behalf of external consumers; the engine never pushes.
type Poller struct {
	log        *applog.Logger
	source     SnapshotSource
	transports []Transport
	interval   time.Duration

	ticker   *time.Ticker   // Ticker that triggers polling.
	doneChan chan struct{}  // Signals the polling goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the polling goroutine during Stop.
	mu       sync.Mutex     // Protects ticker and doneChan during Start/Stop.

	sent   uint64 // Snapshots delivered, owned by the polling goroutine.
	failed uint64
}

// NewPoller creates a poller. If interval is invalid (<= 0) it defaults to
// 100ms.
func NewPoller(interval time.Duration, source SnapshotSource, transports ...Transport) (*Poller, error) {
	if source == nil {
		return nil, fmt.Errorf("poller: snapshot source cannot be nil")
	}
	if len(transports) == 0 {
		return nil, fmt.Errorf("poller: at least one transport is required")
	}

	p := &Poller{
		log:        applog.Named("Poller"),
		source:     source,
		transports: transports,
		interval:   interval,
	}
	if p.interval <= 0 {
		p.interval = 100 * time.Millisecond
		p.log.Warnf("invalid interval provided, defaulting to %s", p.interval)
	}
	return p, nil
}

// Start begins polling. Calling Start on a running poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		p.log.Warnf("Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.log.Debugf("polling every %s for %d transports", p.interval, len(p.transports))
		for {
			select {
			case <-ticker.C:
				p.poll()
			case <-doneChan:
				return
			}
		}
	}()
}

// poll delivers the current snapshot to every transport. A failing
// transport does not stop the others.
func (p *Poller) poll() {
	s := p.source.Snapshot()
	if s == nil {
		return
	}
	for _, t := range p.transports {
		if err := t.Send(s); err != nil {
			p.failed++
			if p.failed == 1 || p.failed%100 == 0 {
				p.log.Warnf("send failed (%d total): %v", p.failed, err)
			}
			continue
		}
		p.sent++
	}
}

// Stop signals the polling goroutine and waits for it to exit. Safe to call
// more than once.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Debugf("stopped after %d sends (%d failed)", p.sent, p.failed)
	return nil
}

// Close stops polling and closes every transport.
func (p *Poller) Close() error {
	errs := []error{p.Stop()}
	for _, t := range p.transports {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}
