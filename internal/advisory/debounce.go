package advisory

import (
	"sync"
	"time"
)

const DefaultDebounce = 1500 * time.Millisecond

// Debouncer fires once a key has been stable for Delay. A key equal to the
// last settled one never fires again, so an unchanged ration is analyzed at
// most once per successful result.
type Debouncer struct {
	Delay time.Duration
	Fire  func(key string)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	settled string
	stopped bool
}

func NewDebouncer(delay time.Duration, fire func(key string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{Delay: delay, Fire: fire}
}

// Notify restarts the quiet period for key. Any pending fire for an older
// key is cancelled.
func (d *Debouncer) Notify(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	if key == "" || key == d.settled {
		return
	}
	gen := d.gen
	d.timer = time.AfterFunc(d.Delay, func() {
		d.mu.Lock()
		if d.stopped || gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		fire := d.Fire
		d.mu.Unlock()
		if fire != nil {
			fire(key)
		}
	})
}

// Settle records key as successfully analyzed.
func (d *Debouncer) Settle(key string) {
	d.mu.Lock()
	d.settled = key
	d.mu.Unlock()
}

func (d *Debouncer) Settled() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Reset cancels any pending fire and forgets the settled key.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.settled = ""
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.stopped = true
}
