// Package debounce coalesces bursts of triggers into one trailing call.
package debounce

import (
	"sync"
	"time"
)

var afterFunc = time.AfterFunc

type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	fn    func()
	// gen identifies the latest schedule; callbacks of older timers that
	// already fired past Stop are ignored.
	gen uint64
}

func New(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = afterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	fn := d.fn
	d.mu.Unlock()
	fn()
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Group debounces independently per key.
type Group struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func(key string)
	byKey map[string]*Debouncer
}

func NewGroup(delay time.Duration, fn func(key string)) *Group {
	return &Group{delay: delay, fn: fn, byKey: map[string]*Debouncer{}}
}

func (g *Group) Trigger(key string) {
	g.mu.Lock()
	d, ok := g.byKey[key]
	if !ok {
		d = New(g.delay, func() { g.fn(key) })
		g.byKey[key] = d
	}
	g.mu.Unlock()
	d.Trigger()
}

// Forget stops and drops the debouncer of key.
func (g *Group) Forget(key string) {
	g.mu.Lock()
	d, ok := g.byKey[key]
	delete(g.byKey, key)
	g.mu.Unlock()
	if ok {
		d.Stop()
	}
}

func (g *Group) Stop() {
	g.mu.Lock()
	pending := g.byKey
	g.byKey = map[string]*Debouncer{}
	g.mu.Unlock()
	for _, d := range pending {
		d.Stop()
	}
}
