// Package progress reports how far a long operation has come. Reporting is
// observational only, a nil *Progress is valid and ignores every call.
package progress

import "sync"

// Progress counts completed units of work. A child progress stands for a
// number of its parent's units and contributes its fraction of them.
type Progress struct {
	mu        sync.Mutex
	total     int64
	completed int64
	children  []*Progress

	parent  *Progress
	pending int64 // units of the parent this progress accounts for

	onChange func(fraction float64)
}

// New creates a root progress with total units
func New(total int64) *Progress {
	return &Progress{total: total}
}

// OnChange registers fn to be called with the new fraction after every
// update. fn must not call back into the progress.
func (p *Progress) OnChange(fn func(fraction float64)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// SetTotal replaces the number of units and resets the completed count
func (p *Progress) SetTotal(total int64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.total = total
	p.completed = 0
	p.mu.Unlock()
	p.changed()
}

// SetCompleted sets the completed units
func (p *Progress) SetCompleted(completed int64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.completed = completed
	p.mu.Unlock()
	p.changed()
}

// Add marks n more units as completed
func (p *Progress) Add(n int64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.completed += n
	p.mu.Unlock()
	p.changed()
}

// Finish marks every unit as completed
func (p *Progress) Finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.completed = p.total
	if p.total == 0 {
		p.total, p.completed = 1, 1
	}
	p.mu.Unlock()
	p.changed()
}

// AddChild creates a child accounting for pending units of p. Returns nil
// when p is nil.
func (p *Progress) AddChild(pending int64) *Progress {
	if p == nil {
		return nil
	}
	child := &Progress{parent: p, pending: pending}
	p.mu.Lock()
	p.children = append(p.children, child)
	p.mu.Unlock()
	return child
}

// Fraction returns the completed share in [0, 1]
func (p *Progress) Fraction() float64 {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fractionLocked()
}

func (p *Progress) fractionLocked() float64 {
	if p.total <= 0 {
		return 0
	}
	done := float64(p.completed)
	for _, child := range p.children {
		child.mu.Lock()
		done += child.fractionLocked() * float64(child.pending)
		child.mu.Unlock()
	}
	f := done / float64(p.total)
	if f > 1 {
		return 1
	}
	return f
}

// Percent returns the completed share as a whole percentage
func (p *Progress) Percent() int {
	return int(p.Fraction() * 100)
}

func (p *Progress) changed() {
	for node := p; node != nil; node = node.parent {
		node.mu.Lock()
		fn := node.onChange
		var f float64
		if fn != nil {
			f = node.fractionLocked()
		}
		node.mu.Unlock()
		if fn != nil {
			fn(f)
		}
	}
}
