// Package mem is the physical page allocator used for kernel stacks.
package mem

import (
	"errors"
	"sync"
)

// PageSize is the size of one page in bytes.
const PageSize = 4096

// junk fills freed pages to catch dangling references.
const junk = 1

var (
	ErrDoubleFree = errors.New("mem: page already free")
	ErrForeign    = errors.New("mem: page not from this allocator")
)

// Page is one allocated page.
type Page struct {
	Data [PageSize]byte

	owner *Allocator
	index int
	inUse bool
}

// Allocator hands out a fixed number of pages.
type Allocator struct {
	mu    sync.Mutex
	pages []Page
	free  []int
}

// New returns an allocator owning n pages.
func New(n int) *Allocator {
	a := &Allocator{pages: make([]Page, n)}
	for i := n - 1; i >= 0; i-- {
		a.pages[i].owner = a
		a.pages[i].index = i
		a.free = append(a.free, i)
	}
	return a
}

// Alloc returns a zeroed page, or false if none is left.
func (a *Allocator) Alloc() (*Page, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.free) == 0 {
		return nil, false
	}
	i := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	p := &a.pages[i]
	p.inUse = true
	p.Data = [PageSize]byte{}
	return p, true
}

// Free returns p to the pool.
func (a *Allocator) Free(p *Page) error {
	if p == nil || p.owner != a {
		return ErrForeign
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !p.inUse {
		return ErrDoubleFree
	}
	p.inUse = false
	for i := range p.Data {
		p.Data[i] = junk
	}
	a.free = append(a.free, p.index)
	return nil
}

// Available returns the number of free pages.
func (a *Allocator) Available() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.free)
}
