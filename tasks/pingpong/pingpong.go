// Package pingpong hands one increment from a thread holding a mutex to a
// thread blocked on it.
package pingpong

import (
	"kthreads/kernel"
	"kthreads/tasks"
)

// User memory layout, in words from the region base.
const (
	wordMid = iota
	wordValue
	wordSeen
	nwords
)

// Main is the program entry.
func Main(c *kernel.Context) {
	base, err := tasks.Stacks(c, 2, nwords)
	if err != nil {
		tasks.Printf(c, "pingpong: sbrk: %v", err)
		return
	}
	word := func(i int) uintptr { return base + uintptr(i*4) }

	ping := func(c *kernel.Context) {
		mid, err := c.MutexAlloc()
		if err != nil {
			tasks.Printf(c, "pingpong: mutex_alloc: %v", err)
			return
		}
		_ = c.MutexLock(mid)
		_ = c.Store32(word(wordMid), uint32(mid))
		// Hold the lock long enough for pong to block on it.
		for i := 0; i < 8; i++ {
			c.Yield()
		}
		v, _ := c.Load32(word(wordValue))
		_ = c.Store32(word(wordValue), v+1)
		_ = c.MutexUnlock(mid)
	}

	pong := func(c *kernel.Context) {
		var mid uint32
		for mid == 0 {
			mid, _ = c.Load32(word(wordMid))
			if mid == 0 {
				c.Yield()
			}
		}
		_ = c.MutexLock(int(mid))
		v, _ := c.Load32(word(wordValue))
		_ = c.Store32(word(wordSeen), v)
		_ = c.MutexUnlock(int(mid))
	}

	t1, err := c.ThreadCreate(ping, tasks.StackAt(base, nwords, 0), tasks.StackSize)
	if err != nil {
		tasks.Printf(c, "pingpong: thread_create: %v", err)
		return
	}
	t2, err := c.ThreadCreate(pong, tasks.StackAt(base, nwords, 1), tasks.StackSize)
	if err != nil {
		tasks.Printf(c, "pingpong: thread_create: %v", err)
		return
	}
	e1 := c.ThreadJoin(t1)
	e2 := c.ThreadJoin(t2)

	seen, _ := c.Load32(word(wordSeen))
	mid, _ := c.Load32(word(wordMid))
	_ = c.MutexDealloc(int(mid))
	tasks.Printf(c, "pingpong: join %v %v, pong saw %d", e1, e2, seen)
}
