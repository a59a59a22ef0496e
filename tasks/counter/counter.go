// Package counter runs several threads incrementing one word of user memory
// under a kernel mutex.
package counter

import (
	"kthreads/kernel"
	"kthreads/tasks"
)

const (
	Threads = 4
	Rounds  = 50
)

// Main is the program entry.
func Main(c *kernel.Context) {
	mid, err := c.MutexAlloc()
	if err != nil {
		tasks.Printf(c, "counter: mutex_alloc: %v", err)
		return
	}
	base, err := tasks.Stacks(c, Threads, 1)
	if err != nil {
		tasks.Printf(c, "counter: sbrk: %v", err)
		return
	}

	work := func(c *kernel.Context) {
		for i := 0; i < Rounds; i++ {
			_ = c.MutexLock(mid)
			v, _ := c.Load32(base)
			c.Yield()
			_ = c.Store32(base, v+1)
			_ = c.MutexUnlock(mid)
		}
	}

	var tids []int
	for i := 0; i < Threads; i++ {
		tid, err := c.ThreadCreate(work, tasks.StackAt(base, 1, i), tasks.StackSize)
		if err != nil {
			tasks.Printf(c, "counter: thread_create: %v", err)
			continue
		}
		tids = append(tids, tid)
	}
	for _, tid := range tids {
		if err := c.ThreadJoin(tid); err != nil {
			tasks.Printf(c, "counter: join %d: %v", tid, err)
		}
	}

	v, _ := c.Load32(base)
	tasks.Printf(c, "counter: %d of %d", v, len(tids)*Rounds)
	_ = c.MutexDealloc(mid)
}
