// Package spawn forks short-lived children and waits for each of them.
package spawn

import (
	"kthreads/kernel"
	"kthreads/tasks"
)

const Children = 4

// Main is the program entry.
func Main(c *kernel.Context) {
	child := func(c *kernel.Context) {
		tasks.Printf(c, "spawn: child pid %d", c.Getpid())
		c.Exit()
	}

	n := 0
	for i := 0; i < Children; i++ {
		if _, err := c.Fork(child); err != nil {
			tasks.Printf(c, "spawn: fork: %v", err)
			break
		}
		n++
	}
	for ; n > 0; n-- {
		pid, err := c.Wait()
		if err != nil {
			tasks.Printf(c, "spawn: wait: %v", err)
			return
		}
		tasks.Printf(c, "spawn: pid %d done", pid)
	}
}
