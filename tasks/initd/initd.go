// Package initd is the first user program. It forks every program named in
// its argument vector and then reaps children forever.
package initd

import (
	"kthreads/kernel"
	"kthreads/tasks"
)

// Programs maps program names to their entries.
type Programs map[string]kernel.Entry

// New returns the init entry for progs.
func New(progs Programs) kernel.Entry {
	return func(c *kernel.Context) {
		tasks.Printf(c, "init: starting")
		for _, name := range c.Args() {
			prog, ok := progs[name]
			if !ok {
				tasks.Printf(c, "init: %s: not found", name)
				continue
			}
			pid, err := c.Fork(prog)
			if err != nil {
				tasks.Printf(c, "init: fork %s: %v", name, err)
				continue
			}
			tasks.Printf(c, "init: %s is pid %d", name, pid)
		}

		for {
			pid, err := c.Wait()
			if err != nil {
				c.Yield()
				continue
			}
			tasks.Printf(c, "init: reaped pid %d", pid)
		}
	}
}
