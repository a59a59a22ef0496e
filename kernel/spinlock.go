package kernel

import (
	"runtime"
	"sync/atomic"
)

// spinlock is a mutual-exclusion lock owned by a processor, not by a
// goroutine: the scheduler acquires the process-table lock and the thread it
// switches into releases it.
type spinlock struct {
	name   string
	locked atomic.Uint32
	cpu    atomic.Pointer[cpu]
}

// acquire spins until lk is held by c. Interrupts stay disabled on c until
// the matching release.
func (k *Kernel) acquire(c *cpu, lk *spinlock) {
	k.pushcli(c)
	if k.holding(c, lk) {
		k.panic(c, "acquire "+lk.name)
	}
	for !lk.locked.CompareAndSwap(0, 1) {
		select {
		case <-k.halt:
			runtime.Goexit()
		default:
		}
		runtime.Gosched()
	}
	lk.cpu.Store(c)
}

func (k *Kernel) release(c *cpu, lk *spinlock) {
	if !k.holding(c, lk) {
		k.panic(c, "release "+lk.name)
	}
	lk.cpu.Store(nil)
	lk.locked.Store(0)
	k.popcli(c)
}

// holding reports whether c holds lk.
func (k *Kernel) holding(c *cpu, lk *spinlock) bool {
	return lk.locked.Load() != 0 && lk.cpu.Load() == c
}

// pushcli and popcli are like cli and sti except that they nest: it takes
// two popcli to undo two pushcli. Interrupts that were off stay off.
func (k *Kernel) pushcli(c *cpu) {
	enabled := c.intr
	c.intr = false
	if c.ncli == 0 {
		c.intena = enabled
	}
	c.ncli++
}

func (k *Kernel) popcli(c *cpu) {
	if c.intr {
		k.panic(c, "popcli - interruptible")
	}
	c.ncli--
	if c.ncli < 0 {
		k.panic(c, "popcli")
	}
	if c.ncli == 0 && c.intena {
		c.intr = true
	}
}
