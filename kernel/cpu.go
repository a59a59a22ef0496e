package kernel

import "kthreads/vm"

// cpu is the per-processor state. Its fields are only touched by the
// goroutine currently executing on the processor: the scheduler loop or the
// thread it switched into.
type cpu struct {
	id        int
	scheduler *Regs // swtch here to enter the scheduler

	ncli   int  // depth of pushcli nesting
	intena bool // were interrupts enabled before pushcli?
	intr   bool // interrupts enabled

	proc   *Proc   // the currently running process
	thread *Thread // the currently running thread
	space  *vm.Space
}

func (k *Kernel) sti(c *cpu) { c.intr = true }

// switchuvm makes p's address space the active one on c.
func (k *Kernel) switchuvm(c *cpu, p *Proc) {
	if p.space == nil {
		k.panic(c, "switchuvm: no address space")
	}
	c.space = p.space
}

// switchkvm restores the kernel-only address space on c.
func (k *Kernel) switchkvm(c *cpu) {
	c.space = nil
}
