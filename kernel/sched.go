package kernel

import (
	"context"
	"runtime"
)

// scheduler is the per-processor loop. It never hands out a thread twice:
// a thread is picked only while RUNNABLE and leaves that state under the
// same lock hold.
//
// The process-table lock is held across whole table scans; a thread that
// was switched into releases it (forkret, or the return path of sched) and
// re-acquires it before switching back.
func (k *Kernel) scheduler(ctx context.Context, c *cpu) error {
	lk := &k.ptable.lock
	for {
		// Enable interrupts on this processor.
		k.sti(c)

		select {
		case <-ctx.Done():
			return nil
		case <-k.halt:
			if k.Panicked() != nil {
				return ErrHalted
			}
			return nil
		default:
		}

		k.acquire(c, lk)
		for i := range k.ptable.proc {
			p := &k.ptable.proc[i]
			if p.state != ProcUsed {
				continue
			}
			for j := range p.threads {
				t := &p.threads[j]
				if t.state != ThreadRunnable {
					continue
				}

				// Switch to the chosen thread. It is the thread's job to
				// release ptable.lock and re-acquire it before jumping back.
				c.proc = p
				c.thread = t
				t.cpu = c
				t.slice = k.ticks.Load()
				k.switchuvm(c, p)
				k.setThreadState(c, t, ThreadRunning)
				swtch(c.scheduler, t.regs)
				k.switchkvm(c)

				// The thread has changed its own state before coming back.
				c.proc = nil
				c.thread = nil
				if p.state != ProcUsed {
					k.strand(c, p, t)
					break
				}
			}
		}
		k.release(c, lk)
		runtime.Gosched()
	}
}

// strand handles a thread that left the processor after its process
// exited. If it only yielded or went to sleep it becomes a zombie, since
// nothing will run it again. The parent may be waiting in wait for the
// thread to get off the processor. Must hold ptable.lock.
func (k *Kernel) strand(c *cpu, p *Proc, t *Thread) {
	if t.state == ThreadRunnable || t.state == ThreadSleeping {
		t.waitChan = nil
		k.setThreadState(c, t, ThreadZombie)
	}
	if p.state == ProcZombie && p.parent >= 0 {
		k.wakeup1(c, &k.ptable.proc[p.parent])
	}
}

// sched enters the scheduler. The caller must hold only ptable.lock and
// must already have changed its own state.
func (k *Kernel) sched(t *Thread) {
	c := t.cpu
	switch {
	case !k.holding(c, &k.ptable.lock):
		k.panic(c, "sched ptable.lock")
	case c.ncli != 1:
		k.panic(c, "sched locks")
	case t.state == ThreadRunning:
		k.panic(c, "sched running")
	case c.intr:
		k.panic(c, "sched interruptible")
	}

	// intena belongs to this thread, not to the processor it resumes on.
	intena := c.intena
	swtch(t.regs, c.scheduler)
	t.cpu.intena = intena
}

// yield gives up the processor for one scheduling round.
func (k *Kernel) yield(t *Thread) {
	lk := &k.ptable.lock
	k.acquire(t.cpu, lk)
	k.setThreadState(t.cpu, t, ThreadRunnable)
	k.sched(t)
	k.release(t.cpu, lk)
}

// forkret is where a new thread's first switch lands. The scheduler still
// holds ptable.lock on its behalf.
func (k *Kernel) forkret(t *Thread) {
	k.release(t.cpu, &k.ptable.lock)
}
