package kernel

// sleep atomically releases lk and sleeps on key. It re-acquires lk when
// awakened. Callers must re-check their condition: a wakeup only means the
// key was signalled.
func (k *Kernel) sleep(t *Thread, key any, lk *spinlock) {
	if t == nil {
		k.panic(nil, "sleep")
	}
	if lk == nil {
		k.panic(t.cpu, "sleep without lk")
	}

	// Must acquire ptable.lock in order to change the thread state and
	// then call sched. Once it is held no wakeup can be missed (wakeup
	// runs with ptable.lock held), so it's okay to release lk.
	pt := &k.ptable.lock
	if lk != pt {
		k.acquire(t.cpu, pt)
		k.release(t.cpu, lk)
	}

	t.waitChan = key
	k.setThreadState(t.cpu, t, ThreadSleeping)
	k.sched(t)

	t.waitChan = nil

	if lk != pt {
		k.release(t.cpu, pt)
		k.acquire(t.cpu, lk)
	}
}

// wakeup1 wakes every thread sleeping on key. Must hold ptable.lock.
func (k *Kernel) wakeup1(c *cpu, key any) {
	for i := range k.ptable.proc {
		p := &k.ptable.proc[i]
		if p.state != ProcUsed {
			continue
		}
		for j := range p.threads {
			t := &p.threads[j]
			if t.state == ThreadSleeping && t.waitChan == key {
				k.setThreadState(c, t, ThreadRunnable)
			}
		}
	}
}

// wakeup wakes every thread sleeping on key.
func (k *Kernel) wakeup(c *cpu, key any) {
	lk := &k.ptable.lock
	k.acquire(c, lk)
	k.wakeup1(c, key)
	k.release(c, lk)
}
