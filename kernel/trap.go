package kernel

import "fmt"

// trapret enters user mode at the trap frame's instruction pointer. A
// thread whose entry returns exits; a fault kills its process.
func (k *Kernel) trapret(t *Thread) {
	c := &Context{k: k, t: t, regs: t.regs}
	c.trap()
	if k.user(c) {
		c.ThreadExit()
	}
	k.terminate(t)
}

// user runs the thread's entry and reports whether it returned normally.
func (k *Kernel) user(c *Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			k.log.WriteLineString(fmt.Sprintf("pid %d tid %d: trap: %v", k.procOf(c.t).pid, c.t.tid, r))
			k.markKilled(c.t)
			ok = false
		}
	}()
	c.t.tf.EIP(c)
	return true
}

func (k *Kernel) markKilled(t *Thread) {
	lk := &k.ptable.lock
	k.acquire(t.cpu, lk)
	k.procOf(t).killed = true
	t.killed = true
	k.release(t.cpu, lk)
}

// killed reports whether t or its process has been killed.
func (k *Kernel) killed(t *Thread) bool {
	lk := &k.ptable.lock
	k.acquire(t.cpu, lk)
	defer k.release(t.cpu, lk)
	return t.killed || k.procOf(t).killed
}

// doomed reports whether t must not return to user mode.
func (k *Kernel) doomed(t *Thread) bool {
	lk := &k.ptable.lock
	k.acquire(t.cpu, lk)
	defer k.release(t.cpu, lk)
	p := k.procOf(t)
	return t.killed || p.killed || p.state != ProcUsed
}

// terminate ends a doomed thread. The last live thread of the process runs
// process exit; any other thread invalidates itself. It does not return.
func (k *Kernel) terminate(t *Thread) {
	lk := &k.ptable.lock
	k.acquire(t.cpu, lk)
	p := k.procOf(t)
	if p.state == ProcUsed && !k.othersAlive(p, t) {
		k.release(t.cpu, lk)
		k.exit(t)
	}
	k.killSelf(t)
}

// killSelf makes t INVALID rather than ZOMBIE so that no processor can
// pick it up again and no joiner handshake is needed. Must hold
// ptable.lock. It does not return.
func (k *Kernel) killSelf(t *Thread) {
	k.wakeup1(t.cpu, t)
	k.setThreadState(t.cpu, t, ThreadInvalid)
	k.sched(t)
	k.panic(t.cpu, "zombie exit")
}

// trap is the return path of every kernel call: doomed threads die here and
// a thread whose time slice has expired yields.
func (c *Context) trap() {
	k, t := c.k, c.t
	select {
	case <-k.halt:
		c.regs.exit()
	default:
	}
	if k.doomed(t) {
		k.terminate(t)
	}
	if k.ticks.Load() != t.slice {
		k.yield(t)
	}
}
