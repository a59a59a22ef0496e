package kernel

import "fmt"

// threadCreate starts a thread in t's process at entry, on the user stack
// [stack, stack+size). It returns the new tid.
func (k *Kernel) threadCreate(t *Thread, entry Entry, stack uintptr, size int) (int, error) {
	c := t.cpu
	lk := &k.ptable.lock
	k.acquire(c, lk)
	defer k.release(c, lk)

	if entry == nil || stack == 0 || size <= 0 {
		k.log.WriteLineString("kthread_create: one or more invalid args")
		return -1, ErrInvalid
	}

	p := k.procOf(t)
	nt, err := k.allocthread(c, p)
	if err != nil {
		k.log.WriteLineString(fmt.Sprintf("kthread_create: proc %d: %v", p.pid, err))
		return -1, err
	}

	*nt.tf = *t.tf
	nt.tf.ESP = stack + uintptr(size)
	nt.tf.EBP = nt.tf.ESP
	nt.tf.EIP = entry

	k.setThreadState(c, nt, ThreadRunnable)
	return nt.tid, nil
}

// othersAlive reports whether p has a thread other than t that has not
// terminated. Must hold ptable.lock.
func (k *Kernel) othersAlive(p *Proc, t *Thread) bool {
	for i := range p.threads {
		s := &p.threads[i]
		if s != t && !s.state.terminated() {
			return true
		}
	}
	return false
}

// threadExit terminates t. If t is the last live thread its whole process
// exits. It does not return.
func (k *Kernel) threadExit(t *Thread) {
	lk := &k.ptable.lock
	k.acquire(t.cpu, lk)

	p := k.procOf(t)
	if p.state != ProcUsed {
		k.killSelf(t)
	}
	if !k.othersAlive(p, t) {
		k.killAll(t)
		k.release(t.cpu, lk)
		k.exit(t)
	}

	k.wakeup1(t.cpu, t)
	k.setThreadState(t.cpu, t, ThreadZombie)
	k.sched(t)
	k.panic(t.cpu, "zombie exit")
}

// threadJoin waits for thread tid of t's process to terminate and reclaims
// it if it is a zombie.
func (k *Kernel) threadJoin(t *Thread, tid int) error {
	lk := &k.ptable.lock
	k.acquire(t.cpu, lk)

	if tid < 0 || tid == t.tid || tid >= k.nexttid {
		k.release(t.cpu, lk)
		return ErrInvalid
	}

	p := k.procOf(t)
	var target *Thread
	for i := range p.threads {
		s := &p.threads[i]
		if s.state != ThreadUnused && s.tid == tid {
			target = s
			break
		}
	}
	if target == nil {
		k.release(t.cpu, lk)
		return ErrNotFound
	}

	for target.tid == tid && !target.state.terminated() {
		k.sleep(t, target, lk)
		if t.killed || p.killed {
			k.release(t.cpu, lk)
			return ErrBadState
		}
	}
	if target.tid == tid && target.state == ThreadZombie {
		k.clearThread(t.cpu, target)
	}

	k.release(t.cpu, lk)
	return nil
}

// killOthers zombifies every other thread of t's process that is not on a
// processor. Must hold ptable.lock.
func (k *Kernel) killOthers(t *Thread) {
	p := k.procOf(t)
	for i := range p.threads {
		s := &p.threads[i]
		if s != t && s.state != ThreadRunning && s.state != ThreadUnused {
			k.setThreadState(t.cpu, s, ThreadZombie)
		}
	}
}

// killAll is killOthers plus zombifying t itself and marking the process
// killed. Must hold ptable.lock.
func (k *Kernel) killAll(t *Thread) {
	k.killOthers(t)
	k.setThreadState(t.cpu, t, ThreadZombie)
	k.procOf(t).killed = true
}
