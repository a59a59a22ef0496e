package kernel

import (
	"fmt"

	"kthreads/vm"
)

// Proc is a process table slot.
type Proc struct {
	index  int // slot in the process table
	pid    int
	state  ProcState
	parent int // slot of the parent process, -1 if none
	space  *vm.Space
	killed bool
	files  fileTable
	cwd    Inode
	name   string

	threads [NThread]Thread
}

func (k *Kernel) procOf(t *Thread) *Proc {
	return &k.ptable.proc[t.proc]
}

// allocproc finds an unused process slot and gives it a first thread.
// Must hold ptable.lock.
func (k *Kernel) allocproc(c *cpu) (*Proc, *Thread, error) {
	var p *Proc
	for i := range k.ptable.proc {
		if k.ptable.proc[i].state == ProcUnused {
			p = &k.ptable.proc[i]
			break
		}
	}
	if p == nil {
		return nil, nil, ErrNoSlot
	}

	k.setProcState(c, p, ProcUsed)
	p.pid = k.nextpid
	k.nextpid++
	p.parent = -1
	p.killed = false

	t, err := k.allocthread(c, p)
	if err != nil {
		p.pid = 0
		k.setProcState(c, p, ProcUnused)
		return nil, nil, err
	}
	return p, t, nil
}

// Boot sets up the first process, running init with args. It must be called
// once, before or after Start.
func (k *Kernel) Boot(init Entry, args []string) (pid int, err error) {
	if init == nil {
		return 0, ErrInvalid
	}
	ierr := k.intr(func(c *cpu) {
		lk := &k.ptable.lock
		k.acquire(c, lk)
		defer k.release(c, lk)

		if k.initproc >= 0 {
			err = ErrBadState
			return
		}
		p, t, aerr := k.allocproc(c)
		if aerr != nil {
			err = aerr
			return
		}
		space, verr := vm.New(k.cfg.MaxUserMem, PGSize)
		if verr != nil {
			k.clearThread(c, t)
			p.pid = 0
			k.setProcState(c, p, ProcUnused)
			err = ErrNoMem
			return
		}
		p.space = space
		p.name = "initcode"
		if k.cfg.Root != nil {
			p.cwd = k.cfg.Root.Dup()
		}
		if k.cfg.Console != nil {
			for fd := 0; fd < 3; fd++ {
				p.files.open[fd] = k.cfg.Console.Dup()
			}
		}
		*t.tf = TrapFrame{EIP: init, ESP: PGSize, EBP: PGSize, Args: args}

		k.initproc = p.index
		k.setThreadState(c, t, ThreadRunnable)
		pid = p.pid
	})
	if ierr != nil {
		return 0, ierr
	}
	if err == nil {
		k.log.WriteLineString(fmt.Sprintf("kernel: init pid %d", pid))
	}
	return pid, err
}

// growproc grows the address space of t's process by n bytes and returns
// the previous size.
func (k *Kernel) growproc(t *Thread, n int) (uintptr, error) {
	lk := &k.ptable.lock
	k.acquire(t.cpu, lk)
	defer k.release(t.cpu, lk)

	p := k.procOf(t)
	old, err := p.space.Grow(n)
	if err != nil {
		return 0, ErrNoMem
	}
	k.switchuvm(t.cpu, p)
	return old, nil
}

// fork creates a copy of t's process whose single thread resumes at child
// with a zero return value. It returns the child's pid.
func (k *Kernel) fork(t *Thread, child Entry) (int, error) {
	if child == nil {
		return 0, ErrInvalid
	}
	c := t.cpu
	lk := &k.ptable.lock
	k.acquire(c, lk)
	defer k.release(c, lk)

	p := k.procOf(t)
	np, nt, err := k.allocproc(c)
	if err != nil {
		return 0, err
	}

	space, err := p.space.Copy()
	if err != nil {
		k.clearThread(c, nt)
		np.pid = 0
		k.setProcState(c, np, ProcUnused)
		return 0, ErrNoMem
	}
	np.space = space
	np.parent = p.index

	*nt.tf = *t.tf
	nt.tf.EAX = 0
	nt.tf.EIP = child

	p.files.dupInto(&np.files)
	if p.cwd != nil {
		np.cwd = p.cwd.Dup()
	}
	np.name = p.name

	k.setThreadState(c, nt, ThreadRunnable)
	return np.pid, nil
}

// exit terminates the process of t. It does not return: the process stays
// a zombie until its parent calls wait.
func (k *Kernel) exit(t *Thread) {
	p := k.procOf(t)
	if p.index == k.initproc {
		k.panic(t.cpu, "init exiting")
	}

	c := t.cpu
	lk := &k.ptable.lock
	k.acquire(c, lk)

	if p.state != ProcUsed {
		// A sibling already exited the process while t was running.
		k.killSelf(t)
	}

	p.files.closeAll()
	if p.cwd != nil {
		p.cwd.Put()
		p.cwd = nil
	}

	// Parent might be sleeping in wait.
	if p.parent >= 0 {
		k.wakeup1(c, &k.ptable.proc[p.parent])
	}

	// Pass abandoned children to init.
	initp := &k.ptable.proc[k.initproc]
	for i := range k.ptable.proc {
		q := &k.ptable.proc[i]
		if q.state == ProcUnused || q.parent != p.index {
			continue
		}
		q.parent = initp.index
		if q.state == ProcZombie {
			k.wakeup1(c, initp)
		}
	}

	for i := range p.threads {
		s := &p.threads[i]
		if s != t && s.state != ThreadRunning && s.state != ThreadUnused {
			k.setThreadState(c, s, ThreadZombie)
		}
	}

	k.setThreadState(c, t, ThreadInvalid)
	k.setProcState(c, p, ProcZombie)
	k.sched(t)
	k.panic(t.cpu, "zombie exit")
}

// wait reclaims a zombie child of t's process and returns its pid.
func (k *Kernel) wait(t *Thread) (int, error) {
	lk := &k.ptable.lock
	k.acquire(t.cpu, lk)

	p := k.procOf(t)
	for {
		havekids := false
		for i := range k.ptable.proc {
			q := &k.ptable.proc[i]
			if q.state == ProcUnused || q.parent != p.index {
				continue
			}
			havekids = true
			if q.state != ProcZombie || k.anyRunning(q) {
				continue
			}

			pid := q.pid
			for j := range q.threads {
				k.clearThread(t.cpu, &q.threads[j])
			}
			if q.space != nil {
				q.space.Free()
				q.space = nil
			}
			q.pid = 0
			q.parent = -1
			q.name = ""
			q.killed = false
			k.setProcState(t.cpu, q, ProcUnused)
			k.release(t.cpu, lk)
			return pid, nil
		}

		// No point waiting if we don't have any children.
		if !havekids || p.killed {
			k.release(t.cpu, lk)
			return 0, ErrNoChild
		}

		k.sleep(t, p, lk)
	}
}

// anyRunning reports whether a thread of p is executing on some processor.
func (k *Kernel) anyRunning(p *Proc) bool {
	for i := range p.threads {
		if p.threads[i].state == ThreadRunning {
			return true
		}
	}
	return false
}

// kill marks the process with the given pid killed and wakes its sleeping
// threads. It won't exit until one of its threads returns from a trap.
func (k *Kernel) kill(c *cpu, pid int) error {
	lk := &k.ptable.lock
	k.acquire(c, lk)
	defer k.release(c, lk)

	for i := range k.ptable.proc {
		p := &k.ptable.proc[i]
		if p.state == ProcUnused || p.pid != pid {
			continue
		}
		p.killed = true
		for j := range p.threads {
			if s := &p.threads[j]; s.state == ThreadSleeping {
				k.setThreadState(c, s, ThreadRunnable)
			}
		}
		return nil
	}
	return ErrNotFound
}

// Kill marks a process killed from outside any thread, e.g. the console.
func (k *Kernel) Kill(pid int) error {
	var err error
	if ierr := k.intr(func(c *cpu) {
		err = k.kill(c, pid)
	}); ierr != nil {
		return ierr
	}
	return err
}
