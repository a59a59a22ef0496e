package kernel

import "kthreads/mem"

// Entry is user code. It runs on a thread's user stack with the thread's
// Context; returning from it exits the thread.
type Entry func(c *Context)

// TrapFrame is the user register snapshot restored on return to user mode.
type TrapFrame struct {
	EIP  Entry   // instruction pointer
	ESP  uintptr // stack pointer
	EBP  uintptr // frame pointer
	EAX  int     // return value register
	Args []string
}

// Thread is a slot in a process's thread table.
type Thread struct {
	tid      int
	state    ThreadState
	kstack   *mem.Page // bottom of the kernel stack for this thread
	proc     int       // slot of the owning process
	tf       *TrapFrame
	regs     *Regs // swtch here to run the thread
	waitChan any   // if non-nil, sleeping on waitChan
	killed   bool

	cpu   *cpu   // processor the thread last ran on
	slice uint64 // tick at which the thread was last scheduled
}

// allocthread finds a free slot in p, reclaiming a zombie slot if needed,
// and prepares it to start in forkret followed by trapret.
// Must hold ptable.lock.
func (k *Kernel) allocthread(c *cpu, p *Proc) (*Thread, error) {
	var t *Thread
	for i := range p.threads {
		s := &p.threads[i]
		if s.state == ThreadUnused {
			t = s
			break
		}
		if s.state == ThreadZombie {
			k.clearThread(c, s)
			t = s
			break
		}
	}
	if t == nil {
		return nil, ErrNoSlot
	}

	k.setThreadState(c, t, ThreadEmbryo)
	t.tid = k.nexttid
	k.nexttid++
	t.proc = p.index
	t.killed = false

	page, ok := k.mem.Alloc()
	if !ok {
		t.tid = 0
		t.proc = -1
		k.setThreadState(c, t, ThreadUnused)
		return nil, ErrNoMem
	}
	t.kstack = page

	// The trap frame sits at the top of the kernel stack; the first switch
	// into the thread lands in forkret, which returns to trapret.
	t.tf = &TrapFrame{}
	t.regs = newRegs(k.halt, func() {
		k.forkret(t)
		k.trapret(t)
	})
	return t, nil
}

// clearThread releases t's kernel stack and resets the slot to unused.
// Must hold ptable.lock.
func (k *Kernel) clearThread(c *cpu, t *Thread) {
	if t.state == ThreadRunning {
		k.panic(c, "clearThread: running")
	}
	if t.kstack != nil {
		if err := k.mem.Free(t.kstack); err != nil {
			k.panic(c, "kfree: "+err.Error())
		}
		t.kstack = nil
	}
	if t.regs != nil {
		t.regs.free()
		t.regs = nil
	}
	t.tf = nil
	t.tid = 0
	t.proc = -1
	t.waitChan = nil
	t.killed = false
	t.cpu = nil
	if t.state != ThreadUnused {
		k.setThreadState(c, t, ThreadUnused)
	}
}
