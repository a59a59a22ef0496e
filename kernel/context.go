package kernel

// Context provides thread-local access to kernel operations. Each call is a
// trap: on the way back to user code a killed thread terminates and a
// thread whose time slice expired yields.
type Context struct {
	k    *Kernel
	t    *Thread
	regs *Regs
}

// gone reports whether the thread is unwinding after its kernel stopped or
// its slot was reclaimed; deferred user code may still call in and those
// calls do nothing. A live thread of a halted kernel stops here.
func (c *Context) gone() bool {
	if c == nil || c.t == nil || c.regs == nil || c.regs.exiting {
		return true
	}
	select {
	case <-c.k.halt:
		c.regs.exit()
	default:
	}
	return false
}

// ThreadCreate starts a thread of the calling process at entry, using
// [stack, stack+stackSize) as its user stack.
func (c *Context) ThreadCreate(entry Entry, stack uintptr, stackSize int) (int, error) {
	if c.gone() {
		return -1, ErrNoThread
	}
	tid, err := c.k.threadCreate(c.t, entry, stack, stackSize)
	c.trap()
	return tid, err
}

// ThreadID returns the caller's tid, or -1 outside a thread.
func (c *Context) ThreadID() (int, error) {
	if c.gone() {
		return -1, ErrNoThread
	}
	tid := c.t.tid
	c.trap()
	return tid, nil
}

// ThreadExit terminates the calling thread. The last live thread of a
// process takes the whole process down with it.
func (c *Context) ThreadExit() {
	if c.gone() {
		return
	}
	c.k.threadExit(c.t)
}

// ThreadJoin waits until thread tid of the calling process has terminated.
func (c *Context) ThreadJoin(tid int) error {
	if c.gone() {
		return ErrNoThread
	}
	err := c.k.threadJoin(c.t, tid)
	c.trap()
	return err
}

// KillOthers zombifies every other thread of the calling process that is
// not on a processor.
func (c *Context) KillOthers() {
	if c.gone() {
		return
	}
	lk := &c.k.ptable.lock
	c.k.acquire(c.t.cpu, lk)
	c.k.killOthers(c.t)
	c.k.release(c.t.cpu, lk)
	c.trap()
}

// KillAll kills the calling process from inside: every thread that is not
// running is zombified, the rest die at their next trap. It does not
// return.
func (c *Context) KillAll() {
	if c.gone() {
		return
	}
	k, t := c.k, c.t
	lk := &k.ptable.lock
	k.acquire(t.cpu, lk)
	if k.procOf(t).state != ProcUsed {
		k.killSelf(t)
	}
	k.killAll(t)
	if k.othersAlive(k.procOf(t), t) {
		k.killSelf(t)
	}
	k.release(t.cpu, lk)
	k.exit(t)
}

// MutexAlloc takes a mutex from the system-wide pool and returns its id.
func (c *Context) MutexAlloc() (int, error) {
	if c.gone() {
		return -1, ErrNoThread
	}
	mid, err := c.k.mutexAlloc(c.t)
	c.trap()
	return mid, err
}

// MutexDealloc returns an unlocked mutex to the pool.
func (c *Context) MutexDealloc(mid int) error {
	if c.gone() {
		return ErrNoThread
	}
	err := c.k.mutexDealloc(c.t, mid)
	c.trap()
	return err
}

// MutexLock blocks until the caller holds mid.
func (c *Context) MutexLock(mid int) error {
	if c.gone() {
		return ErrNoThread
	}
	err := c.k.mutexLock(c.t, mid)
	c.trap()
	return err
}

// MutexUnlock releases mid and wakes every thread waiting for it.
func (c *Context) MutexUnlock(mid int) error {
	if c.gone() {
		return ErrNoThread
	}
	err := c.k.mutexUnlock(c.t, mid)
	c.trap()
	return err
}

// Fork copies the calling process. The child's single thread starts at
// child with a zero return register; the parent gets the child's pid.
func (c *Context) Fork(child Entry) (int, error) {
	if c.gone() {
		return -1, ErrNoThread
	}
	pid, err := c.k.fork(c.t, child)
	c.trap()
	return pid, err
}

// Exit terminates the calling process. It does not return.
func (c *Context) Exit() {
	if c.gone() {
		return
	}
	c.k.exit(c.t)
}

// Wait blocks until a child process exits and returns its pid.
func (c *Context) Wait() (int, error) {
	if c.gone() {
		return -1, ErrNoThread
	}
	pid, err := c.k.wait(c.t)
	c.trap()
	return pid, err
}

// Kill marks process pid killed.
func (c *Context) Kill(pid int) error {
	if c.gone() {
		return ErrNoThread
	}
	err := c.k.kill(c.t.cpu, pid)
	c.trap()
	return err
}

// Getpid returns the pid of the calling process.
func (c *Context) Getpid() int {
	if c.gone() {
		return -1
	}
	lk := &c.k.ptable.lock
	c.k.acquire(c.t.cpu, lk)
	pid := c.k.procOf(c.t).pid
	c.k.release(c.t.cpu, lk)
	c.trap()
	return pid
}

// Yield gives up the processor.
func (c *Context) Yield() {
	if c.gone() {
		return
	}
	c.k.yield(c.t)
	c.trap()
}

// Sbrk grows the process address space by n bytes and returns its old size.
func (c *Context) Sbrk(n int) (uintptr, error) {
	if c.gone() {
		return 0, ErrNoThread
	}
	old, err := c.k.growproc(c.t, n)
	c.trap()
	return old, err
}

// Load32 reads the user word at addr.
func (c *Context) Load32(addr uintptr) (uint32, error) {
	if c.gone() {
		return 0, ErrNoThread
	}
	v, err := c.t.cpu.space.Load32(addr)
	c.trap()
	if err != nil {
		return 0, ErrFault
	}
	return v, nil
}

// Store32 writes the user word at addr.
func (c *Context) Store32(addr uintptr, v uint32) error {
	if c.gone() {
		return ErrNoThread
	}
	err := c.t.cpu.space.Store32(addr, v)
	c.trap()
	if err != nil {
		return ErrFault
	}
	return nil
}

// Write writes p to open file fd.
func (c *Context) Write(fd int, p []byte) (int, error) {
	if c.gone() {
		return -1, ErrNoThread
	}
	f, ok := c.k.procOf(c.t).files.get(fd)
	if !ok {
		c.trap()
		return -1, ErrBadFD
	}
	n, err := f.Write(p)
	c.trap()
	return n, err
}

// Dup installs a copy of fd in the lowest free descriptor.
func (c *Context) Dup(fd int) (int, error) {
	if c.gone() {
		return -1, ErrNoThread
	}
	ft := &c.k.procOf(c.t).files
	f, ok := ft.get(fd)
	if !ok {
		c.trap()
		return -1, ErrBadFD
	}
	nf := f.Dup()
	nfd, ok := ft.install(nf)
	if !ok {
		_ = nf.Close()
		c.trap()
		return -1, ErrNoSlot
	}
	c.trap()
	return nfd, nil
}

// Close closes fd.
func (c *Context) Close(fd int) error {
	if c.gone() {
		return ErrNoThread
	}
	f, ok := c.k.procOf(c.t).files.remove(fd)
	if !ok {
		c.trap()
		return ErrBadFD
	}
	err := f.Close()
	c.trap()
	return err
}

// TrapFrame returns a copy of the caller's trap frame.
func (c *Context) TrapFrame() TrapFrame {
	if c.gone() {
		return TrapFrame{}
	}
	return *c.t.tf
}

// Args returns the argument vector the thread was started with.
func (c *Context) Args() []string {
	return c.TrapFrame().Args
}
