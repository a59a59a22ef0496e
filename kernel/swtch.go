package kernel

import "runtime"

// Regs is a saved kernel register set. Each Regs is backed by one goroutine;
// switching to it hands the processor to that goroutine and parks the caller.
type Regs struct {
	resume chan struct{}
	dead   chan struct{}
	halt   <-chan struct{}

	entry   func() // first switch starts here; nil for a running goroutine
	started bool
	freed   bool

	// exiting is set by the goroutine itself just before it unwinds, so
	// that deferred user code can tell the kernel is gone.
	exiting bool
}

func newRegs(halt <-chan struct{}, entry func()) *Regs {
	return &Regs{
		resume:  make(chan struct{}),
		dead:    make(chan struct{}),
		halt:    halt,
		entry:   entry,
		started: entry == nil,
	}
}

// swtch saves the current registers in old and loads next. It returns when
// some processor switches back to old.
func swtch(old, next *Regs) {
	if !next.started {
		next.started = true
		go next.trampoline()
	}
	select {
	case next.resume <- struct{}{}:
	case <-next.halt:
		old.exit()
	}
	old.park()
}

func (r *Regs) trampoline() {
	r.park()
	r.entry()
}

func (r *Regs) park() {
	select {
	case <-r.resume:
	case <-r.dead:
		r.exit()
	case <-r.halt:
		r.exit()
	}
}

func (r *Regs) exit() {
	r.exiting = true
	runtime.Goexit()
}

// free discards the register set. A goroutine parked on it exits; it must
// never be switched to again.
func (r *Regs) free() {
	if r.freed {
		return
	}
	r.freed = true
	close(r.dead)
}
