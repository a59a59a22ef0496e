package kernel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"kthreads/mem"
)

// Logger writes newline-delimited kernel log lines.
type Logger interface {
	WriteLineString(s string)
}

type discardLogger struct{}

func (discardLogger) WriteLineString(string) {}

// Config holds the boot-time parameters of a Kernel.
type Config struct {
	// CPUs is the number of processors running the scheduler loop.
	CPUs int
	// Pages is the number of kernel stack pages.
	Pages int
	// MaxUserMem bounds each process address space, in bytes.
	MaxUserMem int

	Logger Logger
	// PanicHandler is invoked once on the first fatal kernel error. It must
	// return.
	PanicHandler func(PanicInfo)

	// Root is the working directory of the first process.
	Root Inode
	// Console is installed as fds 0, 1 and 2 of the first process.
	Console File
}

func (cfg *Config) setDefaults() {
	if cfg.CPUs <= 0 {
		cfg.CPUs = 2
	}
	if cfg.CPUs > NCPU {
		cfg.CPUs = NCPU
	}
	if cfg.Pages <= 0 {
		cfg.Pages = NProc * NThread
	}
	if cfg.MaxUserMem <= 0 {
		cfg.MaxUserMem = 1 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger{}
	}
}

// ErrHalted is returned by Shutdown after a kernel panic, and by host-side
// calls made once the kernel has stopped.
var ErrHalted = errors.New("kernel halted")

// Kernel is one machine: processors, the process table with its threads,
// and the mutex pool.
type Kernel struct {
	cfg Config
	log Logger
	mem *mem.Allocator

	ptable struct {
		lock spinlock
		proc [NProc]Proc
	}
	nextpid  int
	nexttid  int
	initproc int

	mtable mtable

	cpus []*cpu

	// intrCPU runs host-side entries into the kernel (boot, timer,
	// console dump) as if they were interrupts on a processor of their own.
	intrMu  sync.Mutex
	intrCPU cpu

	ticks atomic.Uint64

	panicOnce sync.Once
	panicInfo atomic.Pointer[PanicInfo]
	haltOnce  sync.Once
	halt      chan struct{}

	runMu   sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	stopped bool
}

// New creates a kernel with every table empty. No processor runs until
// Start.
func New(cfg Config) *Kernel {
	cfg.setDefaults()
	k := &Kernel{
		cfg:      cfg,
		log:      cfg.Logger,
		mem:      mem.New(cfg.Pages),
		nextpid:  1,
		nexttid:  1,
		initproc: -1,
		halt:     make(chan struct{}),
	}
	k.ptable.lock.name = "ptable"
	k.mtable.lock.name = "mtable"
	for i := range k.ptable.proc {
		p := &k.ptable.proc[i]
		p.index = i
		p.parent = -1
		for j := range p.threads {
			p.threads[j].proc = -1
		}
	}
	k.intrCPU.id = -1
	for i := 0; i < cfg.CPUs; i++ {
		k.cpus = append(k.cpus, &cpu{id: i, scheduler: newRegs(k.halt, nil)})
	}
	return k
}

// CPUs returns the number of processors.
func (k *Kernel) CPUs() int { return len(k.cpus) }

// Start runs the scheduler loop on every processor until ctx is done or
// Shutdown is called. A kernel runs at most once.
func (k *Kernel) Start(ctx context.Context) {
	k.runMu.Lock()
	defer k.runMu.Unlock()
	if k.group != nil {
		return
	}
	ctx, k.cancel = context.WithCancel(ctx)
	k.group, ctx = errgroup.WithContext(ctx)
	for _, c := range k.cpus {
		c := c
		k.group.Go(func() error {
			return k.scheduler(ctx, c)
		})
	}
	k.log.WriteLineString("kernel: started")
}

// Shutdown halts every processor and every thread goroutine, then waits
// for the processors to stop. It returns ErrHalted if the kernel panicked.
func (k *Kernel) Shutdown() error {
	k.runMu.Lock()
	defer k.runMu.Unlock()
	if k.group == nil || k.stopped {
		return nil
	}
	k.stopped = true
	k.cancel()
	k.stop()
	err := k.group.Wait()
	if k.Panicked() != nil {
		return ErrHalted
	}
	return err
}

// stop closes the halt channel. Parked and spinning goroutines exit when
// they next look at it.
func (k *Kernel) stop() {
	k.haltOnce.Do(func() { close(k.halt) })
}

// Tick advances the timer. A running thread gives up its processor at the
// next trap return after a tick.
func (k *Kernel) Tick() {
	k.ticks.Add(1)
}

// Ticks returns the number of timer ticks since boot.
func (k *Kernel) Ticks() uint64 {
	return k.ticks.Load()
}

// intr runs fn on the interrupt processor. fn runs on a goroutine of its
// own so that a halt while it spins on a lock cannot stop the caller.
func (k *Kernel) intr(fn func(c *cpu)) error {
	k.intrMu.Lock()
	defer k.intrMu.Unlock()
	select {
	case <-k.halt:
		return ErrHalted
	default:
	}
	done := make(chan bool, 1)
	go func() {
		ok := false
		defer func() { done <- ok }()
		fn(&k.intrCPU)
		ok = true
	}()
	if !<-done {
		return ErrHalted
	}
	return nil
}
