package app

import (
	"context"
	"fmt"
	"slices"

	"kthreads/console"
	"kthreads/hal"
	"kthreads/internal/buildinfo"
	"kthreads/kernel"
	"kthreads/tasks/counter"
	"kthreads/tasks/initd"
	"kthreads/tasks/pingpong"
	"kthreads/tasks/spawn"
)

// Config selects the machine and the init command line.
type Config struct {
	CPUs  int
	Pages int
	// Init is the init program's argument vector: the programs it starts.
	Init []string
	// DumpEvery lists the process table every N timer ticks (0 = never).
	DumpEvery uint64
	// ExitOnPanic makes the step function fail after a kernel panic instead
	// of leaving the panic screen up.
	ExitOnPanic bool
}

// Programs are the user programs init can start.
var Programs = initd.Programs{
	"counter":  counter.Main,
	"pingpong": pingpong.Main,
	"spawn":    spawn.Main,
}

type system struct {
	h    hal.HAL
	cfg  Config
	k    *kernel.Kernel
	cons *console.Console
	root *rootInode

	initPID int
	ticks   <-chan uint64
	keys    <-chan hal.KeyEvent
}

// New boots the kernel with the default config.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{})
}

// NewWithConfig boots the kernel and returns the per-frame step function:
// it feeds timer ticks and console keys to the kernel.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s, err := newSystem(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	return s.step
}

func newSystem(h hal.HAL, cfg Config) (*system, error) {
	s := &system{h: h, cfg: cfg, root: &rootInode{}}
	s.cons = console.New(h.Logger(), h.Display())
	s.cons.WriteLineString(buildinfo.Banner())

	s.k = kernel.New(kernel.Config{
		CPUs:         cfg.CPUs,
		Pages:        cfg.Pages,
		Logger:       s.cons,
		PanicHandler: s.panicScreen,
		Root:         s.root,
		Console:      s.cons.File(),
	})
	pid, err := s.k.Boot(initd.New(Programs), cfg.Init)
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	s.initPID = pid
	s.k.Start(context.Background())
	s.cons.WriteLineString(fmt.Sprintf("cpus: %d", s.k.CPUs()))

	if ht := h.Time(); ht != nil {
		s.ticks = ht.Ticks()
	}
	if in := h.Input(); in != nil {
		if kbd := in.Keyboard(); kbd != nil {
			s.keys = kbd.Events()
		}
	}
	return s, nil
}

func (s *system) step() error {
	if info := s.k.Panicked(); info != nil {
		if s.cfg.ExitOnPanic {
			return fmt.Errorf("kernel panic: %v", info.Value)
		}
		return nil
	}

	for drained := false; !drained; {
		select {
		case <-s.ticks:
			s.k.Tick()
			if n := s.cfg.DumpEvery; n > 0 && s.k.Ticks()%n == 0 {
				s.k.Procdump()
			}
		case ev := <-s.keys:
			s.key(ev)
		default:
			drained = true
		}
	}

	s.cons.Flush()
	return nil
}

func (s *system) key(ev hal.KeyEvent) {
	if !ev.Press {
		return
	}
	switch ev.Rune {
	case hal.RuneCtrlP:
		s.k.Procdump()
	case hal.RuneCtrlK:
		pids := s.k.Pids()
		pids = slices.DeleteFunc(pids, func(pid int) bool { return pid == s.initPID })
		if len(pids) == 0 {
			s.cons.WriteLineString("kill: no process")
			return
		}
		pid := slices.Max(pids)
		if err := s.k.Kill(pid); err != nil {
			s.cons.WriteLineString(fmt.Sprintf("kill %d: %v", pid, err))
			return
		}
		s.cons.WriteLineString(fmt.Sprintf("kill %d", pid))
	}
}

// shutdown stops the kernel; used by tests.
func (s *system) shutdown() error {
	return s.k.Shutdown()
}
