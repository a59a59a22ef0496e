package kernel

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// PanicInfo describes a fatal kernel error.
type PanicInfo struct {
	CPU   int
	PID   int
	TID   int
	Value any
	Stack []byte
}

// Panicked returns the first fatal kernel error, or nil while the kernel is
// healthy.
func (k *Kernel) Panicked() *PanicInfo {
	return k.panicInfo.Load()
}

// Halted is closed once the kernel has panicked or shut down.
func (k *Kernel) Halted() <-chan struct{} {
	return k.halt
}

// panic halts the kernel. Only the first call records its info and runs the
// panic handler; every caller's goroutine stops.
func (k *Kernel) panic(c *cpu, v any) {
	info := PanicInfo{CPU: -1, Value: v}
	if c != nil {
		info.CPU = c.id
		if c.proc != nil {
			info.PID = c.proc.pid
		}
		if c.thread != nil {
			info.TID = c.thread.tid
		}
	}
	k.panicOnce.Do(func() {
		info.Stack = debug.Stack()
		k.panicInfo.Store(&info)
		k.log.WriteLineString(fmt.Sprintf("panic: cpu%d: %v", info.CPU, v))
		if k.cfg.PanicHandler != nil {
			k.cfg.PanicHandler(info)
		}
		k.stop()
	})
	runtime.Goexit()
}
