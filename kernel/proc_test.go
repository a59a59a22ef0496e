package kernel

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestForkCopiesFrameAndFiles(t *testing.T) {
	type result struct {
		tf       TrapFrame
		pid      int
		childPID int
		word     uint32
		isolated bool
	}
	res := make(chan result, 1)
	done := make(chan int, 1)
	tk := boot(t, 2, func(c *Context) {
		base, _ := c.Sbrk(8)
		_ = c.Store32(base, 7)
		parentESP := c.TrapFrame().ESP

		pid, err := c.Fork(func(c *Context) {
			var r result
			r.tf = c.TrapFrame()
			r.childPID = c.Getpid()
			r.word, _ = c.Load32(base)
			_ = c.Store32(base, 9)
			_, _ = c.Write(1, []byte("child\n"))
			res <- r
		})
		if err != nil {
			t.Errorf("Fork() error = %v", err)
		}
		if _, err := c.Wait(); err != nil {
			t.Errorf("Wait() error = %v", err)
		}
		v, _ := c.Load32(base)
		if v != 7 {
			t.Errorf("parent word = %d after child store, want 7", v)
		}
		if c.TrapFrame().ESP != parentESP {
			t.Errorf("parent ESP changed")
		}
		done <- pid
		idle(c)
	})

	r := recv(t, res)
	pid := recv(t, done)
	if r.tf.EAX != 0 {
		t.Fatalf("child EAX = %d, want 0", r.tf.EAX)
	}
	if r.tf.ESP != PGSize {
		t.Fatalf("child ESP = %#x, want %#x", r.tf.ESP, PGSize)
	}
	if r.childPID != pid {
		t.Fatalf("child Getpid() = %d, Fork() returned %d", r.childPID, pid)
	}
	if r.word != 7 {
		t.Fatalf("child word = %d, want 7", r.word)
	}
	if got := tk.cons.String(); got != "child\n" {
		t.Fatalf("console = %q", got)
	}
	// Only init's three descriptors and the kernel's own handle remain.
	if got := tk.cons.refs(); got != 4 {
		t.Fatalf("console refs = %d, want 4", got)
	}
	tk.root.mu.Lock()
	refs := tk.root.refs
	tk.root.mu.Unlock()
	if refs != 1 {
		t.Fatalf("root refs = %d, want 1", refs)
	}
}

func TestForkNilChild(t *testing.T) {
	errs := make(chan error, 1)
	boot(t, 1, func(c *Context) {
		_, err := c.Fork(nil)
		errs <- err
		idle(c)
	})
	if err := recv(t, errs); err != ErrInvalid {
		t.Fatalf("Fork(nil) error = %v, want %v", err, ErrInvalid)
	}
}

func TestWaitWithoutChildren(t *testing.T) {
	errs := make(chan error, 1)
	boot(t, 1, func(c *Context) {
		_, err := c.Wait()
		errs <- err
		idle(c)
	})
	if err := recv(t, errs); err != ErrNoChild {
		t.Fatalf("Wait() error = %v, want %v", err, ErrNoChild)
	}
}

func TestKillSpinningProcess(t *testing.T) {
	res := make(chan bool, 1)
	boot(t, 2, func(c *Context) {
		pid, _ := c.Fork(func(c *Context) {
			for {
				c.Yield()
			}
		})
		if err := c.Kill(pid); err != nil {
			t.Errorf("Kill() error = %v", err)
		}
		got, err := c.Wait()
		res <- err == nil && got == pid
		idle(c)
	})
	if !recv(t, res) {
		t.Fatalf("killed process was not reaped")
	}
}

func TestKillWakesSleepers(t *testing.T) {
	pids := make(chan int, 1)
	res := make(chan bool, 1)
	tk := boot(t, 2, func(c *Context) {
		pid, _ := c.Fork(func(c *Context) {
			mid, _ := c.MutexAlloc()
			_ = c.MutexLock(mid)
			stack := userStacks(t, c, 1)
			tid, _ := c.ThreadCreate(func(c *Context) {
				_ = c.MutexLock(mid)
			}, stack, stackSize)
			// Both threads now sleep: the worker on the mutex, this one in join.
			_ = c.ThreadJoin(tid)
			t.Errorf("killed thread returned from join")
		})
		pids <- pid
		got, err := c.Wait()
		res <- err == nil && got == pid
		idle(c)
	})

	pid := recv(t, pids)
	deadline := time.After(testTimeout)
	for !sleeping(tk, pid, 2) {
		select {
		case <-deadline:
			t.Fatalf("child threads never slept")
		case <-time.After(time.Millisecond):
		}
	}
	if err := tk.Kill(pid); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	if !recv(t, res) {
		t.Fatalf("killed process was not reaped")
	}
	if err := tk.Kill(pid); err != ErrNotFound {
		t.Fatalf("Kill() of reaped pid error = %v, want %v", err, ErrNotFound)
	}
}

// sleeping reports whether process pid has n sleeping threads.
func sleeping(tk *testKernel, pid, n int) bool {
	lines := tk.Procdump()
	in := false
	count := 0
	for _, line := range lines {
		if !strings.HasPrefix(line, " ") {
			in = strings.HasPrefix(line, itoa(pid)+" ")
			continue
		}
		if in && strings.Contains(line, " sleep") {
			count++
		}
	}
	return count == n
}

func itoa(n int) string {
	var b [20]byte
	i := len(b)
	for {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
		if n == 0 {
			return string(b[i:])
		}
	}
}

func TestExitWithRunningThreads(t *testing.T) {
	res := make(chan bool, 1)
	boot(t, 3, func(c *Context) {
		pid, _ := c.Fork(func(c *Context) {
			stack := userStacks(t, c, 2)
			spin := func(c *Context) {
				for {
					_ = c.Getpid()
				}
			}
			_, _ = c.ThreadCreate(spin, stack, stackSize)
			_, _ = c.ThreadCreate(spin, stack+stackSize, stackSize)
			for i := 0; i < 4; i++ {
				c.Yield()
			}
			c.Exit()
		})
		got, err := c.Wait()
		res <- err == nil && got == pid
		idle(c)
	})
	if !recv(t, res) {
		t.Fatalf("exited process was not reaped")
	}
}

// procState returns the state column of pid in the process listing.
func procState(tk *testKernel, pid int) string {
	for _, line := range tk.Procdump() {
		f := strings.Fields(line)
		if len(f) >= 2 && f[0] == itoa(pid) {
			return f[1]
		}
	}
	return ""
}

// A thread still on a processor when a sibling exits the process must
// leave quietly whatever it does next, and the parent must reap the child.
func TestExitWhileSiblingRunning(t *testing.T) {
	cases := []struct {
		name string
		next func(c *Context, mid int)
	}{
		{"return", func(c *Context, mid int) {}},
		{"trap", func(c *Context, mid int) { _ = c.Getpid() }},
		{"yield", func(c *Context, mid int) {
			for {
				c.Yield()
			}
		}},
		{"thread exit", func(c *Context, mid int) { c.ThreadExit() }},
		{"exit", func(c *Context, mid int) { c.Exit() }},
		{"kill all", func(c *Context, mid int) { c.KillAll() }},
		{"mutex lock", func(c *Context, mid int) { _ = c.MutexLock(mid) }},
		{"join zombie", func(c *Context, mid int) {
			tid, _ := c.ThreadID()
			_ = c.ThreadJoin(tid - 1)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var running, released atomic.Bool
			forked := make(chan int, 1)
			reaped := make(chan int, 1)
			tk := boot(t, 3, func(c *Context) {
				pid, _ := c.Fork(func(c *Context) {
					mid, _ := c.MutexAlloc()
					_ = c.MutexLock(mid)
					stack := userStacks(t, c, 2)
					// A sleeper for the join case; it never wakes.
					_, _ = c.ThreadCreate(func(c *Context) {
						_ = c.MutexLock(mid)
					}, stack, stackSize)
					_, _ = c.ThreadCreate(func(c *Context) {
						running.Store(true)
						for !released.Load() {
						}
						tc.next(c, mid)
					}, stack+stackSize, stackSize)
					for !running.Load() {
						c.Yield()
					}
					c.Exit()
				})
				forked <- pid
				for {
					got, err := c.Wait()
					if err != nil {
						c.Yield()
						continue
					}
					reaped <- got
				}
			})

			pid := recv(t, forked)
			deadline := time.Now().Add(testTimeout)
			for procState(tk, pid) != "zombie" {
				if time.Now().After(deadline) {
					released.Store(true)
					t.Fatalf("process %d never became a zombie", pid)
				}
				time.Sleep(time.Millisecond)
			}
			released.Store(true)

			if got := recv(t, reaped); got != pid {
				t.Fatalf("Wait() = %d, want %d", got, pid)
			}
			tk.wantNoPanic(t)
		})
	}
}

func TestSbrkAndUserMemory(t *testing.T) {
	type result struct {
		old       uintptr
		word      uint32
		fault     error
		tooBig    error
		storeFail error
	}
	res := make(chan result, 1)
	boot(t, 1, func(c *Context) {
		var r result
		r.old, _ = c.Sbrk(8)
		_ = c.Store32(r.old+4, 0xcafe)
		r.word, _ = c.Load32(r.old + 4)
		_, r.fault = c.Load32(r.old + 8)
		r.storeFail = c.Store32(r.old+6, 1)
		_, r.tooBig = c.Sbrk(1 << 30)
		res <- r
		idle(c)
	})

	r := recv(t, res)
	if r.old != PGSize {
		t.Fatalf("Sbrk() old = %#x, want %#x", r.old, PGSize)
	}
	if r.word != 0xcafe {
		t.Fatalf("Load32() = %#x, want 0xcafe", r.word)
	}
	if r.fault != ErrFault || r.storeFail != ErrFault {
		t.Fatalf("out of range access errors = %v, %v; want %v", r.fault, r.storeFail, ErrFault)
	}
	if r.tooBig != ErrNoMem {
		t.Fatalf("Sbrk(huge) error = %v, want %v", r.tooBig, ErrNoMem)
	}
}

func TestFileDescriptors(t *testing.T) {
	type result struct {
		dup      int
		dupErr   error
		closeErr error
		again    error
		writeBad error
		closeBad error
	}
	res := make(chan result, 1)
	tk := boot(t, 1, func(c *Context) {
		var r result
		r.dup, r.dupErr = c.Dup(1)
		_, _ = c.Write(r.dup, []byte("dup"))
		r.closeErr = c.Close(r.dup)
		r.again = c.Close(r.dup)
		_, r.writeBad = c.Write(NOFile, []byte("x"))
		r.closeBad = c.Close(-1)
		res <- r
		idle(c)
	})

	r := recv(t, res)
	if r.dupErr != nil || r.dup != 3 {
		t.Fatalf("Dup(1) = %d, %v; want 3", r.dup, r.dupErr)
	}
	if r.closeErr != nil {
		t.Fatalf("Close() error = %v", r.closeErr)
	}
	if r.again != ErrBadFD || r.writeBad != ErrBadFD || r.closeBad != ErrBadFD {
		t.Fatalf("bad fd errors = %v, %v, %v; want %v", r.again, r.writeBad, r.closeBad, ErrBadFD)
	}
	if got := tk.cons.String(); got != "dup" {
		t.Fatalf("console = %q, want dup", got)
	}
}

func TestTickPreemptsSpinningThread(t *testing.T) {
	resumed := make(chan struct{})
	tk := boot(t, 1, func(c *Context) {
		_, _ = c.Fork(func(c *Context) {
			for {
				_ = c.Getpid()
			}
		})
		c.Yield()
		close(resumed)
		idle(c)
	})

	deadline := time.After(testTimeout)
	for {
		tk.Tick()
		select {
		case <-resumed:
			if tk.Ticks() == 0 {
				t.Fatalf("no ticks recorded")
			}
			return
		case <-deadline:
			t.Fatalf("init never got the processor back")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestInitExitingPanics(t *testing.T) {
	tk := boot(t, 1, func(c *Context) {})

	info := recv(t, tk.panics)
	if info.Value != "init exiting" {
		t.Fatalf("panic = %v, want init exiting", info.Value)
	}
	if info.PID != 1 || info.CPU != 0 {
		t.Fatalf("panic at cpu %d pid %d, want cpu 0 pid 1", info.CPU, info.PID)
	}
	if tk.Panicked() == nil {
		t.Fatalf("Panicked() = nil after panic")
	}
	select {
	case <-tk.Halted():
	case <-time.After(testTimeout):
		t.Fatalf("kernel did not halt")
	}
	if err := tk.Shutdown(); err != ErrHalted {
		t.Fatalf("Shutdown() error = %v, want %v", err, ErrHalted)
	}
	if !tk.log.contains("panic: cpu0: init exiting") {
		t.Fatalf("panic was not logged")
	}
}

func TestUserFaultKillsProcess(t *testing.T) {
	res := make(chan bool, 1)
	tk := boot(t, 2, func(c *Context) {
		pid, _ := c.Fork(func(c *Context) {
			var m map[string]int
			m["boom"]++
		})
		got, err := c.Wait()
		res <- err == nil && got == pid
		idle(c)
	})
	if !recv(t, res) {
		t.Fatalf("faulting process was not reaped")
	}
	if !tk.log.contains("trap:") {
		t.Fatalf("fault was not logged")
	}
	tk.wantNoPanic(t)
}

func TestProcdump(t *testing.T) {
	ready := make(chan struct{})
	tk := boot(t, 2, func(c *Context) {
		_, _ = c.Fork(func(c *Context) {
			_, _ = c.Wait()
			for {
				c.Yield()
			}
		})
		close(ready)
		idle(c)
	})
	<-ready

	lines := tk.Procdump()
	if len(lines) < 2 || !strings.HasPrefix(lines[0], "1 used initcode") {
		t.Fatalf("Procdump() = %q", lines)
	}
	if !strings.HasPrefix(lines[1], "  tid 1 ") {
		t.Fatalf("init thread line = %q", lines[1])
	}
	pids := tk.Pids()
	if len(pids) != 2 || pids[0] != 1 {
		t.Fatalf("Pids() = %v, want init and one child", pids)
	}
}
