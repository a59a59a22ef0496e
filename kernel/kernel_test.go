package kernel

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

const testTimeout = 5 * time.Second

type testLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *testLog) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
}

func (l *testLog) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}

type testFile struct {
	mu     *sync.Mutex
	out    *strings.Builder
	open   *int
	closed bool
}

func newTestFile() *testFile {
	open := 1
	return &testFile{mu: &sync.Mutex{}, out: &strings.Builder{}, open: &open}
}

func (f *testFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.Write(p)
}

func (f *testFile) Dup() File {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.open++
	return &testFile{mu: f.mu, out: f.out, open: f.open}
}

func (f *testFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrBadFD
	}
	f.closed = true
	*f.open--
	return nil
}

func (f *testFile) refs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.open
}

func (f *testFile) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.String()
}

type testInode struct {
	mu   sync.Mutex
	refs int
}

func (i *testInode) Dup() Inode {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.refs++
	return i
}

func (i *testInode) Put() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.refs--
}

type testKernel struct {
	*Kernel
	log    *testLog
	cons   *testFile
	root   *testInode
	panics chan PanicInfo
}

// boot starts a kernel with the given processor count running init as the
// first process. The kernel is shut down when the test ends.
func boot(t *testing.T, cpus int, init Entry) *testKernel {
	t.Helper()
	tk := &testKernel{
		log:    &testLog{},
		cons:   newTestFile(),
		root:   &testInode{},
		panics: make(chan PanicInfo, 1),
	}
	tk.Kernel = New(Config{
		CPUs:    cpus,
		Logger:  tk.log,
		Console: tk.cons,
		Root:    tk.root,
		PanicHandler: func(info PanicInfo) {
			tk.panics <- info
		},
	})
	if _, err := tk.Boot(init, []string{"test"}); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	tk.Start(context.Background())
	t.Cleanup(func() { _ = tk.Shutdown() })
	return tk
}

// idle keeps init alive, reaping children, so that it never exits.
func idle(c *Context) {
	for {
		if _, err := c.Wait(); err != nil {
			c.Yield()
		}
	}
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(testTimeout):
		t.Fatalf("timed out")
		panic("unreachable")
	}
}

func (tk *testKernel) wantNoPanic(t *testing.T) {
	t.Helper()
	if info := tk.Panicked(); info != nil {
		t.Fatalf("kernel panic: %v", info.Value)
	}
}

func TestBootAndShutdown(t *testing.T) {
	ran := make(chan TrapFrame, 1)
	tk := boot(t, 2, func(c *Context) {
		ran <- c.TrapFrame()
		idle(c)
	})

	tf := recv(t, ran)
	if tf.ESP != PGSize || tf.EBP != PGSize {
		t.Fatalf("init ESP=%#x EBP=%#x, want %#x", tf.ESP, tf.EBP, PGSize)
	}
	if len(tf.Args) != 1 || tf.Args[0] != "test" {
		t.Fatalf("init args = %q", tf.Args)
	}
	if got := tk.cons.refs(); got != 4 {
		t.Fatalf("console refs = %d, want 4", got)
	}
	if _, err := tk.Boot(idle, nil); err != ErrBadState {
		t.Fatalf("second Boot() error = %v, want %v", err, ErrBadState)
	}

	if err := tk.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := tk.Shutdown(); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}
	if err := tk.Kill(1); err != ErrHalted {
		t.Fatalf("Kill() after Shutdown error = %v, want %v", err, ErrHalted)
	}
	tk.wantNoPanic(t)
}

func TestBootNilInit(t *testing.T) {
	k := New(Config{})
	if _, err := k.Boot(nil, nil); err != ErrInvalid {
		t.Fatalf("Boot(nil) error = %v, want %v", err, ErrInvalid)
	}
}

func TestConfigDefaults(t *testing.T) {
	k := New(Config{CPUs: 100})
	if k.CPUs() != NCPU {
		t.Fatalf("CPUs() = %d, want %d", k.CPUs(), NCPU)
	}
	if got := k.mem.Available(); got != NProc*NThread {
		t.Fatalf("pages = %d, want %d", got, NProc*NThread)
	}
}

func TestContextOutsideThread(t *testing.T) {
	var c *Context
	tid, err := c.ThreadID()
	if tid != -1 || err != ErrNoThread {
		t.Fatalf("ThreadID() = %d, %v; want -1, %v", tid, err, ErrNoThread)
	}
	if _, err := c.MutexAlloc(); err != ErrNoThread {
		t.Fatalf("MutexAlloc() error = %v, want %v", err, ErrNoThread)
	}
}

func TestErrnoString(t *testing.T) {
	if ErrBadState.Error() != "bad state" {
		t.Fatalf("ErrBadState = %q", ErrBadState.Error())
	}
	if Errno(100).String() != "unknown" {
		t.Fatalf("Errno(100) = %q", Errno(100).String())
	}
}

func timeout() <-chan time.Time { return time.After(testTimeout) }
