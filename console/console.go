// Package console renders kernel output on the HAL framebuffer with a
// tinyterm terminal and mirrors every line to the HAL logger.
package console

import (
	"bytes"
	"sync"
	"sync/atomic"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"

	"kthreads/hal"
	"kthreads/kernel"
)

const (
	fontHeight = 10
	fontOffset = 6
)

// Console is the system console. It is both the kernel logger and the file
// behind every process's standard descriptors.
type Console struct {
	mu    sync.Mutex
	log   hal.Logger
	fb    hal.Framebuffer
	term  *tinyterm.Terminal
	line  bytes.Buffer // user output not yet mirrored to log
	dirty bool

	open atomic.Int32
}

// New returns a console drawing on disp. A nil disp or framebuffer leaves
// only the logger mirror.
func New(log hal.Logger, disp hal.Display) *Console {
	c := &Console{log: log}
	if disp != nil {
		c.fb = disp.Framebuffer()
	}
	c.Reset()
	return c
}

// Reset clears the screen and starts a fresh terminal.
func (c *Console) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fb == nil {
		return
	}
	c.fb.ClearRGB(0, 0, 0)
	c.term = tinyterm.NewTerminal(&fbDisplay{fb: c.fb})
	c.term.Configure(&tinyterm.Config{
		Font:              &proggy.TinySZ8pt7b,
		FontHeight:        fontHeight,
		FontOffset:        fontOffset,
		UseSoftwareScroll: true,
	})
	c.dirty = true
}

// WriteLineString writes one kernel log line.
func (c *Console) WriteLineString(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.log != nil {
		c.log.WriteLineString(s)
	}
	if c.term != nil {
		_, _ = c.term.Write([]byte(s))
		_, _ = c.term.Write([]byte("\r\n"))
		c.dirty = true
	}
}

// Write writes user output. Complete lines are mirrored to the logger.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range p {
		if c.term != nil {
			if b == '\n' {
				_ = c.term.WriteByte('\r')
			}
			_ = c.term.WriteByte(b)
		}
		if b == '\n' {
			if c.log != nil {
				c.log.WriteLineBytes(c.line.Bytes())
			}
			c.line.Reset()
			continue
		}
		c.line.WriteByte(b)
	}
	c.dirty = c.dirty || c.term != nil
	return len(p), nil
}

// Flush presents the framebuffer if anything was drawn since the last call.
func (c *Console) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty && c.term != nil {
		c.term.Display()
	}
	c.dirty = false
}

// Freeze stops drawing and hands the framebuffer to the caller. Lines
// written afterwards only reach the logger.
func (c *Console) Freeze() hal.Framebuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.term = nil
	c.dirty = false
	return c.fb
}

// File opens a new handle on the console.
func (c *Console) File() kernel.File {
	c.open.Add(1)
	return &file{c: c}
}

// Open returns the number of open console handles.
func (c *Console) Open() int {
	return int(c.open.Load())
}

type file struct {
	c      *Console
	closed atomic.Bool
}

func (f *file) Write(p []byte) (int, error) {
	if f.closed.Load() {
		return 0, kernel.ErrBadFD
	}
	return f.c.Write(p)
}

func (f *file) Dup() kernel.File { return f.c.File() }

func (f *file) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return kernel.ErrBadFD
	}
	f.c.open.Add(-1)
	return nil
}
