package kernel

import "sync"

// File is an open file handle owned by the file layer.
type File interface {
	Write(p []byte) (int, error)
	Dup() File
	Close() error
}

// Inode is a directory handle owned by the file layer.
type Inode interface {
	Dup() Inode
	Put()
}

// fileTable holds a process's open files. Its lock is a leaf lock and is
// never held across a scheduling transfer.
type fileTable struct {
	mu   sync.Mutex
	open [NOFile]File
}

func (ft *fileTable) get(fd int) (File, bool) {
	if fd < 0 || fd >= NOFile {
		return nil, false
	}
	ft.mu.Lock()
	defer ft.mu.Unlock()
	f := ft.open[fd]
	return f, f != nil
}

// install puts f in the lowest free descriptor.
func (ft *fileTable) install(f File) (int, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	for fd := range ft.open {
		if ft.open[fd] == nil {
			ft.open[fd] = f
			return fd, true
		}
	}
	return -1, false
}

func (ft *fileTable) remove(fd int) (File, bool) {
	if fd < 0 || fd >= NOFile {
		return nil, false
	}
	ft.mu.Lock()
	defer ft.mu.Unlock()
	f := ft.open[fd]
	ft.open[fd] = nil
	return f, f != nil
}

// dupInto duplicates every open file of ft into dst.
func (ft *fileTable) dupInto(dst *fileTable) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	dst.mu.Lock()
	defer dst.mu.Unlock()
	for fd, f := range ft.open {
		if f != nil {
			dst.open[fd] = f.Dup()
		}
	}
}

// closeAll closes and clears every open file.
func (ft *fileTable) closeAll() {
	ft.mu.Lock()
	var open [NOFile]File
	open, ft.open = ft.open, open
	ft.mu.Unlock()
	for _, f := range open {
		if f != nil {
			_ = f.Close()
		}
	}
}
