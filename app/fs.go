package app

import (
	"sync/atomic"

	"kthreads/kernel"
)

// rootInode is the single directory of the system. It only counts
// references.
type rootInode struct {
	refs atomic.Int32
}

func (r *rootInode) Dup() kernel.Inode {
	r.refs.Add(1)
	return r
}

func (r *rootInode) Put() {
	if r.refs.Add(-1) < 0 {
		panic("iput: negative refs")
	}
}
