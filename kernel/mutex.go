package kernel

import "sync"

// Mutex is a slot of the system-wide blocking mutex pool. Mutex ids are not
// scoped to a process: any thread that knows a mid may use it.
type Mutex struct {
	mid   int
	state MutexState
	owner int // tid of the holder, NoOwner unless locked
}

type mtable struct {
	lock    spinlock
	once    sync.Once
	nextmid int
	mutexes [MaxMutexes]Mutex
}

func (mt *mtable) init() {
	mt.nextmid = 1
	for i := range mt.mutexes {
		mt.mutexes[i] = Mutex{mid: -1, state: MutexUnused, owner: NoOwner}
	}
}

// find returns the in-use slot with the given mid. Must hold mtable.lock.
func (mt *mtable) find(mid int) *Mutex {
	if mid <= 0 {
		return nil
	}
	for i := range mt.mutexes {
		if m := &mt.mutexes[i]; m.mid == mid && m.state != MutexUnused {
			return m
		}
	}
	return nil
}

// mutexes returns the pool, setting it up on first use.
func (k *Kernel) mutexes() *mtable {
	mt := &k.mtable
	mt.once.Do(mt.init)
	return mt
}

func (k *Kernel) mutexAlloc(t *Thread) (int, error) {
	mt := k.mutexes()

	c := t.cpu
	k.acquire(c, &mt.lock)
	defer k.release(c, &mt.lock)

	for i := range mt.mutexes {
		m := &mt.mutexes[i]
		if m.state != MutexUnused {
			continue
		}
		m.mid = mt.nextmid
		mt.nextmid++
		m.owner = NoOwner
		k.setMutexState(c, m, MutexUnlocked)
		return m.mid, nil
	}
	return -1, ErrNoSlot
}

func (k *Kernel) mutexDealloc(t *Thread, mid int) error {
	mt := k.mutexes()
	c := t.cpu
	k.acquire(c, &mt.lock)
	defer k.release(c, &mt.lock)

	m := mt.find(mid)
	if m == nil {
		return ErrNotFound
	}
	if m.state == MutexLocked {
		return ErrBadState
	}
	k.setMutexState(c, m, MutexUnused)
	m.mid = 0
	m.owner = NoOwner
	return nil
}

func (k *Kernel) mutexLock(t *Thread, mid int) error {
	mt := k.mutexes()
	k.acquire(t.cpu, &mt.lock)

	m := mt.find(mid)
	if m == nil {
		k.release(t.cpu, &mt.lock)
		return ErrNotFound
	}

	// Every unlock wakes all contenders; whoever gets here first wins.
	for m.mid == mid && m.state == MutexLocked {
		k.sleep(t, m, &mt.lock)
		if k.killed(t) {
			k.release(t.cpu, &mt.lock)
			return ErrBadState
		}
	}
	if m.mid != mid || m.state == MutexUnused {
		// Deallocated while we slept.
		k.release(t.cpu, &mt.lock)
		return ErrNotFound
	}

	k.setMutexState(t.cpu, m, MutexLocked)
	m.owner = t.tid
	k.release(t.cpu, &mt.lock)
	return nil
}

func (k *Kernel) mutexUnlock(t *Thread, mid int) error {
	mt := k.mutexes()
	c := t.cpu
	k.acquire(c, &mt.lock)
	defer k.release(c, &mt.lock)

	m := mt.find(mid)
	if m == nil {
		return ErrNotFound
	}
	if m.state != MutexLocked {
		return ErrBadState
	}
	k.setMutexState(c, m, MutexUnlocked)
	m.owner = NoOwner
	k.wakeup(c, m)
	return nil
}

// MutexOwner returns the holder of mid, or NoOwner if it is not locked.
func (k *Kernel) MutexOwner(mid int) (int, MutexState, error) {
	var (
		owner = NoOwner
		state MutexState
		err   error
	)
	ierr := k.intr(func(c *cpu) {
		mt := k.mutexes()
		k.acquire(c, &mt.lock)
		defer k.release(c, &mt.lock)
		m := mt.find(mid)
		if m == nil {
			err = ErrNotFound
			return
		}
		owner, state = m.owner, m.state
	})
	if ierr != nil {
		return NoOwner, MutexUnused, ierr
	}
	return owner, state, err
}
