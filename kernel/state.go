package kernel

import "fmt"

// ThreadState is the lifecycle state of a thread slot.
type ThreadState uint8

const (
	ThreadUnused ThreadState = iota
	ThreadEmbryo
	ThreadSleeping
	ThreadRunnable
	ThreadRunning
	ThreadZombie
	// ThreadInvalid marks a thread that terminated without a joiner; it is
	// reclaimed with its process.
	ThreadInvalid
)

func (s ThreadState) String() string {
	switch s {
	case ThreadUnused:
		return "unused"
	case ThreadEmbryo:
		return "embryo"
	case ThreadSleeping:
		return "sleep"
	case ThreadRunnable:
		return "runble"
	case ThreadRunning:
		return "run"
	case ThreadZombie:
		return "zombie"
	case ThreadInvalid:
		return "invalid"
	default:
		return "???"
	}
}

// terminated reports whether a joiner may stop waiting on a thread in s.
func (s ThreadState) terminated() bool {
	return s == ThreadUnused || s == ThreadZombie || s == ThreadInvalid
}

// ProcState is the lifecycle state of a process slot.
type ProcState uint8

const (
	ProcUnused ProcState = iota
	ProcUsed
	ProcZombie
)

func (s ProcState) String() string {
	switch s {
	case ProcUnused:
		return "unused"
	case ProcUsed:
		return "used"
	case ProcZombie:
		return "zombie"
	default:
		return "???"
	}
}

// MutexState is the lifecycle state of a mutex slot.
type MutexState uint8

const (
	MutexUnused MutexState = iota
	MutexUnlocked
	MutexLocked
)

func (s MutexState) String() string {
	switch s {
	case MutexUnused:
		return "unused"
	case MutexUnlocked:
		return "unlocked"
	case MutexLocked:
		return "locked"
	default:
		return "???"
	}
}

func bit[S ~uint8](states ...S) uint8 {
	var m uint8
	for _, s := range states {
		m |= 1 << s
	}
	return m
}

var threadMoves = [...]uint8{
	ThreadUnused:   bit(ThreadEmbryo),
	ThreadEmbryo:   bit(ThreadRunnable, ThreadUnused),
	ThreadSleeping: bit(ThreadRunnable, ThreadZombie),
	ThreadRunnable: bit(ThreadRunning, ThreadZombie),
	ThreadRunning:  bit(ThreadRunnable, ThreadSleeping, ThreadZombie, ThreadInvalid),
	ThreadZombie:   bit(ThreadUnused, ThreadZombie, ThreadInvalid),
	ThreadInvalid:  bit(ThreadUnused, ThreadZombie),
}

var procMoves = [...]uint8{
	ProcUnused: bit(ProcUsed),
	ProcUsed:   bit(ProcUnused, ProcZombie),
	ProcZombie: bit(ProcUnused),
}

var mutexMoves = [...]uint8{
	MutexUnused:   bit(MutexUnlocked),
	MutexUnlocked: bit(MutexLocked, MutexUnused),
	MutexLocked:   bit(MutexUnlocked),
}

func canMove[S ~uint8](moves []uint8, from, to S) bool {
	return int(from) < len(moves) && moves[from]&(1<<to) != 0
}

// setThreadState moves t to next; an illegal move is a kernel panic.
// Callers hold the process-table lock.
func (k *Kernel) setThreadState(c *cpu, t *Thread, next ThreadState) {
	if !canMove(threadMoves[:], t.state, next) {
		k.panic(c, fmt.Sprintf("thread %d: %s -> %s", t.tid, t.state, next))
	}
	t.state = next
}

// setProcState moves p to next; an illegal move is a kernel panic.
// Callers hold the process-table lock.
func (k *Kernel) setProcState(c *cpu, p *Proc, next ProcState) {
	if !canMove(procMoves[:], p.state, next) {
		k.panic(c, fmt.Sprintf("proc %d: %s -> %s", p.pid, p.state, next))
	}
	p.state = next
}

// setMutexState moves m to next; an illegal move is a kernel panic.
// Callers hold the mutex-table lock.
func (k *Kernel) setMutexState(c *cpu, m *Mutex, next MutexState) {
	if !canMove(mutexMoves[:], m.state, next) {
		k.panic(c, fmt.Sprintf("mutex %d: %s -> %s", m.mid, m.state, next))
	}
	m.state = next
}
