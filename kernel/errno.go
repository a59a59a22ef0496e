package kernel

// Errno is the negative result of a kernel call.
type Errno int8

const (
	// ErrInvalid reports a null entry or stack, a non-positive size, or an
	// out-of-range or self-referential join target.
	ErrInvalid Errno = iota + 1
	// ErrNoSlot reports a full thread, process or mutex table.
	ErrNoSlot
	// ErrNoMem reports kernel stack or user memory exhaustion.
	ErrNoMem
	// ErrNotFound reports an unknown mid, pid or join target.
	ErrNotFound
	// ErrBadState reports a reportable protocol violation, e.g. unlocking a
	// mutex that is not locked.
	ErrBadState
	// ErrNoChild reports a wait with no children or by a killed caller.
	ErrNoChild
	// ErrNoThread reports a call made outside a thread context.
	ErrNoThread
	// ErrBadFD reports an unknown file descriptor.
	ErrBadFD
	// ErrFault reports an access outside the process address space.
	ErrFault
)

func (e Errno) String() string {
	switch e {
	case ErrInvalid:
		return "invalid argument"
	case ErrNoSlot:
		return "no free slot"
	case ErrNoMem:
		return "out of memory"
	case ErrNotFound:
		return "not found"
	case ErrBadState:
		return "bad state"
	case ErrNoChild:
		return "no children"
	case ErrNoThread:
		return "no thread context"
	case ErrBadFD:
		return "bad file descriptor"
	case ErrFault:
		return "bad address"
	default:
		return "unknown"
	}
}

func (e Errno) Error() string { return e.String() }
