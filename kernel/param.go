package kernel

// Fixed table capacities. None of the tables grow at runtime.
const (
	NProc      = 64 // process table slots
	NThread    = 16 // threads per process
	MaxMutexes = 64 // system-wide mutex pool
	NOFile     = 16 // open files per process
	NCPU       = 8  // maximum processors

	// KStackSize is the size of one kernel stack page.
	KStackSize = 4096

	// PGSize is the initial user address-space size of the first process.
	PGSize = 4096
)

// NoOwner is the owner tid of a mutex that is not locked.
const NoOwner = -1
