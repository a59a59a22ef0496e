package kernel

import (
	"strings"
	"testing"
	"time"
)

func TestThreadMoves(t *testing.T) {
	legal := map[ThreadState][]ThreadState{
		ThreadUnused:   {ThreadEmbryo},
		ThreadEmbryo:   {ThreadRunnable, ThreadUnused},
		ThreadSleeping: {ThreadRunnable, ThreadZombie},
		ThreadRunnable: {ThreadRunning, ThreadZombie},
		ThreadRunning:  {ThreadRunnable, ThreadSleeping, ThreadZombie, ThreadInvalid},
		ThreadZombie:   {ThreadUnused, ThreadZombie, ThreadInvalid},
		ThreadInvalid:  {ThreadUnused, ThreadZombie},
	}
	for from := ThreadUnused; from <= ThreadInvalid; from++ {
		for to := ThreadUnused; to <= ThreadInvalid; to++ {
			want := false
			for _, s := range legal[from] {
				if s == to {
					want = true
				}
			}
			if got := canMove(threadMoves[:], from, to); got != want {
				t.Fatalf("canMove(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestProcAndMutexMoves(t *testing.T) {
	cases := []struct {
		ok   bool
		name string
	}{
		{canMove(procMoves[:], ProcUnused, ProcUsed), "proc unused -> used"},
		{canMove(procMoves[:], ProcUsed, ProcZombie), "proc used -> zombie"},
		{canMove(procMoves[:], ProcZombie, ProcUnused), "proc zombie -> unused"},
		{!canMove(procMoves[:], ProcZombie, ProcUsed), "proc zombie -> used"},
		{!canMove(procMoves[:], ProcUnused, ProcZombie), "proc unused -> zombie"},
		{canMove(mutexMoves[:], MutexUnused, MutexUnlocked), "mutex unused -> unlocked"},
		{canMove(mutexMoves[:], MutexUnlocked, MutexLocked), "mutex unlocked -> locked"},
		{!canMove(mutexMoves[:], MutexLocked, MutexUnused), "mutex locked -> unused"},
		{!canMove(mutexMoves[:], MutexUnused, MutexLocked), "mutex unused -> locked"},
	}
	for _, tc := range cases {
		if !tc.ok {
			t.Fatalf("%s: wrong verdict", tc.name)
		}
	}
}

func TestIllegalMovePanics(t *testing.T) {
	k := New(Config{CPUs: 1})
	done := make(chan struct{})
	go func() {
		defer close(done)
		k.setThreadState(k.cpus[0], &Thread{tid: 3}, ThreadRunning)
	}()
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatalf("setThreadState did not stop the goroutine")
	}

	info := k.Panicked()
	if info == nil {
		t.Fatalf("Panicked() = nil after illegal move")
	}
	msg, _ := info.Value.(string)
	if !strings.Contains(msg, "thread 3: unused -> run") {
		t.Fatalf("panic = %q", msg)
	}
	if len(info.Stack) == 0 {
		t.Fatalf("panic info has no stack")
	}
}

func TestStateStrings(t *testing.T) {
	if ThreadRunnable.String() != "runble" || ProcZombie.String() != "zombie" || MutexLocked.String() != "locked" {
		t.Fatalf("unexpected state names")
	}
	if ThreadState(99).String() != "???" {
		t.Fatalf("unknown state = %q", ThreadState(99).String())
	}
}
