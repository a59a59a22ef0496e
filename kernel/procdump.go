package kernel

import "fmt"

// Procdump lists every process and its threads on the kernel log and
// returns the lines. Runs when the user types ^P on the console.
func (k *Kernel) Procdump() []string {
	var lines []string
	ierr := k.intr(func(c *cpu) {
		lk := &k.ptable.lock
		k.acquire(c, lk)
		defer k.release(c, lk)

		for i := range k.ptable.proc {
			p := &k.ptable.proc[i]
			if p.state == ProcUnused {
				continue
			}
			line := fmt.Sprintf("%d %s %s", p.pid, p.state, p.name)
			if p.killed {
				line += " killed"
			}
			lines = append(lines, line)
			for j := range p.threads {
				t := &p.threads[j]
				if t.state == ThreadUnused {
					continue
				}
				line := fmt.Sprintf("  tid %d %s", t.tid, t.state)
				if t.state == ThreadSleeping {
					line += " on " + k.chanName(t.waitChan)
				}
				lines = append(lines, line)
			}
		}
	})
	if ierr != nil {
		return nil
	}
	for _, line := range lines {
		k.log.WriteLineString(line)
	}
	return lines
}

// chanName describes a wait channel. Must hold ptable.lock.
func (k *Kernel) chanName(key any) string {
	switch v := key.(type) {
	case *Proc:
		return fmt.Sprintf("proc %d", v.pid)
	case *Thread:
		return fmt.Sprintf("thread %d", v.tid)
	case *Mutex:
		return fmt.Sprintf("mutex %d", v.mid)
	case nil:
		return "-"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Pids returns the pids of every live process in table order.
func (k *Kernel) Pids() []int {
	var pids []int
	if err := k.intr(func(c *cpu) {
		lk := &k.ptable.lock
		k.acquire(c, lk)
		defer k.release(c, lk)
		for i := range k.ptable.proc {
			if p := &k.ptable.proc[i]; p.state == ProcUsed {
				pids = append(pids, p.pid)
			}
		}
	}); err != nil {
		return nil
	}
	return pids
}
