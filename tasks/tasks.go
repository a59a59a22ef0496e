// Package tasks holds helpers shared by the user programs.
package tasks

import (
	"fmt"

	"kthreads/kernel"
)

// Stdout is the descriptor programs print to.
const Stdout = 1

// StackSize is the user stack size programs give their threads.
const StackSize = 256

// Printf formats a line and writes it to standard output.
func Printf(c *kernel.Context, format string, args ...any) {
	_, _ = c.Write(Stdout, []byte(fmt.Sprintf(format, args...)+"\n"))
}

// Stacks grows the address space by n thread stacks plus words extra
// 32-bit words and returns the base of the new region. The words come
// first, then the stacks.
func Stacks(c *kernel.Context, n, words int) (uintptr, error) {
	return c.Sbrk(words*4 + n*StackSize)
}

// StackAt returns the bottom of stack i in a region made by Stacks.
func StackAt(base uintptr, words, i int) uintptr {
	return base + uintptr(words*4+i*StackSize)
}
