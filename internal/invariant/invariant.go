// Package invariant asserts conditions that only a programming error can
// break. A failed check is handed to the installed ViolationExecutor, which
// panics unless a test swaps it out.
package invariant

import (
	"fmt"
	"sync"
)

type ViolationError struct {
	Statement string
}

func (err ViolationError) Error() string {
	return "invariant violation: " + err.Statement
}

type ViolationExecutor interface {
	Exec(ViolationError)
}

type PanicExecutor struct{}

func (PanicExecutor) Exec(err ViolationError) {
	panic(err)
}

var std = struct {
	mu       sync.Mutex
	executor ViolationExecutor
}{
	executor: PanicExecutor{},
}

func Check(cond bool, statement string) {
	if !cond {
		Violate(statement)
	}
}

func Checkf(cond bool, format string, args ...any) {
	if !cond {
		Violate(fmt.Sprintf(format, args...))
	}
}

func Violate(statement string) {
	std.mu.Lock()
	executor := std.executor
	std.mu.Unlock()

	executor.Exec(ViolationError{Statement: statement})
}

// SetViolationExecutor installs executor and returns the previous one.
func SetViolationExecutor(executor ViolationExecutor) ViolationExecutor {
	std.mu.Lock()
	defer std.mu.Unlock()

	prev := std.executor
	std.executor = executor
	return prev
}
