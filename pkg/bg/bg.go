// Package bg decides whether fire-and-forget work runs on its own goroutine.
// Tests use Sync to make scheduled side effects deterministic.
package bg

type Runner interface {
	Do(fn func())
}

// Async runs each function in a new goroutine.
type Async struct{}

func (Async) Do(fn func()) {
	go fn()
}

// Sync runs the function on the caller's goroutine.
type Sync struct{}

func (Sync) Do(fn func()) {
	fn()
}
