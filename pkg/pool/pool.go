// Package pool provides a fixed set of worker goroutines for CPU bound work,
// such as verifying one proof per participant.
package pool

import (
	"runtime"
)

// command is used to trigger our latent workers to do something.
type command struct {
	// This is the index we evaluate our function at
	i int
	f func(int)
	// done receives one value per finished command of the same call.
	done chan<- struct{}
}

// worker starts up a new worker, listening to commands, and producing results
func worker(commands <-chan command) {
	for c := range commands {
		c.f(c.i)
		c.done <- struct{}{}
	}
}

// Pool represents a pool of workers, used for parallelizing functions.
//
// Functions needing a *Pool will work with a nil receiver, doing the equivalent
// work on the current goroutine instead.
//
// A Pool may be shared by concurrent callers.
type Pool struct {
	// The common channel used to send commands to the workers.
	//
	// This effectively makes a work stealing pool.
	commands chan command
	// This holds the number of workers we've created
	workerCount int
}

// NewPool creates a new pool, with a certain number of workers.
//
// If count <= 0, this will use the number of available CPUs instead.
func NewPool(count int) *Pool {
	var p Pool

	if count <= 0 {
		count = runtime.NumCPU()
	}

	p.commands = make(chan command)
	p.workerCount = count

	for i := 0; i < count; i++ {
		go worker(p.commands)
	}

	return &p
}

// TearDown cleanly tears down a pool, stopping all workers.
//
// The pool must not be used afterwards.
func (p *Pool) TearDown() {
	if p == nil {
		return
	}
	close(p.commands)
}

// Parallelize calls a function count times, passing in indices from 0..count-1.
//
// The result will be a slice containing [f(0), f(1), ..., f(count - 1)].
func Parallelize[T any](p *Pool, count int, f func(int) T) []T {
	results := make([]T, count)
	if p == nil {
		for i := range results {
			results[i] = f(i)
		}
		return results
	}

	// buffered so that workers never wait on us
	done := make(chan struct{}, count)
	run := func(i int) { results[i] = f(i) }
	for i := 0; i < count; i++ {
		p.commands <- command{i: i, f: run, done: done}
	}
	for i := 0; i < count; i++ {
		<-done
	}
	return results
}
