// Package abort implements a resettable cooperative cancellation handle.
//
// A Controller hands out generation-pinned Tokens. Reset starts a new
// generation; tokens from earlier generations report aborted from then on,
// so a stale abort can never silently cancel a freshly started run.
package abort

import "sync"

type Controller struct {
	mu         sync.Mutex
	generation uint64
	abortedGen uint64
}

func NewController() *Controller {
	return &Controller{generation: 1}
}

// Reset begins a new generation and returns its token. Callers must reset
// before starting a run: a token left over from an aborted run stays
// aborted forever.
func (c *Controller) Reset() Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return Token{c: c, gen: c.generation}
}

// Token returns a handle pinned to the current generation without starting
// a new one.
func (c *Controller) Token() Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Token{c: c, gen: c.generation}
}

// Abort cancels the current generation. Runs observe it at their next
// checkpoint; in-flight calls complete first.
func (c *Controller) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortedGen = c.generation
}

// Token is a read-mostly view of a Controller pinned to one generation.
// The zero Token is never aborted and is handy in tests.
type Token struct {
	c   *Controller
	gen uint64
}

// Aborted reports whether this token's run should stop: either its
// generation was aborted, or a Reset superseded it.
func (t Token) Aborted() bool {
	if t.c == nil {
		return false
	}
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return t.gen != t.c.generation || t.c.abortedGen >= t.gen
}

// Cancel aborts this token's own generation, if it is still the current
// one. Pipelines use it to shut down a run from the inside (e.g. after too
// many cumulative errors) without racing a Reset issued for the next run.
func (t Token) Cancel() {
	if t.c == nil {
		return
	}
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.gen == t.c.generation && t.c.abortedGen < t.gen {
		t.c.abortedGen = t.gen
	}
}
