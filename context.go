package x509kit

import (
	"errors"
	"sync"
)

// ErrContextUnavailable reports an operation against a context that is
// not a valid owner for new handles: it is nil, closed, or not the
// intended unpack destination.
var ErrContextUnavailable = errors.New("x509kit: destination context unavailable")

// Context is an isolated execution context that owns certificate
// handles. It mirrors the worker model of a host runtime: every handle
// is registered with the context that created it, and closing the
// context releases any handle the caller did not close itself.
//
// Contexts do not share handles. Moving a certificate between contexts
// goes through the Pack/Unpack transfer protocol, which shares the
// decoded value by reference count rather than aliasing the handle.
type Context struct {
	mu      sync.Mutex
	handles map[*Certificate]struct{}
	closed  bool
}

// NewContext creates an empty, active context.
func NewContext() *Context {
	return &Context{handles: make(map[*Certificate]struct{})}
}

// Active reports whether the context can still own handles.
func (ctx *Context) Active() bool {
	if ctx == nil {
		return false
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return !ctx.closed
}

// Close releases every handle still registered with the context and
// marks it unusable. A closed context refuses new handles and transfer
// unpacking. Close is idempotent.
func (ctx *Context) Close() {
	ctx.mu.Lock()
	if ctx.closed {
		ctx.mu.Unlock()
		return
	}
	ctx.closed = true
	handles := ctx.handles
	ctx.handles = nil
	ctx.mu.Unlock()

	for h := range handles {
		h.Close()
	}
}

// register adds a handle to the context's live set.
func (ctx *Context) register(c *Certificate) error {
	if ctx == nil {
		return ErrContextUnavailable
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if ctx.closed {
		return ErrContextUnavailable
	}
	ctx.handles[c] = struct{}{}
	return nil
}

// unregister removes a handle, typically because it was closed directly.
func (ctx *Context) unregister(c *Certificate) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if !ctx.closed {
		delete(ctx.handles, c)
	}
}
