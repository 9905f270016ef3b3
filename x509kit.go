// Package x509kit provides reference-counted handles over decoded X.509
// certificates: decoding from PEM or DER, read-only metadata projection,
// identity verification (hostname/email/IP matching, issuer and key
// relationship checks, signature verification), and safe transfer of a
// handle between isolated execution contexts without re-parsing.
package x509kit

import (
	"crypto/x509"
	"sync/atomic"
)

// certStore holds one immutable decoded certificate and its reference
// count. It is the unit of ownership shared by handles and transfer
// packages, possibly across goroutines, and is never exposed to callers.
// The decoded certificate is dropped with the last reference.
type certStore struct {
	cert *x509.Certificate
	refs atomic.Int64
}

// newCertStore wraps a decoded certificate with an initial reference.
func newCertStore(cert *x509.Certificate) *certStore {
	s := &certStore{cert: cert}
	s.refs.Store(1)
	return s
}

// retain adds a reference and returns the store. The store must still
// hold at least one reference.
func (s *certStore) retain() *certStore {
	if s.refs.Add(1) <= 1 {
		panic("x509kit: retain of released certificate store")
	}
	return s
}

// release drops one reference.
func (s *certStore) release() {
	n := s.refs.Add(-1)
	if n < 0 {
		panic("x509kit: release of released certificate store")
	}
	if n == 0 {
		s.cert = nil
	}
}

// Certificate is a caller-visible handle over one decoded certificate.
// Handles are cheap to duplicate: cloning, packing, and session
// extraction share the decoded value by reference count instead of
// re-parsing it. Every handle is registered with exactly one Context so
// that context teardown releases handles the caller leaked.
//
// The decoded certificate is immutable; all accessors are read-only
// projections and are safe to call from multiple goroutines. A handle
// itself is owned by one context at a time and must not be used after
// Close.
type Certificate struct {
	store  *certStore
	ctx    *Context
	closed atomic.Bool
}

// newCertificate registers a handle over an already-retained store with
// ctx. The store reference is released if the context refuses it.
func newCertificate(ctx *Context, store *certStore) (*Certificate, error) {
	c := &Certificate{store: store, ctx: ctx}
	if err := ctx.register(c); err != nil {
		store.release()
		return nil, err
	}
	return c, nil
}

// cert returns the decoded certificate. Using a handle after Close is a
// programmer error and panics.
func (c *Certificate) cert() *x509.Certificate {
	if c.closed.Load() {
		panic("x509kit: use of closed certificate handle")
	}
	return c.store.cert
}

// retainStore adds a reference on behalf of a new handle or package.
func (c *Certificate) retainStore() *certStore {
	if c.closed.Load() {
		panic("x509kit: use of closed certificate handle")
	}
	return c.store.retain()
}

// Clone creates a new handle bound to ctx that shares this handle's
// decoded certificate. The certificate is not re-parsed; the two handles
// may be closed independently.
func (c *Certificate) Clone(ctx *Context) (*Certificate, error) {
	return newCertificate(ctx, c.retainStore())
}

// Close releases this handle's reference to the decoded certificate and
// unregisters it from its context. Close is idempotent; any other use of
// a closed handle panics.
func (c *Certificate) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.ctx.unregister(c)
	c.store.release()
}

// PreconditionError reports a caller contract violation, such as a key
// handle of the wrong type where the other type is required. It is fatal
// to the calling operation and never retried.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "x509kit: precondition violated: " + e.Reason
}
