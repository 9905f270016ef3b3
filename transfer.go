package x509kit

import (
	"errors"
	"sync/atomic"
)

// ErrPackageConsumed reports a second unpack of the same transfer
// package. Transfer is a one-shot protocol.
var ErrPackageConsumed = errors.New("x509kit: transfer package already consumed")

// TransferPackage is a one-shot capture of a certificate reference for
// reconstruction in another execution context. Packaging takes its own
// reference on the decoded certificate, so an unconsumed package keeps
// the value alive even after every handle in the source context is
// released, and unpacking does not require the source context to still
// exist. Packaging never re-parses the certificate.
type TransferPackage struct {
	store    *certStore
	consumed atomic.Bool
}

// Pack captures the handle's certificate reference for transfer to
// another context. The originating handle remains usable and may be
// closed independently of the package.
func (c *Certificate) Pack() *TransferPackage {
	return &TransferPackage{store: c.retainStore()}
}

// Unpack consumes the package and reconstructs a handle bound to dst.
// It fails with ErrContextUnavailable when dst is nil or closed, and
// with ErrPackageConsumed when the package was already unpacked or
// discarded.
func (p *TransferPackage) Unpack(dst *Context) (*Certificate, error) {
	if !dst.Active() {
		return nil, ErrContextUnavailable
	}
	if p.consumed.Swap(true) {
		return nil, ErrPackageConsumed
	}
	// Ownership of the captured reference moves to the new handle;
	// newCertificate releases it if the destination closed in between.
	return newCertificate(dst, p.store)
}

// Discard releases the captured reference of a package that will never
// be unpacked. It is safe to call on an already consumed package.
func (p *TransferPackage) Discard() {
	if !p.consumed.Swap(true) {
		p.store.release()
	}
}
