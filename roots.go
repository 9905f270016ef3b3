package x509kit

import (
	"crypto/x509"
	"encoding/pem"

	"github.com/breml/rootcerts/embedded"
)

// FindRootIssuer scans the embedded Mozilla root store for a root whose
// direct pairwise relationship with c holds: the issuer/subject and key
// identifier data are consistent (CheckIssued semantics) and c's
// signature verifies under the root's public key. The first such root is
// returned as a handle bound to ctx.
//
// This is a pairwise lookup, not path validation: intermediates are not
// chased and no trust decision is made. ok is false when no embedded
// root issued c directly.
func FindRootIssuer(ctx *Context, c *Certificate) (*Certificate, bool, error) {
	cert := c.cert()
	rest := []byte(embedded.MozillaCACertificatesPEM())
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, false, nil
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		root, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			continue
		}
		if !checkIssued(cert, root) {
			continue
		}
		if verifySignature(cert, root.PublicKey) != nil {
			continue
		}
		handle, err := newCertificate(ctx, newCertStore(root))
		if err != nil {
			return nil, false, err
		}
		return handle, true, nil
	}
}
