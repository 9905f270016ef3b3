package x509kit

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrInvalidName reports a name or address argument that is
	// syntactically invalid for the requested match type.
	ErrInvalidName = errors.New("x509kit: invalid name")

	// ErrOperationFailed reports an unexpected internal failure during a
	// matching or verification computation, distinct from a well-formed
	// no-match result.
	ErrOperationFailed = errors.New("x509kit: operation failed")
)

// CheckCA reports whether the certificate is marked as a CA by a valid
// basic constraints extension.
func (c *Certificate) CheckCA() bool {
	cert := c.cert()
	return cert.BasicConstraintsValid && cert.IsCA
}

// CheckHost matches name against the certificate's DNS identities using
// RFC 6125 rules as adjusted by flags. A name with a leading dot
// matches any certificate name ending in it, restricted to direct
// children under CheckSingleLabelSubdomains. On a match, ok is true
// and matched carries the input name verbatim, or the certificate's
// stored name when the match involved wildcard or sub-domain
// expansion. A well-formed non-match returns ok false with a nil
// error; err is ErrInvalidName when name is not a syntactically valid
// hostname. The three outcomes are never conflated.
func (c *Certificate) CheckHost(name string, flags CheckFlag) (matched string, ok bool, err error) {
	if !validHostnameInput(name) {
		return "", false, ErrInvalidName
	}
	for _, pattern := range hostPatterns(c.cert(), flags) {
		m, wildcard := matchHostPattern(pattern, name, flags)
		if !m {
			continue
		}
		if wildcard {
			return pattern, true, nil
		}
		return name, true, nil
	}
	return "", false, nil
}

// CheckEmail matches email against the certificate's rfc822 identities,
// with the same three-way outcome contract as CheckHost. The local part
// is compared case-sensitively, the domain part case-insensitively.
func (c *Certificate) CheckEmail(email string, flags CheckFlag) (matched string, ok bool, err error) {
	if !validEmailInput(email) {
		return "", false, ErrInvalidName
	}
	for _, pattern := range emailPatterns(c.cert(), flags) {
		if matchEmail(pattern, email) {
			return email, true, nil
		}
	}
	return "", false, nil
}

// CheckIP matches address, a textual IPv4 or IPv6 literal, against the
// certificate's IP subject alternative names, with the same three-way
// outcome contract as CheckHost. Hostname flags have no effect on IP
// matching.
func (c *Certificate) CheckIP(address string, _ CheckFlag) (matched string, ok bool, err error) {
	ip := net.ParseIP(address)
	if ip == nil {
		return "", false, ErrInvalidName
	}
	for _, candidate := range c.cert().IPAddresses {
		if ip.Equal(candidate) {
			return address, true, nil
		}
	}
	return "", false, nil
}

// CheckIssued reports whether issuer's subject and key data are
// consistent with it being the direct issuer of c. Only the pairwise
// relationship is evaluated; no chain is built and no trust decision is
// made.
func (c *Certificate) CheckIssued(issuer *Certificate) bool {
	return checkIssued(c.cert(), issuer.cert())
}

// checkIssued compares the raw issuer/subject names, the authority and
// subject key identifiers when both are present, and the issuer's
// certificate-signing key usage when declared.
func checkIssued(cert, issuer *x509.Certificate) bool {
	if !bytes.Equal(cert.RawIssuer, issuer.RawSubject) {
		return false
	}
	if len(cert.AuthorityKeyId) > 0 && len(issuer.SubjectKeyId) > 0 &&
		!bytes.Equal(cert.AuthorityKeyId, issuer.SubjectKeyId) {
		return false
	}
	if issuer.KeyUsage != 0 && issuer.KeyUsage&x509.KeyUsageCertSign == 0 {
		return false
	}
	return true
}

// CheckPrivateKey reports whether key's public component matches the
// certificate's embedded public key. key must be a private key object;
// anything else is a precondition violation.
func (c *Certificate) CheckPrivateKey(key *KeyObject) (bool, error) {
	if key == nil || key.Type() != KeyTypePrivate {
		return false, &PreconditionError{Reason: "private key object required"}
	}
	return publicKeysEqual(key.Public(), c.cert().PublicKey)
}

// Verify reports whether the certificate's signature verifies under key.
// key must be a public key object; anything else is a precondition
// violation. A signature that does not verify is a false result, not an
// error.
func (c *Certificate) Verify(key *KeyObject) (bool, error) {
	if key == nil || key.Type() != KeyTypePublic {
		return false, &PreconditionError{Reason: "public key object required"}
	}
	cert := c.cert()
	return verifySignature(cert, key.Public()) == nil, nil
}

// verifySignature checks the certificate's signature over its TBS bytes
// under pub.
func verifySignature(cert *x509.Certificate, pub crypto.PublicKey) error {
	parent := &x509.Certificate{PublicKey: pub}
	return parent.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature)
}

// publicKeysEqual compares two public keys via the Equal method carried
// by all standard key types, which returns false across key types.
func publicKeysEqual(a, b crypto.PublicKey) (bool, error) {
	type equalKey interface {
		Equal(crypto.PublicKey) bool
	}
	eq, ok := a.(equalKey)
	if !ok {
		return false, fmt.Errorf("%w: unsupported public key type %T", ErrOperationFailed, a)
	}
	return eq.Equal(b), nil
}
