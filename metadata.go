package x509kit

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strings"
	"time"
)

var (
	oidExtensionKeyUsage       = asn1.ObjectIdentifier{2, 5, 29, 15}
	oidExtensionSubjectAltName = asn1.ObjectIdentifier{2, 5, 29, 17}
	oidExtensionInfoAccess     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 1}
)

// Subject returns the subject distinguished name in RFC 2253 form.
func (c *Certificate) Subject() string {
	return c.cert().Subject.String()
}

// Issuer returns the issuer distinguished name in RFC 2253 form.
func (c *Certificate) Issuer() string {
	return c.cert().Issuer.String()
}

// ValidFrom returns the start of the validity window in the
// certificate's encoded calendar representation, e.g.
// "Jan  2 15:04:05 2006 GMT". No timezone normalization is applied.
func (c *Certificate) ValidFrom() string {
	return asn1TimeString(c.cert().NotBefore)
}

// ValidTo returns the end of the validity window in the same
// representation as ValidFrom.
func (c *Certificate) ValidTo() string {
	return asn1TimeString(c.cert().NotAfter)
}

// asn1TimeString renders a certificate time the way ASN1_TIME prints:
// space-padded day, seconds, year, literal GMT.
func asn1TimeString(t time.Time) string {
	return t.UTC().Format("Jan _2 15:04:05 2006") + " GMT"
}

// Fingerprint returns the SHA-1 digest of the raw DER bytes as
// colon-separated uppercase hex, the format used by OpenSSL and browser
// certificate viewers.
func (c *Certificate) Fingerprint() string {
	sum := sha1.Sum(c.cert().Raw)
	return strings.ToUpper(colonHex(sum[:]))
}

// Fingerprint256 returns the SHA-256 digest of the raw DER bytes as
// colon-separated uppercase hex.
func (c *Certificate) Fingerprint256() string {
	sum := sha256.Sum256(c.cert().Raw)
	return strings.ToUpper(colonHex(sum[:]))
}

// SerialNumber returns the certificate serial as uppercase hex text.
func (c *Certificate) SerialNumber() string {
	return strings.ToUpper(c.cert().SerialNumber.Text(16))
}

// keyUsageNames lists key usage bits in definition order with their
// display names.
var keyUsageNames = []struct {
	bit  x509.KeyUsage
	name string
}{
	{x509.KeyUsageDigitalSignature, "Digital Signature"},
	{x509.KeyUsageContentCommitment, "Non Repudiation"},
	{x509.KeyUsageKeyEncipherment, "Key Encipherment"},
	{x509.KeyUsageDataEncipherment, "Data Encipherment"},
	{x509.KeyUsageKeyAgreement, "Key Agreement"},
	{x509.KeyUsageCertSign, "Certificate Sign"},
	{x509.KeyUsageCRLSign, "CRL Sign"},
	{x509.KeyUsageEncipherOnly, "Encipher Only"},
	{x509.KeyUsageDecipherOnly, "Decipher Only"},
}

// KeyUsage returns the named usage flags present in the key usage
// extension. ok is false when the certificate carries no key usage
// extension, which is a normal absent result rather than an error.
func (c *Certificate) KeyUsage() (usages []string, ok bool) {
	cert := c.cert()
	if !hasExtension(cert, oidExtensionKeyUsage) {
		return nil, false
	}
	for _, ku := range keyUsageNames {
		if cert.KeyUsage&ku.bit != 0 {
			usages = append(usages, ku.name)
		}
	}
	return usages, true
}

// SubjectAltName returns the textual rendering of the subject
// alternative name extension, one "type:value" pair per entry, e.g.
// "DNS:a.example.com, IP Address:192.0.2.1". ok is false when the
// extension is absent.
func (c *Certificate) SubjectAltName() (string, bool) {
	cert := c.cert()
	if !hasExtension(cert, oidExtensionSubjectAltName) {
		return "", false
	}
	var parts []string
	for _, name := range cert.DNSNames {
		parts = append(parts, "DNS:"+name)
	}
	for _, email := range cert.EmailAddresses {
		parts = append(parts, "email:"+email)
	}
	for _, ip := range cert.IPAddresses {
		parts = append(parts, "IP Address:"+ip.String())
	}
	for _, uri := range cert.URIs {
		parts = append(parts, "URI:"+uri.String())
	}
	return strings.Join(parts, ", "), true
}

// InfoAccess returns the textual rendering of the authority information
// access extension, one "method - URI:value" line per entry. ok is false
// when the extension is absent.
func (c *Certificate) InfoAccess() (string, bool) {
	cert := c.cert()
	if !hasExtension(cert, oidExtensionInfoAccess) {
		return "", false
	}
	var sb strings.Builder
	for _, uri := range cert.OCSPServer {
		fmt.Fprintf(&sb, "OCSP - URI:%s\n", uri)
	}
	for _, uri := range cert.IssuingCertificateURL {
		fmt.Fprintf(&sb, "CA Issuers - URI:%s\n", uri)
	}
	return sb.String(), true
}

// Raw returns a copy of the DER bytes the certificate was decoded from.
func (c *Certificate) Raw() []byte {
	return bytes.Clone(c.cert().Raw)
}

// PEM returns the certificate re-encoded as a PEM CERTIFICATE block.
func (c *Certificate) PEM() string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: c.cert().Raw,
	}))
}

// PublicKey returns the certificate's embedded public key wrapped in a
// public KeyObject.
func (c *Certificate) PublicKey() *KeyObject {
	return NewPublicKeyObject(c.cert().PublicKey)
}

// hasExtension reports whether the certificate carries the extension
// identified by oid.
func hasExtension(cert *x509.Certificate, oid asn1.ObjectIdentifier) bool {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(oid) {
			return true
		}
	}
	return false
}

// colonHex formats b as colon-separated lowercase hex.
func colonHex(b []byte) string {
	h := hex.EncodeToString(b)
	parts := make([]string, 0, len(h)/2)
	for i := 0; i < len(h); i += 2 {
		parts = append(parts, h[i:i+2])
	}
	return strings.Join(parts, ":")
}
