package x509kit

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"
)

// newTestContext creates a context and closes it when the test ends.
func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx := NewContext()
	t.Cleanup(ctx.Close)
	return ctx
}

// signCert signs template with parent/parentKey, or self-signs when
// parent is nil. Returns the DER bytes and the subject's private key.
func signCert(t *testing.T, template, parent *x509.Certificate, parentKey *ecdsa.PrivateKey) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signerKey := key
	if parent == nil {
		parent = template
	} else {
		signerKey = parentKey
	}
	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, signerKey)
	if err != nil {
		t.Fatal(err)
	}
	return der, key
}

// selfSignedDER mints a self-signed certificate for cn with the given
// SAN entries. Serial, validity, and key usage match a minimal leaf.
func selfSignedDER(t *testing.T, cn string, dnsNames []string, emails []string, ips []net.IP) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber:   big.NewInt(0x1234),
		Subject:        pkix.Name{CommonName: cn},
		NotBefore:      time.Now().Add(-1 * time.Hour),
		NotAfter:       time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:       x509.KeyUsageDigitalSignature,
		DNSNames:       dnsNames,
		EmailAddresses: emails,
		IPAddresses:    ips,
	}
	return signCert(t, template, nil, nil)
}

// parseDER decodes der into a handle bound to ctx, failing the test on
// error.
func parseDER(t *testing.T, ctx *Context, der []byte) *Certificate {
	t.Helper()
	c, err := Parse(ctx, der)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// certPEM renders DER bytes as a PEM CERTIFICATE block.
func certPEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// caAndLeaf mints a CA and a leaf it issued, returning both DERs and the
// leaf key.
func caAndLeaf(t *testing.T, leafCN string) (caDER, leafDER []byte, caKey, leafKey *ecdsa.PrivateKey) {
	t.Helper()
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test CA"},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	caDER, caKey = signCert(t, caTemplate, nil, nil)
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		t.Fatal(err)
	}

	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: leafCN},
		NotBefore:    time.Now().Add(-1 * time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{leafCN},
	}
	leafDER, leafKey = signCert(t, leafTemplate, caCert, caKey)
	return caDER, leafDER, caKey, leafKey
}
