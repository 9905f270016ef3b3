package internal

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/sensiblebit/x509kit"
)

// newTestContext creates a handle context and closes it when the test ends.
func newTestContext(t *testing.T) *x509kit.Context {
	t.Helper()
	ctx := x509kit.NewContext()
	t.Cleanup(ctx.Close)
	return ctx
}

// selfSignedPEM mints a self-signed certificate for cn and returns its
// PEM encoding and DER bytes.
func selfSignedPEM(t *testing.T, cn string, dnsNames ...string) (pemData, der []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(0x42),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		DNSNames:     dnsNames,
	}
	der, err = x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), der
}

// parsePEM decodes pemData into a handle bound to ctx.
func parsePEM(t *testing.T, ctx *x509kit.Context, pemData []byte) *x509kit.Certificate {
	t.Helper()
	c, err := x509kit.Parse(ctx, pemData)
	if err != nil {
		t.Fatal(err)
	}
	return c
}
