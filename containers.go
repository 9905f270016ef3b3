package x509kit

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
	"github.com/smallstep/pkcs7"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

// DecodePKCS7 returns one handle per certificate in a DER-encoded
// PKCS#7/P7B bundle, bound to ctx.
func DecodePKCS7(ctx *Context, derData []byte) ([]*Certificate, error) {
	p7, err := pkcs7.Parse(derData)
	if err != nil {
		return nil, fmt.Errorf("parsing PKCS#7: %w", err)
	}
	if len(p7.Certificates) == 0 {
		return nil, errors.New("PKCS#7 bundle contains no certificates")
	}
	return wrapCertificates(ctx, p7.Certificates)
}

// EncodePKCS7 creates a certs-only PKCS#7/P7B bundle from handles.
func EncodePKCS7(certs []*Certificate) ([]byte, error) {
	if len(certs) == 0 {
		return nil, errors.New("no certificates to encode")
	}
	var derBytes []byte
	for _, c := range certs {
		derBytes = append(derBytes, c.cert().Raw...)
	}
	return pkcs7.DegenerateCertificate(derBytes)
}

// DecodePKCS12 decodes a PKCS#12/PFX bundle into a private KeyObject,
// the leaf handle, and CA handles, all bound to ctx.
func DecodePKCS12(ctx *Context, pfxData []byte, password string) (*KeyObject, *Certificate, []*Certificate, error) {
	privateKey, leaf, caCerts, err := gopkcs12.DecodeChain(pfxData, password)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decoding PKCS#12: %w", err)
	}
	leafHandle, err := newCertificate(ctx, newCertStore(leaf))
	if err != nil {
		return nil, nil, nil, err
	}
	caHandles, err := wrapCertificates(ctx, caCerts)
	if err != nil {
		leafHandle.Close()
		return nil, nil, nil, err
	}
	return NewPrivateKeyObject(privateKey), leafHandle, caHandles, nil
}

// EncodePKCS12 creates a PKCS#12/PFX bundle from a private key object,
// a leaf handle, and CA handles. key must be a private key object of a
// type PKCS#12 supports.
func EncodePKCS12(key *KeyObject, leaf *Certificate, caCerts []*Certificate, password string) ([]byte, error) {
	if key == nil || key.Type() != KeyTypePrivate {
		return nil, &PreconditionError{Reason: "private key object required"}
	}
	switch key.Private().(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey:
	default:
		return nil, fmt.Errorf("unsupported private key type %T", key.Private())
	}
	return gopkcs12.Modern.Encode(key.Private(), leaf.cert(), rawCertificates(caCerts), password)
}

// DecodeJKS decodes a Java KeyStore and returns handles for its
// certificates plus private KeyObjects. The same password is used for
// the store and individual entries (standard Java convention).
// Individual entry errors are skipped; an error is returned only if the
// store cannot be loaded or no usable entries are found.
func DecodeJKS(ctx *Context, data []byte, password string) ([]*Certificate, []*KeyObject, error) {
	ks := keystore.New()
	if err := ks.Load(bytes.NewReader(data), []byte(password)); err != nil {
		return nil, nil, fmt.Errorf("loading JKS: %w", err)
	}

	var certs []*x509.Certificate
	var keys []*KeyObject

	for _, alias := range ks.Aliases() {
		if ks.IsTrustedCertificateEntry(alias) {
			entry, err := ks.GetTrustedCertificateEntry(alias)
			if err != nil {
				continue
			}
			cert, err := x509.ParseCertificate(entry.Certificate.Content)
			if err != nil {
				continue
			}
			certs = append(certs, cert)
		}

		if ks.IsPrivateKeyEntry(alias) {
			entry, err := ks.GetPrivateKeyEntry(alias, []byte(password))
			if err != nil {
				continue
			}
			key, err := x509.ParsePKCS8PrivateKey(entry.PrivateKey)
			if err != nil {
				continue
			}
			keys = append(keys, NewPrivateKeyObject(key))

			for _, certEntry := range entry.CertificateChain {
				cert, err := x509.ParseCertificate(certEntry.Content)
				if err != nil {
					continue
				}
				certs = append(certs, cert)
			}
		}
	}

	if len(certs) == 0 && len(keys) == 0 {
		return nil, nil, errors.New("JKS contains no usable certificates or keys")
	}

	handles, err := wrapCertificates(ctx, certs)
	if err != nil {
		return nil, nil, err
	}
	return handles, keys, nil
}

// EncodeJKSTrustStore creates a Java KeyStore holding each handle as a
// trusted certificate entry, aliased by its SHA-256 fingerprint.
func EncodeJKSTrustStore(certs []*Certificate, password string) ([]byte, error) {
	if len(certs) == 0 {
		return nil, errors.New("no certificates to encode")
	}

	ks := keystore.New()
	for _, c := range certs {
		entry := keystore.TrustedCertificateEntry{
			CreationTime: time.Now(),
			Certificate: keystore.Certificate{
				Type:    "X.509",
				Content: c.cert().Raw,
			},
		}
		if err := ks.SetTrustedCertificateEntry(c.Fingerprint256(), entry); err != nil {
			return nil, fmt.Errorf("setting JKS trusted entry: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := ks.Store(&buf, []byte(password)); err != nil {
		return nil, fmt.Errorf("storing JKS: %w", err)
	}
	return buf.Bytes(), nil
}

// wrapCertificates binds one handle per decoded certificate to ctx,
// releasing any partial result on failure.
func wrapCertificates(ctx *Context, certs []*x509.Certificate) ([]*Certificate, error) {
	handles := make([]*Certificate, 0, len(certs))
	for _, cert := range certs {
		h, err := newCertificate(ctx, newCertStore(cert))
		if err != nil {
			closeHandles(handles)
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// rawCertificates projects handles back to their decoded form for
// container encoders.
func rawCertificates(certs []*Certificate) []*x509.Certificate {
	raw := make([]*x509.Certificate, len(certs))
	for i, c := range certs {
		raw[i] = c.cert()
	}
	return raw
}
