package x509kit

import (
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
)

// DecodeError reports input that is not a certificate under either
// accepted encoding. Err carries the diagnostic of the PEM attempt,
// which runs first; the DER fallback never replaces it, so callers see a
// single stable failure signal regardless of which path tried harder.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("x509kit: decoding certificate: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Parse decodes one certificate from data and returns a handle bound to
// ctx. It accepts PEM (the first CERTIFICATE or TRUSTED CERTIFICATE
// block; auxiliary trust attributes are ignored) or raw DER. The PEM
// decode is attempted first; on failure the DER decode runs against the
// original, unconsumed bytes. If both fail, the error wraps the PEM
// attempt's diagnostic.
func Parse(ctx *Context, data []byte) (*Certificate, error) {
	cert, pemErr := decodePEMCertificate(data)
	if pemErr != nil {
		der, derErr := x509.ParseCertificate(data)
		if derErr != nil {
			return nil, &DecodeError{Err: pemErr}
		}
		cert = der
	}
	return newCertificate(ctx, newCertStore(cert))
}

// decodePEMCertificate scans data for the first certificate block and
// parses it. TRUSTED CERTIFICATE blocks carry the certificate followed
// by auxiliary trust data, so only the leading ASN.1 element is parsed.
func decodePEMCertificate(data []byte) (*x509.Certificate, error) {
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, errors.New("no certificate block found in PEM data")
		}
		switch block.Type {
		case "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parsing certificate: %w", err)
			}
			return cert, nil
		case "TRUSTED CERTIFICATE":
			var raw asn1.RawValue
			if _, err := asn1.Unmarshal(block.Bytes, &raw); err != nil {
				return nil, fmt.Errorf("parsing trusted certificate: %w", err)
			}
			cert, err := x509.ParseCertificate(raw.FullBytes)
			if err != nil {
				return nil, fmt.Errorf("parsing trusted certificate: %w", err)
			}
			return cert, nil
		}
	}
}
