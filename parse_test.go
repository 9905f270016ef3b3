package x509kit

import (
	"bytes"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"strings"
	"testing"
)

func TestParse_DER(t *testing.T) {
	// WHY: Raw DER is the binary fallback path; the decoded handle must
	// expose the same identity as the input.
	t.Parallel()
	ctx := newTestContext(t)
	der, _ := selfSignedDER(t, "der.example.com", nil, nil, nil)

	c := parseDER(t, ctx, der)
	if got := c.Subject(); !strings.Contains(got, "der.example.com") {
		t.Errorf("got subject %q, want CN der.example.com", got)
	}
}

func TestParse_PEM(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	der, _ := selfSignedDER(t, "pem.example.com", nil, nil, nil)

	c := parseDER(t, ctx, certPEM(der))
	if got := c.Subject(); !strings.Contains(got, "pem.example.com") {
		t.Errorf("got subject %q, want CN pem.example.com", got)
	}
}

func TestParse_PEMSkipsUnrelatedBlocks(t *testing.T) {
	// WHY: Bundles often lead with keys or other blocks; the decoder must
	// scan past them to the first certificate block.
	t.Parallel()
	ctx := newTestContext(t)
	der, _ := selfSignedDER(t, "mixed.example.com", nil, nil, nil)

	var buf bytes.Buffer
	buf.Write(pem.EncodeToMemory(&pem.Block{Type: "GARBAGE", Bytes: []byte("junk")}))
	buf.Write(certPEM(der))

	c := parseDER(t, ctx, buf.Bytes())
	if got := c.Subject(); !strings.Contains(got, "mixed.example.com") {
		t.Errorf("got subject %q, want CN mixed.example.com", got)
	}
}

func TestParse_TrustedCertificateBlock(t *testing.T) {
	// WHY: The textual encoding is trust-aux aware: a TRUSTED CERTIFICATE
	// block carries the certificate followed by auxiliary data, which the
	// decoder must ignore instead of failing on trailing bytes.
	t.Parallel()
	ctx := newTestContext(t)
	der, _ := selfSignedDER(t, "aux.example.com", nil, nil, nil)

	aux, err := asn1.Marshal("trusted usage data")
	if err != nil {
		t.Fatal(err)
	}
	block := pem.EncodeToMemory(&pem.Block{
		Type:  "TRUSTED CERTIFICATE",
		Bytes: append(append([]byte(nil), der...), aux...),
	})

	c := parseDER(t, ctx, block)
	if got := c.Subject(); !strings.Contains(got, "aux.example.com") {
		t.Errorf("got subject %q, want CN aux.example.com", got)
	}
}

func TestParse_FirstErrorWins(t *testing.T) {
	// WHY: When both encodings fail, callers must see the PEM attempt's
	// diagnostic, not the DER one.
	t.Parallel()
	ctx := newTestContext(t)

	_, err := Parse(ctx, []byte("neither pem nor der"))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
	if !strings.Contains(decodeErr.Err.Error(), "no certificate block found") {
		t.Errorf("expected the PEM attempt's diagnostic, got: %v", decodeErr.Err)
	}
}

func TestParse_MalformedPEMCertificate(t *testing.T) {
	// WHY: A well-formed PEM block with a garbage payload must fail with
	// the PEM path's parse error even though the DER fallback also runs.
	t.Parallel()
	ctx := newTestContext(t)

	bad := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("not asn1")})
	_, err := Parse(ctx, bad)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
	if !strings.Contains(decodeErr.Err.Error(), "parsing certificate") {
		t.Errorf("expected PEM parse diagnostic, got: %v", decodeErr.Err)
	}
}

func TestParse_ClosedContext(t *testing.T) {
	t.Parallel()
	ctx := NewContext()
	ctx.Close()
	der, _ := selfSignedDER(t, "late.example.com", nil, nil, nil)

	if _, err := Parse(ctx, der); !errors.Is(err, ErrContextUnavailable) {
		t.Fatalf("expected ErrContextUnavailable, got %v", err)
	}
}

func TestParse_RawRoundTrip(t *testing.T) {
	// WHY: decode followed by raw() must be byte-identical for DER input;
	// pem() after decode must re-encode to an equivalent certificate.
	t.Parallel()
	ctx := newTestContext(t)
	der, _ := selfSignedDER(t, "roundtrip.example.com", nil, nil, nil)

	c := parseDER(t, ctx, der)
	if !bytes.Equal(c.Raw(), der) {
		t.Error("raw DER differs from input DER")
	}

	again := parseDER(t, ctx, []byte(c.PEM()))
	if !bytes.Equal(again.Raw(), der) {
		t.Error("PEM re-encode does not decode back to identical DER")
	}
}
