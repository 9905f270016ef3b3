package x509kit

import (
	"bytes"
	"errors"
	"testing"
)

func TestTransfer_AcrossContexts(t *testing.T) {
	t.Parallel()
	src := newTestContext(t)
	dst := newTestContext(t)

	der, _ := selfSignedDER(t, "transfer.example.com", nil, nil, nil)
	original := parseDER(t, src, der)

	pkg := original.Pack()
	clone, err := pkg.Unpack(dst)
	if err != nil {
		t.Fatal(err)
	}

	// The reconstructed handle sees the same decoded bytes without a
	// re-parse, and the two handles have independent lifetimes.
	if !bytes.Equal(original.Raw(), clone.Raw()) {
		t.Error("unpacked handle must carry the original DER")
	}
	original.Close()
	if got := clone.Subject(); got == "" {
		t.Error("unpacked handle must survive closing the original")
	}
}

func TestTransfer_SurvivesSourceContextClose(t *testing.T) {
	t.Parallel()
	src := NewContext()
	dst := newTestContext(t)

	der, _ := selfSignedDER(t, "orphan.example.com", nil, nil, nil)
	original := parseDER(t, src, der)
	pkg := original.Pack()

	// Tearing down the source context releases the leaked handle but not
	// the package's own reference.
	src.Close()

	clone, err := pkg.Unpack(dst)
	if err != nil {
		t.Fatal(err)
	}
	if clone.Subject() != "CN=orphan.example.com" {
		t.Errorf("subject = %q", clone.Subject())
	}
}

func TestTransfer_SecondUnpackFails(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	der, _ := selfSignedDER(t, "once.example.com", nil, nil, nil)
	pkg := parseDER(t, ctx, der).Pack()

	if _, err := pkg.Unpack(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := pkg.Unpack(ctx); !errors.Is(err, ErrPackageConsumed) {
		t.Errorf("second unpack: got %v, want ErrPackageConsumed", err)
	}
}

func TestTransfer_ClosedDestination(t *testing.T) {
	t.Parallel()
	src := newTestContext(t)
	der, _ := selfSignedDER(t, "nodst.example.com", nil, nil, nil)
	pkg := parseDER(t, src, der).Pack()

	dst := NewContext()
	dst.Close()
	if _, err := pkg.Unpack(dst); !errors.Is(err, ErrContextUnavailable) {
		t.Errorf("closed destination: got %v, want ErrContextUnavailable", err)
	}
	if _, err := pkg.Unpack(nil); !errors.Is(err, ErrContextUnavailable) {
		t.Errorf("nil destination: got %v, want ErrContextUnavailable", err)
	}

	// Refusal does not consume the package.
	if _, err := pkg.Unpack(src); err != nil {
		t.Errorf("unpack after refusal: %v", err)
	}
}

func TestTransfer_Discard(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	der, _ := selfSignedDER(t, "discard.example.com", nil, nil, nil)
	pkg := parseDER(t, ctx, der).Pack()

	pkg.Discard()
	pkg.Discard() // idempotent
	if _, err := pkg.Unpack(ctx); !errors.Is(err, ErrPackageConsumed) {
		t.Errorf("unpack after discard: got %v, want ErrPackageConsumed", err)
	}
}

func TestClone_SharesDecodedCertificate(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	other := newTestContext(t)

	der, _ := selfSignedDER(t, "clone.example.com", nil, nil, nil)
	original := parseDER(t, ctx, der)

	clone, err := original.Clone(other)
	if err != nil {
		t.Fatal(err)
	}
	if original.Fingerprint256() != clone.Fingerprint256() {
		t.Error("clone must project the same certificate")
	}
	clone.Close()
	if original.Subject() == "" {
		t.Error("closing a clone must not affect the original")
	}

	if _, err := original.Clone(nil); !errors.Is(err, ErrContextUnavailable) {
		t.Errorf("clone into nil context: got %v", err)
	}
}

func TestContext_CloseReleasesHandles(t *testing.T) {
	t.Parallel()
	ctx := NewContext()
	der, _ := selfSignedDER(t, "teardown.example.com", nil, nil, nil)
	c := parseDER(t, ctx, der)

	ctx.Close()
	ctx.Close() // idempotent

	if ctx.Active() {
		t.Error("closed context must not report active")
	}
	defer func() {
		if recover() == nil {
			t.Error("use after context teardown must panic")
		}
	}()
	c.Subject()
}

func TestCertificate_CloseIdempotent(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	der, _ := selfSignedDER(t, "close.example.com", nil, nil, nil)
	c := parseDER(t, ctx, der)

	c.Close()
	c.Close()

	defer func() {
		if recover() == nil {
			t.Error("use after Close must panic")
		}
	}()
	c.Fingerprint()
}
