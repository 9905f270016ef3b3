package x509kit

import (
	"bytes"
	"errors"
	"testing"
)

func TestPKCS7_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	caDER, leafDER, _, _ := caAndLeaf(t, "p7.example.com")
	ca := parseDER(t, ctx, caDER)
	leaf := parseDER(t, ctx, leafDER)

	bundle, err := EncodePKCS7([]*Certificate{leaf, ca})
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := DecodePKCS7(ctx, bundle)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d certificates, want 2", len(decoded))
	}
	if !bytes.Equal(decoded[0].Raw(), leafDER) || !bytes.Equal(decoded[1].Raw(), caDER) {
		t.Error("decoded certificates do not match the encoded order")
	}
}

func TestPKCS7_Errors(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)

	if _, err := DecodePKCS7(ctx, []byte("not pkcs7")); err == nil {
		t.Error("expected error for garbage input")
	}
	if _, err := EncodePKCS7(nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestPKCS12_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	caDER, leafDER, _, leafKey := caAndLeaf(t, "pfx.example.com")
	ca := parseDER(t, ctx, caDER)
	leaf := parseDER(t, ctx, leafDER)

	pfx, err := EncodePKCS12(NewPrivateKeyObject(leafKey), leaf, []*Certificate{ca}, "changeit")
	if err != nil {
		t.Fatal(err)
	}

	key, decodedLeaf, decodedCAs, err := DecodePKCS12(ctx, pfx, "changeit")
	if err != nil {
		t.Fatal(err)
	}
	if key.Type() != KeyTypePrivate {
		t.Errorf("key type = %v, want private", key.Type())
	}
	if !bytes.Equal(decodedLeaf.Raw(), leafDER) {
		t.Error("decoded leaf mismatch")
	}
	if len(decodedCAs) != 1 || !bytes.Equal(decodedCAs[0].Raw(), caDER) {
		t.Error("decoded CA chain mismatch")
	}
	if ok, err := decodedLeaf.CheckPrivateKey(key); err != nil || !ok {
		t.Errorf("decoded key must match decoded leaf: ok=%v err=%v", ok, err)
	}

	if _, _, _, err := DecodePKCS12(ctx, pfx, "wrong"); err == nil {
		t.Error("expected error for wrong password")
	}
}

func TestPKCS12_EncodePreconditions(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	der, _ := selfSignedDER(t, "precond.example.com", nil, nil, nil)
	leaf := parseDER(t, ctx, der)

	var precondition *PreconditionError
	if _, err := EncodePKCS12(leaf.PublicKey(), leaf, nil, "pw"); !errors.As(err, &precondition) {
		t.Errorf("public key object: expected PreconditionError, got %v", err)
	}
	if _, err := EncodePKCS12(nil, leaf, nil, "pw"); !errors.As(err, &precondition) {
		t.Errorf("nil key: expected PreconditionError, got %v", err)
	}
}

func TestJKS_TrustStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	caDER, leafDER, _, _ := caAndLeaf(t, "jks.example.com")
	ca := parseDER(t, ctx, caDER)
	leaf := parseDER(t, ctx, leafDER)

	store, err := EncodeJKSTrustStore([]*Certificate{ca, leaf}, "changeit")
	if err != nil {
		t.Fatal(err)
	}

	certs, keys, err := DecodeJKS(ctx, store, "changeit")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("trust store decoded %d keys, want 0", len(keys))
	}
	if len(certs) != 2 {
		t.Fatalf("decoded %d certificates, want 2", len(certs))
	}

	fingerprints := map[string]bool{}
	for _, c := range certs {
		fingerprints[c.Fingerprint256()] = true
	}
	if !fingerprints[ca.Fingerprint256()] || !fingerprints[leaf.Fingerprint256()] {
		t.Error("decoded trust store is missing an expected certificate")
	}
}

func TestJKS_Errors(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)

	if _, _, err := DecodeJKS(ctx, []byte("not a keystore"), "pw"); err == nil {
		t.Error("expected error for garbage input")
	}
	if _, err := EncodeJKSTrustStore(nil, "pw"); err == nil {
		t.Error("expected error for empty input")
	}
}
