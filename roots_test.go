package x509kit

import "testing"

func TestFindRootIssuer_NotFound(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	caDER, leafDER, _, _ := caAndLeaf(t, "private.example.com")

	// Privately issued certificates have no embedded root issuer.
	for _, der := range [][]byte{caDER, leafDER} {
		root, ok, err := FindRootIssuer(ctx, parseDER(t, ctx, der))
		if err != nil {
			t.Fatal(err)
		}
		if ok || root != nil {
			t.Errorf("unexpected root issuer %v", root)
		}
	}
}
