package x509kit

import (
	"crypto/tls"
	"crypto/x509"
)

// Session captures the certificate-bearing state of an established or
// in-progress TLS exchange: the connection state reported by the
// transport plus the certificate this endpoint presented, if any. The
// extractor only reads from the session; it never mutates it.
type Session struct {
	state tls.ConnectionState
	local *tls.Certificate
}

// NewSession builds a session view from a connection state and the
// certificate this endpoint presented. local may be nil when the
// endpoint sent no certificate.
func NewSession(state tls.ConnectionState, local *tls.Certificate) *Session {
	return &Session{state: state, local: local}
}

// PeerRole identifies what the remote end of a session is.
type PeerRole int

const (
	// RoleClient marks sessions whose peer is a TLS client.
	RoleClient PeerRole = iota
	// RoleServer marks sessions whose peer is a TLS server; for these
	// the verified peer leaf, when available, leads FromPeer results.
	RoleServer
)

// FromLocal returns a handle over the certificate this endpoint
// presented. A nil handle with a nil error means no certificate was
// presented, which is a normal absent result.
func (s *Session) FromLocal(ctx *Context) (*Certificate, error) {
	if s.local == nil || len(s.local.Certificate) == 0 {
		return nil, nil
	}
	leaf := s.local.Leaf
	if leaf == nil {
		parsed, err := x509.ParseCertificate(s.local.Certificate[0])
		if err != nil {
			return nil, &DecodeError{Err: err}
		}
		leaf = parsed
	}
	return newCertificate(ctx, newCertStore(leaf))
}

// FromPeer returns handles over the peer's certificates, bound to ctx.
// For a server-facing session the verified peer leaf, when one exists,
// is placed first; otherwise the first certificate of the raw peer chain
// leads. With abbreviated true only that leading handle is returned;
// otherwise the leading handle is followed by one independently wrapped
// handle per raw chain entry, in the order the session supplied them.
// A nil slice with a nil error means the peer presented no certificate
// information at all.
func (s *Session) FromPeer(ctx *Context, role PeerRole, abbreviated bool) ([]*Certificate, error) {
	chain := s.state.PeerCertificates

	var lead *x509.Certificate
	if role == RoleServer && len(s.state.VerifiedChains) > 0 && len(s.state.VerifiedChains[0]) > 0 {
		lead = s.state.VerifiedChains[0][0]
	} else if len(chain) > 0 {
		lead = chain[0]
	}
	if lead == nil {
		return nil, nil
	}

	handles := make([]*Certificate, 0, len(chain)+1)
	leadHandle, err := newCertificate(ctx, newCertStore(lead))
	if err != nil {
		return nil, err
	}
	handles = append(handles, leadHandle)

	if !abbreviated {
		for _, peer := range chain {
			h, err := newCertificate(ctx, newCertStore(peer))
			if err != nil {
				closeHandles(handles)
				return nil, err
			}
			handles = append(handles, h)
		}
	}
	return handles, nil
}

// closeHandles releases a partially built handle slice.
func closeHandles(handles []*Certificate) {
	for _, h := range handles {
		h.Close()
	}
}
