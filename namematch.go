package x509kit

import (
	"crypto/x509"
	"encoding/asn1"
	"strings"
)

// CheckFlag adjusts the matching behavior of CheckHost, CheckEmail and
// CheckIP. The numeric values are stable and may be persisted or
// compared across context boundaries, so they are never renumbered.
type CheckFlag uint32

const (
	// CheckAlwaysCheckSubject matches the subject common name (or
	// emailAddress attribute) even when same-type subject alternative
	// names are present.
	CheckAlwaysCheckSubject CheckFlag = 0x1
	// CheckNoWildcards treats wildcard characters in certificate names
	// literally.
	CheckNoWildcards CheckFlag = 0x2
	// CheckNoPartialWildcards rejects partial wildcard labels such as
	// "f*o.example.com".
	CheckNoPartialWildcards CheckFlag = 0x4
	// CheckMultiLabelWildcards lets a wildcard span multiple labels.
	CheckMultiLabelWildcards CheckFlag = 0x8
	// CheckSingleLabelSubdomains restricts a leading-dot name argument,
	// which otherwise matches any sub-domain, to direct children.
	CheckSingleLabelSubdomains CheckFlag = 0x10
	// CheckNeverCheckSubject never falls back to the subject field.
	CheckNeverCheckSubject CheckFlag = 0x20
)

// oidEmailAddress is the PKCS#9 emailAddress attribute in a subject
// distinguished name.
var oidEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}

// hostPatterns returns the certificate names CheckHost matches against:
// DNS-type subject alternative names, with the subject common name
// considered only when no DNS names exist (or CheckAlwaysCheckSubject
// forces it) and CheckNeverCheckSubject does not forbid it.
func hostPatterns(cert *x509.Certificate, flags CheckFlag) []string {
	names := append([]string(nil), cert.DNSNames...)
	if flags&CheckNeverCheckSubject != 0 {
		return names
	}
	if len(names) == 0 || flags&CheckAlwaysCheckSubject != 0 {
		if cn := cert.Subject.CommonName; cn != "" {
			names = append(names, cn)
		}
	}
	return names
}

// emailPatterns returns the certificate names CheckEmail matches
// against, applying the same subject fallback rules to the subject
// emailAddress attribute.
func emailPatterns(cert *x509.Certificate, flags CheckFlag) []string {
	names := append([]string(nil), cert.EmailAddresses...)
	if flags&CheckNeverCheckSubject != 0 {
		return names
	}
	if len(names) == 0 || flags&CheckAlwaysCheckSubject != 0 {
		for _, atv := range cert.Subject.Names {
			if !atv.Type.Equal(oidEmailAddress) {
				continue
			}
			if addr, ok := atv.Value.(string); ok && addr != "" {
				names = append(names, addr)
			}
		}
	}
	return names
}

// matchHostPattern reports whether host matches the certificate name
// pattern under flags. wildcard reports that the match involved wildcard
// or subdomain expansion, in which case the caller surfaces the stored
// pattern instead of the input name.
func matchHostPattern(pattern, host string, flags CheckFlag) (matched, wildcard bool) {
	pattern = toLowerASCII(pattern)
	host = toLowerASCII(strings.TrimSuffix(host, "."))
	if pattern == "" || host == "" {
		return false, false
	}

	// A leading-dot name designates a parent domain and matches any
	// certificate name ending in it. The skipped prefix is compared
	// textually; wildcard expansion does not apply to this form.
	if host[0] == '.' {
		return matchSubdomain(pattern, host, flags), true
	}

	if flags&CheckNoWildcards == 0 {
		if wp, ok := splitWildcard(pattern, flags); ok {
			return matchWildcard(wp, host, flags), true
		}
	}
	return pattern == host, false
}

// matchSubdomain reports whether the certificate name pattern ends in
// the leading-dot name host. Under CheckSingleLabelSubdomains the
// skipped prefix must be a single label.
func matchSubdomain(pattern, host string, flags CheckFlag) bool {
	if !strings.HasSuffix(pattern, host) {
		return false
	}
	prefix := pattern[:len(pattern)-len(host)]
	if flags&CheckSingleLabelSubdomains != 0 && strings.Contains(prefix, ".") {
		return false
	}
	return true
}

// wildcardPattern is a validated wildcard certificate name decomposed as
// <prefix>*<suffix>.<tail>.
type wildcardPattern struct {
	prefix string
	suffix string
	tail   string
}

// splitWildcard validates pattern as a wildcard name: exactly one '*',
// in the left-most label only, with at least two labels after it, never
// inside an IDNA (xn--) label, and no partial wildcard label when
// CheckNoPartialWildcards is set. Patterns failing these rules are
// matched literally by the caller.
func splitWildcard(pattern string, flags CheckFlag) (wildcardPattern, bool) {
	star := strings.IndexByte(pattern, '*')
	if star < 0 || strings.IndexByte(pattern[star+1:], '*') >= 0 {
		return wildcardPattern{}, false
	}
	dot := strings.IndexByte(pattern, '.')
	if dot < 0 || star > dot {
		return wildcardPattern{}, false
	}
	label, tail := pattern[:dot], pattern[dot+1:]
	if !strings.Contains(tail, ".") {
		// The wildcard must be followed by at least two labels.
		return wildcardPattern{}, false
	}
	if strings.HasPrefix(label, "xn--") {
		return wildcardPattern{}, false
	}
	prefix, suffix := label[:star], label[star+1:]
	if (prefix != "" || suffix != "") && flags&CheckNoPartialWildcards != 0 {
		return wildcardPattern{}, false
	}
	return wildcardPattern{prefix: prefix, suffix: suffix, tail: tail}, true
}

// matchWildcard reports whether host matches the decomposed wildcard
// pattern. The wildcard must consume at least one character and never
// crosses a label boundary unless CheckMultiLabelWildcards is set.
func matchWildcard(wp wildcardPattern, host string, flags CheckFlag) bool {
	if !strings.HasSuffix(host, "."+wp.tail) {
		return false
	}
	sub := host[:len(host)-len(wp.tail)-1]
	if len(sub) < len(wp.prefix)+len(wp.suffix)+1 {
		return false
	}
	if !strings.HasPrefix(sub, wp.prefix) || !strings.HasSuffix(sub, wp.suffix) {
		return false
	}
	consumed := sub[len(wp.prefix) : len(sub)-len(wp.suffix)]
	if flags&CheckMultiLabelWildcards == 0 && strings.Contains(consumed, ".") {
		return false
	}
	return true
}

// matchEmail compares addresses with a case-sensitive local part and a
// case-insensitive domain part. Email patterns carry no wildcards.
func matchEmail(pattern, addr string) bool {
	pi := strings.LastIndexByte(pattern, '@')
	ai := strings.LastIndexByte(addr, '@')
	if pi < 0 || ai < 0 {
		return false
	}
	return pattern[:pi] == addr[:ai] &&
		toLowerASCII(pattern[pi+1:]) == toLowerASCII(addr[ai+1:])
}

// validHostnameInput reports whether host is acceptable as a name
// argument per RFC 6125 2.2, with leniency for legacy deployments
// (underscores, trailing dot). A single leading dot marks a sub-domain
// name; the remainder must still be a valid hostname.
func validHostnameInput(host string) bool {
	host = strings.TrimSuffix(host, ".")
	host = strings.TrimPrefix(host, ".")
	if host == "" {
		return false
	}
	for _, part := range strings.Split(host, ".") {
		if part == "" {
			return false
		}
		for j, ch := range part {
			switch {
			case 'a' <= ch && ch <= 'z':
			case '0' <= ch && ch <= '9':
			case 'A' <= ch && ch <= 'Z':
			case ch == '-' && j != 0:
			case ch == '_':
				// Invalid in hostnames, common outside the WebPKI.
			default:
				return false
			}
		}
	}
	return true
}

// validEmailInput reports whether addr is well-formed enough to match:
// non-empty local and domain parts around a single terminal '@', no NULs.
func validEmailInput(addr string) bool {
	if strings.ContainsRune(addr, 0) {
		return false
	}
	at := strings.LastIndexByte(addr, '@')
	return at > 0 && at < len(addr)-1
}

// toLowerASCII lower-cases ASCII letters only, per RFC 6125 6.4.1;
// Unicode case folding on DNS labels invites sharp corners.
func toLowerASCII(in string) string {
	hasUpper := false
	for i := 0; i < len(in); i++ {
		if 'A' <= in[i] && in[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return in
	}
	out := []byte(in)
	for i, ch := range out {
		if 'A' <= ch && ch <= 'Z' {
			out[i] += 'a' - 'A'
		}
	}
	return string(out)
}
