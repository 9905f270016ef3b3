package internal

import (
	"bytes"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	ctx509 "github.com/google/certificate-transparency-go/x509"
	"github.com/google/certificate-transparency-go/x509util"

	"github.com/sensiblebit/x509kit"
)

// Report holds the projected view of one certificate handle.
type Report struct {
	Subject    string   `json:"subject"`
	Issuer     string   `json:"issuer"`
	Serial     string   `json:"serial"`
	NotBefore  string   `json:"not_before"`
	NotAfter   string   `json:"not_after"`
	CA         bool     `json:"ca"`
	KeyUsage   []string `json:"key_usage,omitempty"`
	SANs       string   `json:"sans,omitempty"`
	InfoAccess string   `json:"info_access,omitempty"`
	SHA256     string   `json:"sha256_fingerprint"`
	SHA1       string   `json:"sha1_fingerprint"`
	SelfIssued bool     `json:"self_issued"`
}

// NewReport projects a certificate handle into a Report.
func NewReport(c *x509kit.Certificate) Report {
	r := Report{
		Subject:    c.Subject(),
		Issuer:     c.Issuer(),
		Serial:     c.SerialNumber(),
		NotBefore:  c.ValidFrom(),
		NotAfter:   c.ValidTo(),
		CA:         c.CheckCA(),
		SHA256:     c.Fingerprint256(),
		SHA1:       c.Fingerprint(),
		SelfIssued: c.CheckIssued(c),
	}
	if usage, ok := c.KeyUsage(); ok {
		r.KeyUsage = usage
	}
	if sans, ok := c.SubjectAltName(); ok {
		r.SANs = sans
	}
	if aia, ok := c.InfoAccess(); ok {
		r.InfoAccess = strings.TrimRight(aia, "\n")
	}
	return r
}

// ReportFile reads a file and returns one Report per certificate found,
// binding the decoded certificates to ctx. Container formats fall back in
// order: PEM/DER, PKCS#7, JKS, PKCS#12.
func ReportFile(ctx *x509kit.Context, path string, passwords []string) ([]Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	certs, err := DecodeAny(ctx, data, passwords)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	reports := make([]Report, len(certs))
	for i, c := range certs {
		reports[i] = NewReport(c)
	}
	return reports, nil
}

// DecodeAny decodes certificates from any supported encoding: PEM or DER
// first, then PKCS#7, JKS (magic bytes 0xFEEDFEED), and PKCS#12 with each
// candidate password. PEM input yields one handle per certificate block.
func DecodeAny(ctx *x509kit.Context, data []byte, passwords []string) ([]*x509kit.Certificate, error) {
	if bytes.Contains(data, []byte("-----BEGIN")) {
		var certs []*x509kit.Certificate
		rest := data
		for {
			block, remainder := pem.Decode(rest)
			if block == nil {
				break
			}
			rest = remainder
			if block.Type != "CERTIFICATE" && block.Type != "TRUSTED CERTIFICATE" {
				continue
			}
			c, err := x509kit.Parse(ctx, pem.EncodeToMemory(block))
			if err != nil {
				continue
			}
			certs = append(certs, c)
		}
		if len(certs) > 0 {
			return certs, nil
		}
	}

	if c, err := x509kit.Parse(ctx, data); err == nil {
		return []*x509kit.Certificate{c}, nil
	}

	if certs, err := x509kit.DecodePKCS7(ctx, data); err == nil {
		return certs, nil
	}

	if len(data) >= 4 && data[0] == 0xFE && data[1] == 0xED && data[2] == 0xFE && data[3] == 0xED {
		for _, password := range passwords {
			if certs, _, err := x509kit.DecodeJKS(ctx, data, password); err == nil {
				return certs, nil
			}
		}
	}

	for _, password := range passwords {
		_, leaf, caCerts, err := x509kit.DecodePKCS12(ctx, data, password)
		if err != nil {
			continue
		}
		return append([]*x509kit.Certificate{leaf}, caCerts...), nil
	}

	return nil, fmt.Errorf("no certificates found in any supported encoding")
}

// FormatReports renders reports as text or JSON.
func FormatReports(reports []Report, format string) (string, error) {
	switch format {
	case "text":
		return formatReportText(reports), nil
	case "json":
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use text or json)", format)
	}
}

func formatReportText(reports []Report) string {
	var sb strings.Builder
	for i, r := range reports {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Certificate:\n")
		fmt.Fprintf(&sb, "  Subject:     %s\n", r.Subject)
		if r.SANs != "" {
			fmt.Fprintf(&sb, "  SANs:        %s\n", r.SANs)
		}
		fmt.Fprintf(&sb, "  Issuer:      %s\n", r.Issuer)
		fmt.Fprintf(&sb, "  Serial:      %s\n", r.Serial)
		fmt.Fprintf(&sb, "  CA:          %t\n", r.CA)
		fmt.Fprintf(&sb, "  Not Before:  %s\n", r.NotBefore)
		fmt.Fprintf(&sb, "  Not After:   %s\n", r.NotAfter)
		if len(r.KeyUsage) > 0 {
			fmt.Fprintf(&sb, "  Key Usage:   %s\n", strings.Join(r.KeyUsage, ", "))
		}
		if r.InfoAccess != "" {
			for _, line := range strings.Split(r.InfoAccess, "\n") {
				fmt.Fprintf(&sb, "  AIA:         %s\n", line)
			}
		}
		fmt.Fprintf(&sb, "  SHA-256:     %s\n", r.SHA256)
		fmt.Fprintf(&sb, "  SHA-1:       %s\n", r.SHA1)
	}
	return sb.String()
}

// DumpText renders the certificate in the openssl x509 -text layout.
func DumpText(c *x509kit.Certificate) (string, error) {
	parsed, err := ctx509.ParseCertificate(c.Raw())
	if err != nil {
		return "", fmt.Errorf("parsing certificate for text dump: %w", err)
	}
	return x509util.CertificateToString(parsed), nil
}
