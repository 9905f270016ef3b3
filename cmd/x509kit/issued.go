package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/x509kit"
)

var issuedRoot bool

var issuedCmd = &cobra.Command{
	Use:   "issued <cert> [issuer]",
	Short: "Test an issuer relationship",
	Long:  "Test whether the second certificate is the direct issuer of the first, checking both the name/key-identifier relationship and the signature. With --root, search the embedded Mozilla root store for the issuer instead.",
	Example: `  x509kit issued leaf.pem ca.pem
  x509kit issued leaf.pem --root`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runIssued,
}

func init() {
	issuedCmd.Flags().BoolVar(&issuedRoot, "root", false, "Search the embedded Mozilla root store for the issuer")
}

func loadCert(ctx *x509kit.Context, path string) (*x509kit.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cert, err := x509kit.Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cert, nil
}

func runIssued(cmd *cobra.Command, args []string) error {
	ctx := x509kit.NewContext()
	defer ctx.Close()

	cert, err := loadCert(ctx, args[0])
	if err != nil {
		return err
	}

	if issuedRoot {
		if len(args) > 1 {
			return fmt.Errorf("--root and an explicit issuer are mutually exclusive")
		}
		root, ok, err := x509kit.FindRootIssuer(ctx, cert)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no embedded root issued this certificate")
			return fmt.Errorf("issuer not found")
		}
		fmt.Printf("issued by root: %s\n", root.Subject())
		fmt.Printf("  SHA-256: %s\n", root.Fingerprint256())
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("give an issuer certificate or --root")
	}
	issuer, err := loadCert(ctx, args[1])
	if err != nil {
		return err
	}

	if !cert.CheckIssued(issuer) {
		fmt.Println("not issued: issuer/subject relationship does not hold")
		return fmt.Errorf("issuer check failed")
	}
	ok, err := cert.Verify(issuer.PublicKey())
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("not issued: signature does not verify under the issuer key")
		return fmt.Errorf("signature check failed")
	}
	fmt.Printf("issued by: %s\n", issuer.Subject())
	return nil
}
