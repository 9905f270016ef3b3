package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sensiblebit/x509kit"
	"github.com/sensiblebit/x509kit/internal"
)

var (
	inspectFormat string
	inspectDump   bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Display certificate information",
	Long:  "Show detailed information about the certificates in a file. Supports PEM, DER, PKCS#7, PKCS#12, and JKS input.",
	Example: `  x509kit inspect cert.pem
  x509kit inspect bundle.p7b --format json
  x509kit inspect cert.pem --dump`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "auto", "Output format: text, json, or auto (text on terminals)")
	inspectCmd.Flags().BoolVar(&inspectDump, "dump", false, "Print the full openssl-style text dump instead of the summary")
	mustCompleteFlag(inspectCmd, "format", completeValues("text", "json", "auto"))
}

// resolveFormat maps "auto" to text on interactive terminals and JSON
// otherwise, so piped output stays machine-readable.
func resolveFormat(format string) string {
	if format != "auto" {
		return format
	}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return "text"
	}
	return "json"
}

func runInspect(cmd *cobra.Command, args []string) error {
	passwords, err := internal.ProcessPasswords(passwordList, passwordFile)
	if err != nil {
		return fmt.Errorf("loading passwords: %w", err)
	}

	ctx := x509kit.NewContext()
	defer ctx.Close()

	if inspectDump {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		certs, err := internal.DecodeAny(ctx, data, passwords)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", args[0], err)
		}
		for _, c := range certs {
			text, err := internal.DumpText(c)
			if err != nil {
				return err
			}
			fmt.Print(text)
		}
		return nil
	}

	reports, err := internal.ReportFile(ctx, args[0], passwords)
	if err != nil {
		return err
	}
	output, err := internal.FormatReports(reports, resolveFormat(inspectFormat))
	if err != nil {
		return err
	}
	fmt.Print(output)
	return nil
}
