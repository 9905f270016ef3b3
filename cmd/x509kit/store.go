package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/x509kit"
	"github.com/sensiblebit/x509kit/internal"
	"github.com/sensiblebit/x509kit/internal/certstore"
)

var storeDBPath string

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the certificate catalog",
	Long:  "Ingest certificates into a SQLite catalog keyed by SHA-256 fingerprint, and list or retrieve what is cataloged.",
}

var storeIngestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Ingest certificates into the catalog",
	Long:  "Scan files, directories, and archives (zip, tar, tar.gz) for certificates in any supported encoding and add them to the catalog.",
	Example: `  x509kit store ingest --db certs.db ./pki/
  x509kit store ingest --db certs.db bundle.p7b certs.tar.gz`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStoreIngest,
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cataloged certificates",
	Args:  cobra.NoArgs,
	RunE:  runStoreList,
}

var storeGetCmd = &cobra.Command{
	Use:   "get <sha256-fingerprint>",
	Short: "Print a cataloged certificate as PEM",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreGet,
}

func init() {
	storeCmd.PersistentFlags().StringVarP(&storeDBPath, "db", "d", "", "SQLite database path (default: in-memory)")
	storeCmd.AddCommand(storeIngestCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeGetCmd)
}

// ingestData decodes certificates from data and puts each one in the
// catalog. Handles the decoded certificates close immediately; the
// catalog keeps the PEM.
func ingestData(ctx *x509kit.Context, catalog *certstore.Catalog, data []byte, path string, passwords []string) (int, error) {
	certs, err := internal.DecodeAny(ctx, data, passwords)
	if err != nil {
		return 0, err
	}
	stored := 0
	for _, c := range certs {
		if err := catalog.Put(c); err != nil {
			slog.Warn("cataloging certificate", "path", path, "error", err)
		} else {
			stored++
		}
		c.Close()
	}
	return stored, nil
}

func ingestPath(ctx *x509kit.Context, catalog *certstore.Catalog, path string, passwords []string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	if format := internal.ArchiveFormat(path); format != "" {
		stored := 0
		_, err := internal.WalkArchive(internal.WalkArchiveInput{
			ArchivePath: path,
			Data:        data,
			Format:      format,
			Limits:      internal.DefaultArchiveLimits(),
			Handle: func(entry []byte, virtualPath string) error {
				n, err := ingestData(ctx, catalog, entry, virtualPath, passwords)
				stored += n
				return err
			},
		})
		return stored, err
	}

	return ingestData(ctx, catalog, data, path, passwords)
}

func runStoreIngest(cmd *cobra.Command, args []string) error {
	passwords, err := internal.ProcessPasswords(passwordList, passwordFile)
	if err != nil {
		return fmt.Errorf("loading passwords: %w", err)
	}

	catalog, err := certstore.Open(storeDBPath)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer catalog.Close()

	ctx := x509kit.NewContext()
	defer ctx.Close()

	stored := 0
	for _, input := range args {
		info, err := os.Stat(input)
		if err != nil {
			return fmt.Errorf("input path %s: %w", input, err)
		}
		if !info.IsDir() {
			n, err := ingestPath(ctx, catalog, input, passwords)
			if err != nil {
				slog.Warn("ingesting file", "path", input, "error", err)
			}
			stored += n
			continue
		}
		err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			n, err := ingestPath(ctx, catalog, path, passwords)
			if err != nil {
				slog.Debug("skipping file", "path", path, "error", err)
			}
			stored += n
			return nil
		})
		if err != nil {
			return fmt.Errorf("walking %s: %w", input, err)
		}
	}

	total, err := catalog.Count()
	if err != nil {
		return err
	}
	fmt.Printf("Stored %d certificate(s); catalog now holds %d\n", stored, total)
	return nil
}

func runStoreList(cmd *cobra.Command, args []string) error {
	catalog, err := certstore.Open(storeDBPath)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer catalog.Close()

	records, err := catalog.List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("catalog is empty")
		return nil
	}
	for _, r := range records {
		kind := "leaf"
		if r.IsCA {
			kind = "ca"
		}
		fmt.Printf("%s  %-4s  expires %s  %s\n",
			r.Fingerprint, kind, r.NotAfter.Format(time.RFC3339), r.Subject)
	}
	return nil
}

func runStoreGet(cmd *cobra.Command, args []string) error {
	catalog, err := certstore.Open(storeDBPath)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer catalog.Close()

	ctx := x509kit.NewContext()
	defer ctx.Close()

	cert, err := catalog.GetByFingerprint(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Print(cert.PEM())
	return nil
}
