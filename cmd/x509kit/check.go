package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/x509kit"
	"github.com/sensiblebit/x509kit/internal"
)

var (
	checkHosts    []string
	checkEmails   []string
	checkIPs      []string
	checkFlags    []string
	checkProfiles string
	checkProfile  string
)

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Check certificate identities",
	Long:  "Check whether a certificate covers the given hostnames, email addresses, or IP addresses. Names can come from flags or from a named profile in a YAML file.",
	Example: `  x509kit check cert.pem --host www.example.com
  x509kit check cert.pem --host api.example.com --flag no-wildcards
  x509kit check cert.pem --profiles checks.yaml --profile production`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringArrayVar(&checkHosts, "host", nil, "Hostname the certificate must cover (repeatable)")
	checkCmd.Flags().StringArrayVar(&checkEmails, "email", nil, "Email address the certificate must cover (repeatable)")
	checkCmd.Flags().StringArrayVar(&checkIPs, "ip", nil, "IP address the certificate must cover (repeatable)")
	checkCmd.Flags().StringArrayVar(&checkFlags, "flag", nil, "Matching flag (repeatable)")
	checkCmd.Flags().StringVar(&checkProfiles, "profiles", "", "YAML file with named check profiles")
	checkCmd.Flags().StringVar(&checkProfile, "profile", "", "Profile name to run from the --profiles file")
	mustCompleteFlag(checkCmd, "flag", completeValues(internal.FlagNames()...))
	mustCompleteFlag(checkCmd, "profiles", completeFiles)
}

func runCheck(cmd *cobra.Command, args []string) error {
	hosts, emails, ips := checkHosts, checkEmails, checkIPs
	flagList := checkFlags

	if checkProfile != "" {
		if checkProfiles == "" {
			return errors.New("--profile requires --profiles")
		}
		profiles, err := internal.LoadCheckProfiles(checkProfiles)
		if err != nil {
			return fmt.Errorf("loading check profiles: %w", err)
		}
		profile, err := internal.FindProfile(profiles, checkProfile)
		if err != nil {
			return err
		}
		hosts = append(hosts, profile.Hosts...)
		emails = append(emails, profile.Emails...)
		ips = append(ips, profile.IPs...)
		flagList = append(flagList, profile.Flags...)
	}
	if len(hosts)+len(emails)+len(ips) == 0 {
		return errors.New("nothing to check: give --host, --email, --ip, or a profile")
	}

	flags, err := internal.FlagsFromNames(flagList)
	if err != nil {
		return err
	}

	ctx := x509kit.NewContext()
	defer ctx.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	cert, err := x509kit.Parse(ctx, data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}
	defer cert.Close()

	failures := 0
	report := func(kind, name, matched string, ok bool, err error) {
		switch {
		case err != nil:
			fmt.Printf("%-5s %-40s INVALID (%v)\n", kind, name, err)
			failures++
		case ok:
			fmt.Printf("%-5s %-40s MATCH (%s)\n", kind, name, matched)
		default:
			fmt.Printf("%-5s %-40s NO MATCH\n", kind, name)
			failures++
		}
	}

	for _, host := range hosts {
		matched, ok, err := cert.CheckHost(host, flags)
		report("host", host, matched, ok, err)
	}
	for _, email := range emails {
		matched, ok, err := cert.CheckEmail(email, flags)
		report("email", email, matched, ok, err)
	}
	for _, ip := range ips {
		matched, ok, err := cert.CheckIP(ip, flags)
		report("ip", ip, matched, ok, err)
	}

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}
	return nil
}
