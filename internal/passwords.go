package internal

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultPasswords returns the passwords tried by default when decrypting
// password-protected keys or PKCS#12/JKS containers. Returns a fresh copy
// each call.
func DefaultPasswords() []string {
	return []string{"", "password", "changeit", "keypassword"}
}

// LoadPasswordsFromFile loads passwords from a file, one password per line.
// Blank and whitespace-only lines are skipped.
func LoadPasswordsFromFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var passwords []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			passwords = append(passwords, pwd)
		}
	}
	return passwords, scanner.Err()
}

// ProcessPasswords merges the defaults, an explicit list, and an optional
// password file into one deduplicated candidate list, preserving order.
func ProcessPasswords(passwordList []string, passwordFile string) ([]string, error) {
	passwords := append(DefaultPasswords(), passwordList...)

	if passwordFile != "" {
		filePasswords, err := LoadPasswordsFromFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("loading passwords from file: %w", err)
		}
		passwords = append(passwords, filePasswords...)
	}

	seen := make(map[string]bool, len(passwords))
	unique := make([]string, 0, len(passwords))
	for _, pwd := range passwords {
		if !seen[pwd] {
			seen[pwd] = true
			unique = append(unique, pwd)
		}
	}
	return unique, nil
}
