package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// completionFunc is the signature cobra expects for flag value completion.
type completionFunc = func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective)

// mustCompleteFlag wires fn as the completion source for one of cmd's
// flags. It panics if the flag does not exist (programmer error).
func mustCompleteFlag(cmd *cobra.Command, flag string, fn completionFunc) {
	if err := cmd.RegisterFlagCompletionFunc(flag, fn); err != nil {
		panic(fmt.Sprintf("%s --%s: %v", cmd.Name(), flag, err))
	}
}

// completeValues suggests a fixed value set with no file fallback.
func completeValues(values ...string) completionFunc {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeFiles defers to the shell's default file completion.
func completeFiles(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveDefault
}
