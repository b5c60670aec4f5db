package main

import (
	"fmt"
	"os"
)

func main() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(pubkeyCmd)
	rootCmd.AddCommand(proposeCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(advanceCmd)
	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(proposalCmd)
	rootCmd.AddCommand(proposalsCmd)
	rootCmd.AddCommand(tallyCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
