package main

import "github.com/spf13/cobra"

const (
	FlagHome      = "home"
	FlagChainID   = "chain-id"
	FlagOverwrite = "overwrite"
	FlagMoniker   = "moniker"
)

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, "url", "u", "http://127.0.0.1:26657", "govd rpc url")
}

func keyFlag(cmd *cobra.Command, skey *string) {
	cmd.Flags().StringVarP(skey, "skeyPath", "s", "./config/priv_validator_key.json", "private key path")
}

func proposalFlag(cmd *cobra.Command, proposal *string) {
	cmd.Flags().StringVarP(proposal, "proposal", "p", "", "proposal id (hex)")
	_ = cmd.MarkFlagRequired("proposal")
}
