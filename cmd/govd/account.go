package main

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/calehh/gov-app/gov"
	"github.com/spf13/cobra"
)

type accountArguments struct {
	Url     string
	Address string
	Index   uint64
}

var accountArgs accountArguments

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Query an account by address or index",
	Args:  cobra.NoArgs,
	RunE:  accountRun,
}

func init() {
	urlFlag(accountCmd, &accountArgs.Url)
	accountCmd.Flags().StringVarP(&accountArgs.Address, "address", "a", "", "account address")
	accountCmd.Flags().Uint64VarP(&accountArgs.Index, "index", "i", 0, "account index")
}

func accountRun(cmd *cobra.Command, args []string) error {
	cli, err := newClient(accountArgs.Url)
	if err != nil {
		return err
	}
	var dat []byte
	if len(accountArgs.Address) > 0 {
		dat, err = hex.DecodeString(accountArgs.Address)
		if err != nil {
			return fmt.Errorf("invalid address %v: %w", accountArgs.Address, err)
		}
	} else {
		s := fmt.Sprintf("0%x", accountArgs.Index)
		if len(s)&1 == 1 {
			s = s[1:]
		}
		dat, _ = hex.DecodeString(s)
	}
	res, err := cli.ABCIQuery(cmd.Context(), "/accounts/", dat)
	if err != nil {
		return err
	}
	if res.Response.Code != gov.CodeOK {
		return errors.New("account not found")
	}
	fmt.Println(string(res.Response.Value))
	return nil
}
