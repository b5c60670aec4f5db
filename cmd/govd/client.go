package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/calehh/gov-app/app"
	"github.com/calehh/gov-app/crypto"
	"github.com/calehh/gov-app/gov"
	"github.com/calehh/gov-app/state"
	"github.com/calehh/gov-app/tx"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"
)

type txArguments struct {
	Url    string
	Skey   string
	Nonce  uint64
	NoSend bool
}

func txFlags(cmd *cobra.Command, args *txArguments) {
	urlFlag(cmd, &args.Url)
	keyFlag(cmd, &args.Skey)
	cmd.Flags().Uint64VarP(&args.Nonce, "nonce", "n", 0, "account nonce, queried from the chain when not set")
	cmd.Flags().BoolVarP(&args.NoSend, "nosend", "", false, "print the signed transaction instead of sending it")
}

func newClient(url string) (*http.HTTP, error) {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	return cli, nil
}

// queryAccount returns nil when the chain has never seen address.
func queryAccount(ctx context.Context, cli *http.HTTP, address []byte) (*state.Account, error) {
	res, err := cli.ABCIQuery(ctx, "/accounts/", address)
	if err != nil {
		return nil, err
	}
	if res.Response.Code == app.CodeQueryNotFound {
		return nil, nil
	}
	if res.Response.Code != gov.CodeOK {
		return nil, fmt.Errorf("query account: code %d %s", res.Response.Code, res.Response.Log)
	}
	var act state.Account
	if err = act.UnmarshalJSON(res.Response.Value); err != nil {
		return nil, err
	}
	return &act, nil
}

// sendTx signs body with the key file and broadcasts it.
func sendTx(cmd *cobra.Command, args *txArguments, txType tx.GovTxType, body any) error {
	ctx := cmd.Context()
	cli, err := newClient(args.Url)
	if err != nil {
		return err
	}
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis: %w", err)
	}
	chainId := gres.Genesis.ChainID
	pv, err := crypto.LoadFilePV(args.Skey)
	if err != nil {
		return err
	}
	nonce := args.Nonce
	if !cmd.Flags().Changed("nonce") {
		addr, _ := hex.DecodeString(pv.Address())
		act, err := queryAccount(ctx, cli, addr)
		if err != nil {
			return err
		}
		if act != nil {
			nonce = act.Nonce
		}
	}
	btx := &tx.GovTx{
		Version: tx.GovTxVersion0,
		Type:    txType,
		Nonce:   nonce,
		Tx:      body,
	}
	if err = pv.SignTx(btx, chainId); err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	dat, err := tx.MarshalGovTx(btx)
	if err != nil {
		return err
	}
	if args.NoSend {
		fmt.Println(string(dat))
		return nil
	}
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx: %w", err)
	}
	out, _ := json.Marshal(res)
	fmt.Println(string(out))
	if res.Code != gov.CodeOK {
		return fmt.Errorf("tx rejected: code %d %s", res.Code, res.Log)
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
