package main

import (
	"encoding/json"
	"fmt"

	"github.com/calehh/gov-app/app"
	"github.com/calehh/gov-app/gov"
	gov_types "github.com/calehh/gov-app/types"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var queryUrl string

var proposalCmd = &cobra.Command{
	Use:   "proposal <id>",
	Short: "Show a proposal with its comments",
	Args:  cobra.ExactArgs(1),
	RunE:  proposalRun,
}

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "List proposal ids in submission order",
	Args:  cobra.NoArgs,
	RunE:  proposalsRun,
}

var tallyCmd = &cobra.Command{
	Use:   "tally <id>",
	Short: "Show the ballots counted on a proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  tallyRun,
}

func init() {
	urlFlag(proposalCmd, &queryUrl)
	urlFlag(proposalsCmd, &queryUrl)
	urlFlag(tallyCmd, &queryUrl)
}

func query(cmd *cobra.Command, path string, data []byte) ([]byte, error) {
	cli, err := http.New(queryUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	res, err := cli.ABCIQuery(cmd.Context(), path, data)
	if err != nil {
		return nil, err
	}
	if res.Response.Code != gov.CodeOK {
		return nil, fmt.Errorf("query %s: code %d %s", path, res.Response.Code, res.Response.Log)
	}
	return res.Response.Value, nil
}

type commentView struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

type proposalView struct {
	ID       common.Hash   `json:"id"`
	Index    uint64        `json:"index"`
	Author   string        `json:"author"`
	Stage    string        `json:"stage"`
	Category string        `json:"category"`
	Title    string        `json:"title"`
	Contents string        `json:"contents"`
	Comments []commentView `json:"comments"`
	Height   uint64        `json:"height"`
	Outcome  string        `json:"outcome"`
}

func newProposalView(rec *gov_types.ProposalRecord) proposalView {
	v := proposalView{
		ID:       rec.ID,
		Index:    rec.Index,
		Author:   rec.Author.String(),
		Stage:    rec.Stage.String(),
		Category: rec.Category.String(),
		Title:    string(rec.Title),
		Contents: string(rec.Contents),
		Comments: make([]commentView, 0, len(rec.Comments)),
		Height:   rec.Height,
		Outcome:  rec.Outcome.String(),
	}
	for _, c := range rec.Comments {
		v.Comments = append(v.Comments, commentView{Author: c.Author.String(), Text: string(c.Text)})
	}
	return v
}

func proposalRun(cmd *cobra.Command, args []string) error {
	id, err := gov_types.ParseProposalID(args[0])
	if err != nil {
		return err
	}
	dat, err := query(cmd, "/proposal/", id.Bytes())
	if err != nil {
		return err
	}
	rec, err := gov_types.UnmarshalProposalRecord(dat)
	if err != nil {
		return err
	}
	return printJSON(newProposalView(rec))
}

func proposalsRun(cmd *cobra.Command, args []string) error {
	dat, err := query(cmd, "/proposals/", nil)
	if err != nil {
		return err
	}
	var ids []common.Hash
	if err = json.Unmarshal(dat, &ids); err != nil {
		return err
	}
	return printJSON(ids)
}

func tallyRun(cmd *cobra.Command, args []string) error {
	id, err := gov_types.ParseProposalID(args[0])
	if err != nil {
		return err
	}
	dat, err := query(cmd, "/tally/", id.Bytes())
	if err != nil {
		return err
	}
	var t app.TallyResult
	if err = json.Unmarshal(dat, &t); err != nil {
		return err
	}
	return printJSON(struct {
		app.TallyResult
		Outcome string `json:"outcome"`
	}{t, t.Outcome.String()})
}
