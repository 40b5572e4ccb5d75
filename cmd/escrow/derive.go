package main

import (
	"strconv"

	"github.com/urfave/cli/v2"
)

var derive = cli.Command{
	Name:  "derive",
	Usage: "derive the offer and vault addresses of a maker's offer id",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "maker",
			Usage: "the identity of the maker, yours by default",
		},
		&cli.Uint64Flag{
			Name:     "id",
			Usage:    "the id of the offer",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "asset_offered",
			Usage: "the mint of the offered asset, to derive the vault address too",
		},
	},
	Action: deriveAction,
}

func deriveAction(ctx *cli.Context) error {
	client, err := getTradeClient()
	if err != nil {
		return err
	}

	maker := ctx.String("maker")
	if maker == "" {
		if maker, err = client.identity(); err != nil {
			return err
		}
	}

	reply, err := client.get("/v1/derive/offer", map[string]string{
		"maker": maker,
		"id":    strconv.FormatUint(ctx.Uint64("id"), 10),
		"asset": ctx.String("asset_offered"),
	})
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}
