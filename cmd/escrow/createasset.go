package main

import (
	"github.com/urfave/cli/v2"
)

var createasset = cli.Command{
	Name:  "createasset",
	Usage: "register a new asset and mint its supply to yourself",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "name",
			Usage:    "the name of the asset",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "symbol",
			Usage:    "the ticker of the asset",
			Required: true,
		},
		&cli.UintFlag{
			Name:  "decimals",
			Usage: "the precision of the asset, in range [0, 9]",
			Value: 9,
		},
		&cli.StringFlag{
			Name:     "supply",
			Usage:    "the amount to mint, in UI units",
			Required: true,
		},
	},
	Action: createAssetAction,
}

func createAssetAction(ctx *cli.Context) error {
	client, err := getTradeClient()
	if err != nil {
		return err
	}
	if _, err := client.identity(); err != nil {
		return err
	}

	reply, err := client.post("/v1/assets", map[string]interface{}{
		"name":     ctx.String("name"),
		"symbol":   ctx.String("symbol"),
		"decimals": ctx.Uint("decimals"),
		"supply":   ctx.String("supply"),
	})
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}
