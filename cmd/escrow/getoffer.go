package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var getoffer = cli.Command{
	Name:      "getoffer",
	Usage:     "get an offer, even if expired",
	ArgsUsage: "<offer address>",
	Action:    getOfferAction,
}

func getOfferAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	client, err := getTradeClient()
	if err != nil {
		return err
	}

	reply, err := client.get(fmt.Sprintf("/v1/offers/%s", ctx.Args().First()), nil)
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}
