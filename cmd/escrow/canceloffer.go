package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var canceloffer = cli.Command{
	Name:      "canceloffer",
	Usage:     "close an offer and return the locked funds to its maker",
	ArgsUsage: "<offer address>",
	Action:    cancelOfferAction,
}

func cancelOfferAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	client, err := getTradeClient()
	if err != nil {
		return err
	}
	if _, err := client.identity(); err != nil {
		return err
	}

	reply, err := client.post(
		fmt.Sprintf("/v1/offers/%s/cancel", ctx.Args().First()), nil,
	)
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}
