package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var holdings = cli.Command{
	Name:  "holdings",
	Usage: "list the holdings of an account, yours by default",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "owner",
			Usage: "the identity of the account",
		},
	},
	Action: holdingsAction,
}

func holdingsAction(ctx *cli.Context) error {
	client, err := getTradeClient()
	if err != nil {
		return err
	}

	owner := ctx.String("owner")
	if owner == "" {
		if owner, err = client.identity(); err != nil {
			return err
		}
	}

	reply, err := client.get(fmt.Sprintf("/v1/accounts/%s/holdings", owner), nil)
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}
