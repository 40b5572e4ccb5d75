package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
)

var takeoffer = cli.Command{
	Name:      "takeoffer",
	Usage:     "accept an open offer",
	ArgsUsage: "<offer address>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "amount_offered",
			Usage: "the amount of the offered asset you expect to receive, in UI units. Defaults to the current one",
		},
		&cli.StringFlag{
			Name:  "amount_wanted",
			Usage: "the amount of the wanted asset you agree to pay, in UI units. Defaults to the current one",
		},
	},
	Action: takeOfferAction,
}

func takeOfferAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}
	address := ctx.Args().First()

	client, err := getTradeClient()
	if err != nil {
		return err
	}
	if _, err := client.identity(); err != nil {
		return err
	}

	// The offer is settled only if it still swaps the amounts shown here.
	terms := map[string]string{
		"amount_offered": ctx.String("amount_offered"),
		"amount_wanted":  ctx.String("amount_wanted"),
	}
	if terms["amount_offered"] == "" || terms["amount_wanted"] == "" {
		reply, err := client.get(fmt.Sprintf("/v1/offers/%s", address), nil)
		if err != nil {
			return err
		}
		var offer map[string]interface{}
		if err := json.Unmarshal(reply, &offer); err != nil {
			return err
		}
		for k, v := range terms {
			if v == "" {
				terms[k], _ = offer[k].(string)
			}
		}
	}

	reply, err := client.post(fmt.Sprintf("/v1/offers/%s/accept", address), terms)
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}
