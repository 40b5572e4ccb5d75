package main

import (
	"time"

	"github.com/urfave/cli/v2"
)

var makeoffer = cli.Command{
	Name:  "makeoffer",
	Usage: "lock an amount of an asset in exchange for an amount of another",
	Flags: []cli.Flag{
		&cli.Uint64Flag{
			Name:  "id",
			Usage: "the id of the offer, unique among your open offers. Defaults to the current unix time in milliseconds",
		},
		&cli.StringFlag{
			Name:     "asset_offered",
			Usage:    "the mint of the asset you offer",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "amount_offered",
			Usage:    "the amount you offer, in UI units",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "asset_wanted",
			Usage:    "the mint of the asset you want in exchange",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "amount_wanted",
			Usage:    "the amount you want in exchange, in UI units",
			Required: true,
		},
		&cli.DurationFlag{
			Name:  "duration",
			Usage: "the time before the offer expires",
			Value: 24 * time.Hour,
		},
	},
	Action: makeOfferAction,
}

func makeOfferAction(ctx *cli.Context) error {
	client, err := getTradeClient()
	if err != nil {
		return err
	}
	if _, err := client.identity(); err != nil {
		return err
	}

	id := ctx.Uint64("id")
	if id == 0 {
		id = uint64(time.Now().UnixMilli())
	}

	reply, err := client.post("/v1/offers", map[string]interface{}{
		"id":             id,
		"asset_offered":  ctx.String("asset_offered"),
		"amount_offered": ctx.String("amount_offered"),
		"asset_wanted":   ctx.String("asset_wanted"),
		"amount_wanted":  ctx.String("amount_wanted"),
		"expires_at":     time.Now().Add(ctx.Duration("duration")).Unix(),
	})
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}
