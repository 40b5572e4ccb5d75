package main

import (
	"strconv"

	"github.com/urfave/cli/v2"
)

var listoffers = cli.Command{
	Name:  "listoffers",
	Usage: "list open offers",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "filter",
			Usage: "match offers by maker, asset mint or symbol",
		},
		&cli.IntFlag{
			Name:  "page",
			Usage: "the page number",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "size",
			Usage: "the page size",
			Value: 10,
		},
	},
	Action: listOffersAction,
}

func listOffersAction(ctx *cli.Context) error {
	client, err := getTradeClient()
	if err != nil {
		return err
	}

	reply, err := client.get("/v1/offers", map[string]string{
		"filter": ctx.String("filter"),
		"page":   strconv.Itoa(ctx.Int("page")),
		"size":   strconv.Itoa(ctx.Int("size")),
	})
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}
