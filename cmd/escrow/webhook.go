package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var webhook = cli.Command{
	Name:  "webhook",
	Usage: "manage the webhooks notified of offer events",
	Subcommands: []*cli.Command{
		{
			Name:  "add",
			Usage: "add a webhook registered for some event",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "endpoint",
					Usage:    "the endpoint where to notify the webhook",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "secret",
					Usage: "the eventual secret to authenticate requests",
				},
				&cli.StringFlag{
					Name:  "event",
					Usage: "OFFER_CREATED, OFFER_ACCEPTED, OFFER_CANCELLED or * for all",
					Value: "*",
				},
			},
			Action: addWebhookAction,
		},
		{
			Name:      "remove",
			Usage:     "remove a webhook",
			ArgsUsage: "<webhook id>",
			Action:    removeWebhookAction,
		},
		{
			Name:  "list",
			Usage: "list the webhooks, optionally filtered by event",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "event",
					Usage: "the event to filter hooks by",
				},
			},
			Action: listWebhooksAction,
		},
	},
}

func addWebhookAction(ctx *cli.Context) error {
	client, err := getOperatorClient()
	if err != nil {
		return err
	}

	reply, err := client.post("/v1/webhooks", map[string]string{
		"event":    ctx.String("event"),
		"endpoint": ctx.String("endpoint"),
		"secret":   ctx.String("secret"),
	})
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func removeWebhookAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	client, err := getOperatorClient()
	if err != nil {
		return err
	}

	id := ctx.Args().First()
	if _, err := client.delete(fmt.Sprintf("/v1/webhooks/%s", id)); err != nil {
		return err
	}

	fmt.Printf("webhook %s removed\n", id)
	return nil
}

func listWebhooksAction(ctx *cli.Context) error {
	client, err := getOperatorClient()
	if err != nil {
		return err
	}

	reply, err := client.get("/v1/webhooks", map[string]string{
		"event": ctx.String("event"),
	})
	if err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}
