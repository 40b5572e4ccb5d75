package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"
)

var (
	daemonURLFlag = cli.StringFlag{
		Name:  "daemon_url",
		Usage: "url of the escrowd trade interface",
		Value: "http://localhost:9945",
	}

	operatorURLFlag = cli.StringFlag{
		Name:  "operator_url",
		Usage: "url of the escrowd operator interface",
		Value: "http://localhost:9000",
	}
)

var config = cli.Command{
	Name:   "config",
	Usage:  "Print local configuration of the escrow CLI",
	Action: configAction,
	Subcommands: []*cli.Command{
		{
			Name:   "set",
			Usage:  "set a <key> <value> in the local state",
			Action: configSetAction,
		},
		{
			Name:   "init",
			Usage:  "initialize the local state with flags",
			Action: configInitAction,
			Flags: []cli.Flag{
				&daemonURLFlag,
				&operatorURLFlag,
			},
		},
	},
}

func configAction(ctx *cli.Context) error {
	state, err := getState()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(state))
	for key := range state {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := state[key]
		if key == "key" {
			value = "********"
		}
		fmt.Println(key + ": " + value)
	}
	return nil
}

func configInitAction(c *cli.Context) error {
	return setState(map[string]string{
		"daemon_url":   c.String("daemon_url"),
		"operator_url": c.String("operator_url"),
	})
}

func configSetAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return errors.New("key and value are missing")
	}

	key := c.Args().Get(0)
	value := c.Args().Get(1)

	if key == "key" {
		if _, err := parseKey(value); err != nil {
			return err
		}
	}
	if err := setState(map[string]string{key: value}); err != nil {
		return err
	}

	fmt.Printf("%s has been set\n", key)
	return nil
}
