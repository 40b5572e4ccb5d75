package main

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/tdex-network/escrowd/pkg/auth"
	"github.com/urfave/cli/v2"
)

var genkey = cli.Command{
	Name:  "genkey",
	Usage: "generate a new signing key and store it in the local state",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "force",
			Usage: "overwrite the current key",
		},
	},
	Action: genKeyAction,
}

func genKeyAction(ctx *cli.Context) error {
	if state, err := getState(); err == nil {
		if _, ok := state["key"]; ok && !ctx.Bool("force") {
			return errors.New("a key already exists, use --force to replace it")
		}
	}

	key, err := btcec.NewPrivateKey()
	if err != nil {
		return err
	}
	if err := setState(map[string]string{
		"key": hex.EncodeToString(key.Serialize()),
	}); err != nil {
		return err
	}

	fmt.Println(auth.Identity(key))
	return nil
}
