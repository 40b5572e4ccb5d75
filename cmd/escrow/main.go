package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/urfave/cli/v2"
)

var (
	escrowDataDir = btcutil.AppDataDir("escrow-cli", false)
	statePath     = filepath.Join(escrowDataDir, "state.json")
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "escrow CLI"
	app.Usage = "Command line interface for escrowd users and operators"
	app.Commands = append(
		app.Commands,
		&config,
		&genkey,
		&createasset,
		&holdings,
		&makeoffer,
		&takeoffer,
		&canceloffer,
		&listoffers,
		&getoffer,
		&derive,
		&webhook,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func getState() (map[string]string, error) {
	data := map[string]string{}

	file, err := os.ReadFile(statePath)
	if err != nil {
		return nil, errors.New("get config state error: try 'config init'")
	}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("corrupted state file %s: %w", statePath, err)
	}

	return data, nil
}

func setState(data map[string]string) error {
	if err := os.MkdirAll(escrowDataDir, os.ModeDir|0755); err != nil {
		return err
	}

	currentData, err := getState()
	if err != nil {
		currentData = map[string]string{}
	}

	jsonString, err := json.Marshal(merge(currentData, data))
	if err != nil {
		return err
	}
	if err := os.WriteFile(statePath, jsonString, 0600); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func merge(maps ...map[string]string) map[string]string {
	merge := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merge[k] = v
		}
	}
	return merge
}

func printRespJSON(resp []byte) {
	var out interface{}
	if err := json.Unmarshal(resp, &out); err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}
	jsonStr, err := json.MarshalIndent(out, "", "\t")
	if err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}
	fmt.Println(string(jsonStr))
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[escrow] %v\n", err)
	}
	os.Exit(1)
}
