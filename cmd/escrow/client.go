package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/go-resty/resty/v2"
	"github.com/tdex-network/escrowd/pkg/auth"
)

const requestTimeout = 30 * time.Second

type client struct {
	http *resty.Client
	key  *btcec.PrivateKey
}

func newClient(baseURL string, key *btcec.PrivateKey) *client {
	return &client{
		http: resty.New().SetBaseURL(baseURL).SetTimeout(requestTimeout),
		key:  key,
	}
}

// getTradeClient returns a client for the trade interface, able to sign
// requests if a key is stored in the state.
func getTradeClient() (*client, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	url, ok := state["daemon_url"]
	if !ok {
		return nil, errors.New("set daemon_url with `config set daemon_url`")
	}

	var key *btcec.PrivateKey
	if keyHex, ok := state["key"]; ok {
		if key, err = parseKey(keyHex); err != nil {
			return nil, err
		}
	}
	return newClient(url, key), nil
}

func getOperatorClient() (*client, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	url, ok := state["operator_url"]
	if !ok {
		return nil, errors.New("set operator_url with `config set operator_url`")
	}
	return newClient(url, nil), nil
}

func parseKey(keyHex string) (*btcec.PrivateKey, error) {
	buf, err := hex.DecodeString(keyHex)
	if err != nil || len(buf) != btcec.PrivKeyBytesLen {
		return nil, errors.New("invalid key in state, run `genkey` again")
	}
	key, _ := btcec.PrivKeyFromBytes(buf)
	return key, nil
}

func (c *client) identity() (string, error) {
	if c.key == nil {
		return "", errors.New("missing key, run `genkey` first")
	}
	return auth.Identity(c.key), nil
}

func (c *client) get(path string, query map[string]string) ([]byte, error) {
	resp, err := c.http.R().SetQueryParams(query).Get(path)
	if err != nil {
		return nil, err
	}
	return parseResponse(resp)
}

func (c *client) delete(path string) ([]byte, error) {
	resp, err := c.http.R().Delete(path)
	if err != nil {
		return nil, err
	}
	return parseResponse(resp)
}

// post sends the body as JSON. If the client has a key, the request is
// signed with it.
func (c *client) post(path string, body interface{}) ([]byte, error) {
	payload := []byte{}
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	req := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload)
	if c.key != nil {
		sig, ts := auth.Sign(c.key, "POST", path, payload)
		req.SetHeader(auth.PubkeyHeader, auth.Identity(c.key))
		req.SetHeader(auth.SignatureHeader, sig)
		req.SetHeader(auth.TimestampHeader, ts)
	}

	resp, err := req.Post(path)
	if err != nil {
		return nil, err
	}
	return parseResponse(resp)
}

func parseResponse(resp *resty.Response) ([]byte, error) {
	if resp.IsSuccess() {
		return resp.Body(), nil
	}

	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &errResp); err != nil || errResp.Error == "" {
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode())
	}
	return nil, fmt.Errorf("%s: %s", errResp.Error, errResp.Message)
}
