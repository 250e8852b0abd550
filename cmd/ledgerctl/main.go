package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"

	"github.com/Alecsis/py-chain/internal/client"
	"github.com/Alecsis/py-chain/internal/logging"
	"github.com/Alecsis/py-chain/internal/sign"
	"github.com/Alecsis/py-chain/internal/txpipe"
)

func main() {
	logging.ConfigureRuntime()
	log.Logger = log.Output(logging.Writer())

	app := cli.NewApp()
	app.Name = "ledgerctl"
	app.Usage = "sign and submit ledger transactions"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Value: defaultConfigPath, Usage: "client config path"},
		cli.StringFlag{Name: "node, n", Usage: "node base URL override"},
		cli.StringFlag{Name: "key, k", Usage: "key file override"},
	}
	app.Commands = []cli.Command{
		{
			Name:   "keygen",
			Usage:  "create the key file if missing and print its address",
			Action: keygen,
		},
		{
			Name:      "faucet",
			Usage:     "request tokens from the faucet account",
			ArgsUsage: "<amount>",
			Action: func(c *cli.Context) error {
				amount, err := amountArg(c, 0)
				if err != nil {
					return err
				}
				return submit(c, txpipe.Faucet{Amount: amount})
			},
		},
		{
			Name:      "transfer",
			Usage:     "send tokens to another address",
			ArgsUsage: "<to> <amount>",
			Action: func(c *cli.Context) error {
				to := c.Args().Get(0)
				if to == "" {
					return cli.NewExitError("recipient address is required", 2)
				}
				amount, err := amountArg(c, 1)
				if err != nil {
					return err
				}
				return submit(c, txpipe.Transfer{To: to, Amount: amount})
			},
		},
		{
			Name:      "burn",
			Usage:     "destroy tokens held by the signing key",
			ArgsUsage: "<amount>",
			Action: func(c *cli.Context) error {
				amount, err := amountArg(c, 0)
				if err != nil {
					return err
				}
				return submit(c, txpipe.Burn{Amount: amount})
			},
		},
		{
			Name:      "balance",
			Usage:     "show the balance of an address (default: own address)",
			ArgsUsage: "[address]",
			Action: func(c *cli.Context) error {
				address, err := addressArg(c)
				if err != nil {
					return err
				}
				return query(c, txpipe.BalanceQuery{Address: address})
			},
		},
		{
			Name:      "sequence",
			Usage:     "show the next sequence number of an address (default: own address)",
			ArgsUsage: "[address]",
			Action: func(c *cli.Context) error {
				address, err := addressArg(c)
				if err != nil {
					return err
				}
				return query(c, txpipe.SequenceQuery{Address: address})
			},
		},
		{
			Name:   "supply",
			Usage:  "show total and maximum supply",
			Action: func(c *cli.Context) error { return query(c, txpipe.SupplyQuery{}) },
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)
		os.Exit(1)
	}
}

func resolveConfig(c *cli.Context) (clientConfig, error) {
	cfg, err := loadClientConfig(c.GlobalString("config"), c.GlobalIsSet("config"))
	if err != nil {
		return clientConfig{}, err
	}
	if v := c.GlobalString("node"); v != "" {
		cfg.Node = v
	}
	if v := c.GlobalString("key"); v != "" {
		cfg.KeyFile = v
	}
	return cfg, nil
}

func keygen(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	key, err := sign.LoadOrCreateKey(cfg.KeyFile)
	if err != nil {
		return err
	}
	fmt.Println(key.Address())
	return nil
}

func newClient(c *cli.Context, withKey bool) (*client.Client, error) {
	cfg, err := resolveConfig(c)
	if err != nil {
		return nil, err
	}
	var key *sign.PrivateKey
	if withKey {
		if key, err = sign.LoadOrCreateKey(cfg.KeyFile); err != nil {
			return nil, err
		}
	}
	return client.New(cfg.Node, key, cfg.Timeout), nil
}

func submit(c *cli.Context, req txpipe.Request) error {
	cl, err := newClient(c, true)
	if err != nil {
		return err
	}
	res, err := cl.Submit(context.Background(), req)
	if err != nil {
		return err
	}
	return printResult(res)
}

func query(c *cli.Context, req txpipe.Request) error {
	cl, err := newClient(c, false)
	if err != nil {
		return err
	}
	res, err := cl.Query(context.Background(), req)
	if err != nil {
		return err
	}
	return printResult(res)
}

// addressArg falls back to the address of the configured key.
func addressArg(c *cli.Context) (string, error) {
	if address := c.Args().First(); address != "" {
		return address, nil
	}
	cfg, err := resolveConfig(c)
	if err != nil {
		return "", err
	}
	key, err := sign.LoadOrCreateKey(cfg.KeyFile)
	if err != nil {
		return "", err
	}
	return key.Address(), nil
}

func amountArg(c *cli.Context, i int) (int64, error) {
	raw := c.Args().Get(i)
	if raw == "" {
		return 0, cli.NewExitError("amount is required", 2)
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, cli.NewExitError(fmt.Sprintf("amount %q is not an integer", raw), 2)
	}
	return amount, nil
}

func printResult(res txpipe.Result) error {
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if !res.Success {
		return cli.NewExitError(res.Error, 1)
	}
	return nil
}
