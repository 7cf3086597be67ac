package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/vitwit/circular"
	"github.com/vitwit/circular/config"
	"github.com/vitwit/circular/types"
	"github.com/vitwit/circular/utils"
)

func main() {
	app := &cli.App{
		Name:  "circular",
		Usage: "Command line client for the Circular NAG gateway",
		Description: `Derive keys, register wallets, send transactions and query chain state
through a Circular NAG gateway.

Settings come from --config (YAML), CIRCULAR_* environment variables and the flags
below, in increasing order of precedence.`,
		Version: types.DefaultVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a YAML config file",
			},
			&cli.StringFlag{
				Name:  "gateway-url",
				Usage: "NAG gateway URL, operation names are appended to it",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); empty disables logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "keys",
				Usage: "Key management",
				Subcommands: []*cli.Command{
					{
						Name:  "derive",
						Usage: "Derive the key pair of a seed phrase",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "seed",
								Usage:    "Seed phrase",
								Required: true,
								EnvVars:  []string{"CIRCULAR_SEED"},
							},
						},
						Action: deriveKeysCommand,
					},
					{
						Name:  "new",
						Usage: "Generate a BIP-39 seed phrase and derive its key pair",
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  "bits",
								Usage: "Entropy size in bits (128 to 256, multiple of 32)",
								Value: 128,
							},
						},
						Action: newKeysCommand,
					},
				},
			},
			{
				Name:  "register-wallet",
				Usage: "Register the wallet of a private key",
				Flags: append([]cli.Flag{
					blockchainFlag(),
					privateKeyFlag(),
				}, waitFlag()),
				Action: registerWalletCommand,
			},
			{
				Name:  "send",
				Usage: "Send an asset to another wallet",
				Flags: append([]cli.Flag{
					blockchainFlag(),
					privateKeyFlag(),
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Recipient wallet address",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "amount",
						Usage:    "Amount to send",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "asset",
						Usage: "Asset name",
						Value: "CIRC",
					},
					&cli.StringFlag{
						Name:  "memo",
						Usage: "Free text attached to the transfer",
					},
					&cli.StringFlag{
						Name:  "nonce",
						Usage: "Transaction nonce; read from the gateway when empty",
					},
				}, waitFlag()),
				Action: sendCommand,
			},
			{
				Name:  "outcome",
				Usage: "Wait until a transaction is confirmed or rejected",
				Flags: []cli.Flag{
					blockchainFlag(),
					&cli.StringFlag{
						Name:     "tx-id",
						Usage:    "Transaction ID",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Give up after this long",
						Value: time.Minute,
					},
				},
				Action: outcomeCommand,
			},
			{
				Name:  "query",
				Usage: "Call any gateway operation with a JSON field map",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "operation",
						Usage:    "Operation name, e.g. Circular_GetBlockHeight_",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "fields",
						Usage: "JSON object sent as the request body",
						Value: "{}",
					},
				},
				Action: queryCommand,
			},
			{
				Name:  "balance",
				Usage: "Show the balance of a wallet",
				Flags: []cli.Flag{
					blockchainFlag(),
					&cli.StringFlag{
						Name:     "address",
						Usage:    "Wallet address",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "asset",
						Usage: "Asset name",
						Value: "CIRC",
					},
				},
				Action: balanceCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func blockchainFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "blockchain",
		Usage:    "Blockchain address (hex)",
		Required: true,
		EnvVars:  []string{"CIRCULAR_BLOCKCHAIN"},
	}
}

func privateKeyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "private-key",
		Usage:    "Private key (hex)",
		Required: true,
		EnvVars:  []string{"CIRCULAR_PRIVATE_KEY"},
	}
}

func waitFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:  "wait",
		Usage: "Wait up to this long for the transaction outcome; 0 returns after submit",
	}
}

// sendPayload is the payload of a coin transfer
type sendPayload struct {
	Action string `json:"Action"`
	Amount string `json:"Amount"`
	Asset  string `json:"Asset"`
	Memo   string `json:"Memo"`
}

// createClient creates a client from the config file, environment and global flags
func createClient(c *cli.Context) (*circular.Circular, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if url := c.String("gateway-url"); url != "" {
		cfg.GatewayURL = url
	}
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}

	client, err := circular.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func deriveKeysCommand(c *cli.Context) error {
	keys, err := utils.DeriveFromSeed(c.String("seed"))
	if err != nil {
		return err
	}
	return printJSON(keys)
}

func newKeysCommand(c *cli.Context) error {
	seed, err := utils.NewSeedPhrase(c.Int("bits"))
	if err != nil {
		return err
	}

	keys, err := utils.DeriveFromSeed(seed)
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"seed": seed,
		"keys": keys,
	})
}

func registerWalletCommand(c *cli.Context) error {
	client, err := createClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	blockchain := c.String("blockchain")
	tx, resp, err := client.RegisterWallet(c.Context, blockchain, c.String("private-key"))
	if err != nil {
		return fmt.Errorf("failed to register wallet: %w", err)
	}

	return finish(c, client, blockchain, tx, resp)
}

func sendCommand(c *cli.Context) error {
	amount, err := utils.ValidateAmount(c.String("amount"))
	if err != nil {
		return err
	}
	if err := utils.ValidateAddress(c.String("to")); err != nil {
		return err
	}

	client, err := createClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	blockchain := c.String("blockchain")
	privateKey := c.String("private-key")

	nonce := c.String("nonce")
	if nonce == "" {
		keys, err := utils.KeyPairFromPrivate(privateKey)
		if err != nil {
			return err
		}
		nonce, err = client.NextNonce(c.Context, blockchain, keys.WalletAddress)
		if err != nil {
			return fmt.Errorf("failed to read wallet nonce: %w", err)
		}
	}

	payload := sendPayload{
		Action: "CP_SEND",
		Amount: amount.String(),
		Asset:  c.String("asset"),
		Memo:   c.String("memo"),
	}

	tx, resp, err := client.SendTransaction(c.Context, blockchain, privateKey, c.String("to"), payload, nonce, types.TxTypeCoin)
	if err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}

	return finish(c, client, blockchain, tx, resp)
}

func outcomeCommand(c *cli.Context) error {
	client, err := createClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	outcome, err := client.GetTransactionOutcome(c.Context, c.String("blockchain"), c.String("tx-id"), c.Duration("timeout"))
	if err != nil {
		return err
	}
	return printJSON(outcome)
}

func queryCommand(c *cli.Context) error {
	var fields map[string]any
	if err := json.Unmarshal([]byte(c.String("fields")), &fields); err != nil {
		return fmt.Errorf("fields must be a JSON object: %w", err)
	}

	op := types.Operation(c.String("operation"))
	if !op.IsKnown() {
		fmt.Fprintf(os.Stderr, "warning: %s is not a known gateway operation\n", op)
	}

	client, err := createClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.Query(c.Context, op, fields)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func balanceCommand(c *cli.Context) error {
	client, err := createClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.GetWalletBalance(c.Context, c.String("blockchain"), c.String("address"), c.String("asset"))
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return printJSON(resp)
	}

	balance, err := resp.Decimal("Balance")
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", balance.String(), c.String("asset"))
	return nil
}

// finish prints the submitted transaction and, when --wait is set, its outcome
func finish(c *cli.Context, client *circular.Circular, blockchain string, tx *types.Transaction, resp *types.GatewayResponse) error {
	if err := printJSON(map[string]any{
		"transaction": tx,
		"response":    resp,
	}); err != nil {
		return err
	}

	wait := c.Duration("wait")
	if wait <= 0 {
		return nil
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("gateway rejected transaction %s with result %d", tx.ID, resp.Result)
	}

	ctx, cancel := context.WithTimeout(c.Context, wait+types.DefaultConfig().PollInterval)
	defer cancel()

	outcome, err := client.GetTransactionOutcome(ctx, blockchain, tx.ID, wait)
	if err != nil {
		return err
	}
	return printJSON(outcome)
}

func printJSON(v any) error {
	out, err := utils.NormalizeJSON(v)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
