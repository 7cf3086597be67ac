// Package circular is a client for the Circular NAG gateway: key handling,
// transaction construction and signing, chain queries, and waiting on
// transaction outcomes.
package circular

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/vitwit/circular/clients"
	"github.com/vitwit/circular/logger"
	"github.com/vitwit/circular/metrics"
	"github.com/vitwit/circular/settlement"
	"github.com/vitwit/circular/transaction"
	"github.com/vitwit/circular/types"
	"github.com/vitwit/circular/utils"
	"github.com/vitwit/circular/verification"
	"k8s.io/utils/clock"
)

// Circular is the main struct that provides all gateway functionality.
// Its configuration is fixed at construction.
type Circular struct {
	config types.Config

	gateway  *clients.GatewayClient
	builder  *transaction.Builder
	watcher  *settlement.OutcomeWatcher
	verifier *verification.VerificationService

	logger     logger.Logger
	metrics    metrics.Recorder
	httpClient *http.Client
	clock      clock.Clock
}

// New creates a client with the given configuration. Unset durations and
// identifiers fall back to DefaultConfig.
func New(config types.Config, opts ...Option) (*Circular, error) {
	config = config.WithDefaults()
	if err := utils.ValidateConfig(&config); err != nil {
		return nil, err
	}

	c := &Circular{
		config: config,
		clock:  clock.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil && config.LogLevel != "" {
		c.logger = logger.NewZapLogger(config.LogLevel)
	}
	c.logger = logger.OrNoop(c.logger)

	if c.metrics == nil && config.EnableMetrics {
		c.metrics = metrics.NewPrometheusRecorder()
	}
	c.metrics = metrics.OrNoop(c.metrics)

	gateway, err := clients.NewGatewayClient(clients.GatewayConfig{
		BaseURL:           config.GatewayURL,
		Version:           config.Version,
		Timeout:           config.RequestTimeout,
		HTTPClient:        c.httpClient,
		RequestsPerSecond: config.RequestsPerSecond,
		Logger:            c.logger,
		Metrics:           c.metrics,
	})
	if err != nil {
		return nil, err
	}

	c.gateway = gateway
	c.builder = transaction.NewBuilder(config.Version, transaction.WithClock(c.clock))
	c.watcher = settlement.NewOutcomeWatcher(gateway,
		settlement.WithInterval(config.PollInterval),
		settlement.WithClock(c.clock),
		settlement.WithLogger(c.logger),
		settlement.WithMetrics(c.metrics),
	)
	c.verifier = verification.NewVerificationService(config.AllowUnsignedRegistration)

	return c, nil
}

// NewWithDefaults creates a client for the public gateway with default settings
func NewWithDefaults() (*Circular, error) {
	return New(types.DefaultConfig())
}

// Config returns a copy of the client configuration
func (c *Circular) Config() types.Config {
	return c.config
}

// GetVersion returns the protocol version sent with every request
func (c *Circular) GetVersion() string {
	return c.config.Version
}

// Close closes the gateway connections
func (c *Circular) Close() {
	c.gateway.Close()
}

// KeysFromSeedPhrase derives the key pair of a seed phrase
func (c *Circular) KeysFromSeedPhrase(seed string) (*types.KeyPair, error) {
	return utils.DeriveFromSeed(seed)
}

// PublicKey returns the uncompressed public key of a private key
func (c *Circular) PublicKey(privateKey string) (string, error) {
	return utils.PublicKeyFromPrivate(privateKey)
}

// SignMessage signs message with privateKey, see utils.SignMessage
func (c *Circular) SignMessage(message, privateKey string) (string, error) {
	return utils.SignMessage(message, privateKey)
}

// VerifySignature checks a signature produced by SignMessage
func (c *Circular) VerifySignature(publicKey, message, signature string) bool {
	return utils.VerifySignature(publicKey, message, signature)
}

// Builder returns the transaction builder used by this client
func (c *Circular) Builder() *transaction.Builder {
	return c.builder
}

// Query performs any gateway operation with a caller supplied field map
func (c *Circular) Query(ctx context.Context, op types.Operation, fields map[string]any) (*types.GatewayResponse, error) {
	return c.gateway.Query(ctx, op, fields)
}

// SendTransaction builds, signs and submits a transaction from the wallet of
// privateKey. It returns the signed transaction together with the gateway answer.
func (c *Circular) SendTransaction(
	ctx context.Context,
	blockchain, privateKey, to string,
	payload any,
	nonce string,
	txType string,
) (*types.Transaction, *types.GatewayResponse, error) {
	keys, err := utils.KeyPairFromPrivate(privateKey)
	if err != nil {
		return nil, nil, err
	}

	tx, err := c.builder.NewTransaction(blockchain, keys.WalletAddress, to, payload, nonce, txType)
	if err != nil {
		return nil, nil, err
	}

	signed, err := transaction.Sign(tx, keys.PrivateKey)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.SubmitTransaction(ctx, signed)
	if err != nil {
		return signed, nil, err
	}
	return signed, resp, nil
}

// RegisterWallet registers the wallet of privateKey with a signed registration
func (c *Circular) RegisterWallet(ctx context.Context, blockchain, privateKey string) (*types.Transaction, *types.GatewayResponse, error) {
	keys, err := utils.KeyPairFromPrivate(privateKey)
	if err != nil {
		return nil, nil, err
	}

	tx, err := c.builder.RegisterWallet(blockchain, keys.PublicKey)
	if err != nil {
		return nil, nil, err
	}

	signed, err := transaction.Sign(tx, keys.PrivateKey)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.SubmitTransaction(ctx, signed)
	if err != nil {
		return signed, nil, err
	}
	return signed, resp, nil
}

// RegisterWalletUnsigned submits a registration without a signature. It fails with a
// CryptoError unless the client was configured with AllowUnsignedRegistration.
func (c *Circular) RegisterWalletUnsigned(ctx context.Context, blockchain, publicKey string) (*types.Transaction, *types.GatewayResponse, error) {
	if !c.config.AllowUnsignedRegistration {
		return nil, nil, types.NewCryptoError("unsigned wallet registration is not enabled", nil)
	}

	tx, err := c.builder.RegisterWallet(blockchain, publicKey)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.SubmitTransaction(ctx, tx)
	if err != nil {
		return tx, nil, err
	}
	return tx, resp, nil
}

// SubmitTransaction sends a built transaction as it is. The transaction must pass
// the integrity check and carry a signature, except for a permitted unsigned
// registration.
func (c *Circular) SubmitTransaction(ctx context.Context, tx *types.Transaction) (*types.GatewayResponse, error) {
	if err := c.verifier.RequireSigned(tx); err != nil {
		c.logger.Warn("transaction rejected before submit", map[string]any{
			"error": err,
		})
		return nil, err
	}

	resp, err := c.gateway.Submit(ctx, tx)
	if err != nil {
		return nil, err
	}

	c.logger.Info("transaction submitted", map[string]any{
		"txId":   tx.ID,
		"type":   tx.Type,
		"result": resp.Result,
	})
	return resp, nil
}

// VerifyTransaction checks a signed transaction against the sender public key
func (c *Circular) VerifyTransaction(tx *types.Transaction, publicKey string) *types.VerificationResult {
	return c.verifier.VerifyTransaction(tx, publicKey)
}

// GetTransactionOutcome polls until the transaction is final or timeout elapses
func (c *Circular) GetTransactionOutcome(ctx context.Context, blockchain, txID string, timeout time.Duration) (*types.Outcome, error) {
	return c.watcher.AwaitOutcome(ctx, blockchain, txID, timeout)
}

// WatchTransaction is GetTransactionOutcome run in the background
func (c *Circular) WatchTransaction(ctx context.Context, blockchain, txID string, timeout time.Duration) <-chan settlement.OutcomeResult {
	return c.watcher.Watch(ctx, blockchain, txID, timeout)
}

// AwaitTransactions waits on several transactions of one blockchain at once
func (c *Circular) AwaitTransactions(ctx context.Context, blockchain string, txIDs []string, timeout time.Duration) ([]settlement.OutcomeResult, error) {
	if len(txIDs) == 0 {
		return nil, types.NewInvalidTransactionError("no transaction ids given")
	}
	return c.watcher.BatchAwait(ctx, blockchain, txIDs, timeout)
}

// NextNonce reads the wallet nonce and returns the value the next transaction
// should carry
func (c *Circular) NextNonce(ctx context.Context, blockchain, address string) (string, error) {
	resp, err := c.GetWalletNonce(ctx, blockchain, address)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", types.NewFormatError(fmt.Sprintf("wallet nonce lookup returned result %d", resp.Result), nil)
	}

	nonce, err := resp.Decimal("Nonce")
	if err != nil {
		return "", err
	}
	return nonce.Add(decimalOne).String(), nil
}

func blockNumber(n uint64) string {
	return strconv.FormatUint(n, 10)
}
