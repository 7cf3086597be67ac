// Package transaction assembles Circular transactions, computes their deterministic
// IDs and signs them.
package transaction

import (
	"encoding/json"
	"fmt"

	"github.com/vitwit/circular/types"
	"github.com/vitwit/circular/utils"
	"k8s.io/utils/clock"
)

// Builder creates unsigned transactions stamped with the client version
type Builder struct {
	version string
	clock   clock.PassiveClock
}

type BuilderOption func(*Builder)

// WithClock sets the clock used for transaction timestamps
func WithClock(c clock.PassiveClock) BuilderOption {
	return func(b *Builder) {
		b.clock = c
	}
}

// NewBuilder creates a builder for the given client version
func NewBuilder(version string, opts ...BuilderOption) *Builder {
	if version == "" {
		version = types.DefaultVersion
	}

	b := &Builder{
		version: version,
		clock:   clock.RealClock{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// registerWalletPayload is serialized in field order: Action, PublicKey
type registerWalletPayload struct {
	Action    string `json:"Action"`
	PublicKey string `json:"PublicKey"`
}

// ComputeID returns SHA256(blockchain ++ from ++ to ++ payload ++ nonce ++ timestamp)
// as hex. blockchain, from and to are normalized with HexFix; payload is already hex.
// The order is fixed: the gateway recomputes the same digest.
func ComputeID(blockchain, from, to, payloadHex, nonce, timestamp string) string {
	return utils.Sha256Hex(
		utils.HexFix(blockchain) +
			utils.HexFix(from) +
			utils.HexFix(to) +
			payloadHex +
			nonce +
			timestamp,
	)
}

// IDOf recomputes the ID of an existing transaction from its fields
func IDOf(tx *types.Transaction) string {
	return ComputeID(tx.Blockchain, tx.From, tx.To, tx.Payload, tx.Nonce, tx.Timestamp)
}

// NewTransaction builds an unsigned transaction. payload is JSON serialized and then
// hex encoded; nonce must be a decimal string.
func (b *Builder) NewTransaction(blockchain, from, to string, payload any, nonce string, txType string) (*types.Transaction, error) {
	if txType == "" {
		return nil, types.NewInvalidTransactionError("transaction type is required")
	}
	if err := utils.ValidateNonce(nonce); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NewFormatError("failed to serialize payload", err)
	}

	return b.assemble(blockchain, from, to, utils.StringToHex(string(raw)), nonce, txType), nil
}

// RegisterWallet builds the wallet registration transaction for publicKey.
// From and To are both the wallet address, the nonce is 0. The result is unsigned;
// Sign it unless the gateway accepts unsigned registrations.
func (b *Builder) RegisterWallet(blockchain, publicKey string) (*types.Transaction, error) {
	publicKey = utils.HexFix(publicKey)
	if publicKey == "" {
		return nil, types.NewCryptoError("public key is required", nil)
	}
	if err := utils.ValidatePublicKey(publicKey); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(registerWalletPayload{
		Action:    types.ActionRegisterWallet,
		PublicKey: publicKey,
	})
	if err != nil {
		return nil, types.NewFormatError("failed to serialize payload", err)
	}

	address := utils.Sha256Hex(publicKey)
	return b.assemble(blockchain, address, address, utils.StringToHex(string(raw)), "0", types.TxTypeRegisterWallet), nil
}

func (b *Builder) assemble(blockchain, from, to, payloadHex, nonce, txType string) *types.Transaction {
	blockchain = utils.HexFix(blockchain)
	from = utils.HexFix(from)
	to = utils.HexFix(to)
	timestamp := utils.FormatTimestamp(b.clock.Now())

	return &types.Transaction{
		ID:         ComputeID(blockchain, from, to, payloadHex, nonce, timestamp),
		From:       from,
		To:         to,
		Timestamp:  timestamp,
		Payload:    payloadHex,
		Nonce:      nonce,
		Blockchain: blockchain,
		Type:       txType,
		Version:    b.version,
	}
}

// Sign returns a signed copy of tx. The ID is signed as computed; it is not rebuilt.
// A transaction that already carries a signature is rejected.
func Sign(tx *types.Transaction, privHex string) (*types.Transaction, error) {
	if tx == nil {
		return nil, types.NewInvalidTransactionError("transaction is nil")
	}
	if tx.IsSigned() {
		return nil, types.NewInvalidTransactionError(fmt.Sprintf("transaction %s is already signed", tx.ID))
	}
	if tx.ID != IDOf(tx) {
		return nil, types.NewInvalidTransactionError(fmt.Sprintf("transaction %s does not match its fields", tx.ID))
	}

	signature, err := utils.SignMessage(tx.ID, privHex)
	if err != nil {
		return nil, err
	}

	signed := *tx
	signed.Signature = signature
	return &signed, nil
}
