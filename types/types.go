package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Protocol constants
const (
	// DefaultVersion is the client version sent with every gateway request
	DefaultVersion = "1.0.8"

	// DefaultGatewayURL is the public NAG endpoint; operation names are appended to it
	DefaultGatewayURL = "https://nag.circularlabs.io/NAG.php?cep="

	// ResultSuccess is the Result code the gateway uses for a successful call
	ResultSuccess = 200

	// TransactionNotFound is the Response sentinel returned while a transaction is unknown
	TransactionNotFound = "Transaction Not Found"

	// StatusPending is the transaction status reported before finality
	StatusPending = "Pending"

	// TimestampLayout renders UTC time as YYYY:MM:DD-HH:MM:SS
	TimestampLayout = "2006:01:02-15:04:05"
)

// Transaction types
const (
	TxTypeRegisterWallet = "C_TYPE_REGISTERWALLET"
	TxTypeCoin           = "C_TYPE_COIN"
	TxTypeToken          = "C_TYPE_TOKEN"
	TxTypeData           = "C_TYPE_DATA"
)

// Payload actions
const (
	ActionRegisterWallet = "CP_REGISTERWALLET"
)

// KeyPair is a secp256k1 key pair together with the wallet address derived from it
type KeyPair struct {
	PrivateKey    string `json:"privateKey"`
	PublicKey     string `json:"publicKey"`
	WalletAddress string `json:"walletAddress"`
}

// Transaction is the unit submitted to the gateway.
//
// ID is computed from the normalized fields before signing. Once Signature is set the
// transaction must not be edited; build a new one instead.
type Transaction struct {
	ID         string `json:"ID" validate:"required,len=64,hexadecimal"`
	From       string `json:"From" validate:"required,hexadecimal"`
	To         string `json:"To" validate:"required,hexadecimal"`
	Timestamp  string `json:"Timestamp" validate:"required,len=19"`
	Payload    string `json:"Payload" validate:"omitempty,hexadecimal"`
	Nonce      string `json:"Nonce" validate:"required,numeric"`
	Signature  string `json:"Signature" validate:"omitempty,hexadecimal"`
	Blockchain string `json:"Blockchain" validate:"required,hexadecimal"`
	Type       string `json:"Type" validate:"required"`
	Version    string `json:"Version" validate:"required"`
}

// IsSigned reports whether the transaction carries a signature
func (t *Transaction) IsSigned() bool {
	return t.Signature != ""
}

// IsRegistration reports whether the transaction is a wallet registration
func (t *Transaction) IsRegistration() bool {
	return t.Type == TxTypeRegisterWallet
}

// Fields returns the request field map for Circular_AddTransaction_.
// Values are used as they are; they were normalized when the transaction was built.
func (t *Transaction) Fields() map[string]any {
	return map[string]any{
		"ID":         t.ID,
		"From":       t.From,
		"To":         t.To,
		"Timestamp":  t.Timestamp,
		"Payload":    t.Payload,
		"Nonce":      t.Nonce,
		"Signature":  t.Signature,
		"Blockchain": t.Blockchain,
		"Type":       t.Type,
	}
}

// GatewayResponse is the envelope every gateway operation answers with
type GatewayResponse struct {
	Result   int             `json:"Result"`
	Response json.RawMessage `json:"Response"`
}

// IsSuccess reports whether Result carries the success code
func (r *GatewayResponse) IsSuccess() bool {
	return r != nil && r.Result == ResultSuccess
}

// IsNotFound reports whether Response is the "Transaction Not Found" sentinel
func (r *GatewayResponse) IsNotFound() bool {
	if r == nil {
		return false
	}
	var s string
	if err := json.Unmarshal(r.Response, &s); err != nil {
		return false
	}
	return s == TransactionNotFound
}

// Status returns the Status field of an object payload, or "" when there is none
func (r *GatewayResponse) Status() string {
	if r == nil || !bytes.HasPrefix(bytes.TrimSpace(r.Response), []byte("{")) {
		return ""
	}
	var body struct {
		Status string `json:"Status"`
	}
	if err := json.Unmarshal(r.Response, &body); err != nil {
		return ""
	}
	return body.Status
}

// Decode unmarshals the Response payload into v
func (r *GatewayResponse) Decode(v any) error {
	if r == nil || len(r.Response) == 0 {
		return NewFormatError("empty gateway response", nil)
	}
	if err := json.Unmarshal(r.Response, v); err != nil {
		return NewFormatError("failed to decode gateway response", err)
	}
	return nil
}

// Decimal reads a numeric field of an object payload. The gateway reports amounts
// either as JSON numbers or as strings; both are accepted.
func (r *GatewayResponse) Decimal(field string) (decimal.Decimal, error) {
	var body map[string]json.RawMessage
	if err := r.Decode(&body); err != nil {
		return decimal.Zero, err
	}

	raw, ok := body[field]
	if !ok {
		return decimal.Zero, NewFormatError(fmt.Sprintf("field %s not present in response", field), nil)
	}

	value := strings.Trim(string(raw), `"`)
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, NewFormatError(fmt.Sprintf("field %s is not a number", field), err)
	}
	return d, nil
}

// TxState is the client-observed state of a submitted transaction
type TxState string

const (
	StateUnsubmitted TxState = "UNSUBMITTED"
	StateSubmitted   TxState = "SUBMITTED"
	StateNotFound    TxState = "NOT_FOUND"
	StatePending     TxState = "PENDING"
	StateConfirmed   TxState = "CONFIRMED"
	StateRejected    TxState = "REJECTED"
)

// IsTerminal reports whether polling stops in this state
func (s TxState) IsTerminal() bool {
	return s == StateConfirmed || s == StateRejected
}

func (s TxState) String() string {
	return string(s)
}

// StateOf classifies one GetTransactionbyID observation
func StateOf(resp *GatewayResponse) TxState {
	switch {
	case resp == nil || !resp.IsSuccess():
		return StateSubmitted
	case resp.IsNotFound():
		return StateNotFound
	}

	status := resp.Status()
	switch {
	case status == StatusPending:
		return StatePending
	case strings.EqualFold(status, "Rejected"), strings.EqualFold(status, "Failed"):
		return StateRejected
	default:
		return StateConfirmed
	}
}

// Outcome is the terminal result of waiting on a transaction
type Outcome struct {
	TxID       string          `json:"txId"`
	Blockchain string          `json:"blockchain"`
	State      TxState         `json:"state"`
	Status     string          `json:"status,omitempty"`
	Response   json.RawMessage `json:"response"`
	Polls      int             `json:"polls"`
	Elapsed    time.Duration   `json:"elapsed"`
}

// VerificationResult contains the result of a transaction integrity check
type VerificationResult struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	TxID          string `json:"txId,omitempty"`
}

// Config contains the configuration of a client handle.
// It is copied into the handle on construction and never mutated afterwards.
type Config struct {
	GatewayURL                string        `json:"gatewayUrl" mapstructure:"gateway_url" validate:"required,url"`
	AccessKey                 string        `json:"accessKey,omitempty" mapstructure:"access_key"`
	Version                   string        `json:"version" mapstructure:"version" validate:"required"`
	RequestTimeout            time.Duration `json:"requestTimeout,omitempty" mapstructure:"request_timeout" validate:"gte=0"`
	PollInterval              time.Duration `json:"pollInterval,omitempty" mapstructure:"poll_interval" validate:"gte=0"`
	RequestsPerSecond         float64       `json:"requestsPerSecond,omitempty" mapstructure:"requests_per_second" validate:"gte=0"`
	LogLevel                  string        `json:"logLevel,omitempty" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	EnableMetrics             bool          `json:"enableMetrics,omitempty" mapstructure:"enable_metrics"`
	AllowUnsignedRegistration bool          `json:"allowUnsignedRegistration,omitempty" mapstructure:"allow_unsigned_registration"`
}

// DefaultConfig returns the configuration used by NewWithDefaults
func DefaultConfig() Config {
	return Config{
		GatewayURL:     DefaultGatewayURL,
		Version:        DefaultVersion,
		RequestTimeout: 30 * time.Second,
		PollInterval:   5 * time.Second,
	}
}

// WithDefaults fills zero durations and empty identifiers from DefaultConfig
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.GatewayURL == "" {
		c.GatewayURL = def.GatewayURL
	}
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	return c
}
