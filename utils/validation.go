package utils

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
	"github.com/vitwit/circular/types"
)

var (
	hexPattern     = regexp.MustCompile("^[0-9a-fA-F]+$")
	decimalPattern = regexp.MustCompile("^[0-9]+$")
)

// ValidateAmount checks if an amount string is a valid non-negative decimal
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return &dec, nil
}

// ValidateNonce checks that a nonce is a decimal string
func ValidateNonce(nonce string) error {
	if !decimalPattern.MatchString(nonce) {
		return types.NewFormatError(fmt.Sprintf("nonce %q is not a decimal string", nonce), nil)
	}
	return nil
}

// ValidateTransactionID checks a 64 character hex digest, with or without 0x
func ValidateTransactionID(id string) error {
	id = HexFix(id)
	if len(id) != 64 {
		return types.NewFormatError(fmt.Sprintf("transaction id must be 64 hex characters, got %d", len(id)), nil)
	}
	if !isHexString(id) {
		return types.NewFormatError("transaction id must be valid hex", nil)
	}
	return nil
}

// ValidateAddress checks a wallet address: a SHA-256 digest in hex
func ValidateAddress(address string) error {
	if address == "" {
		return types.NewFormatError("address cannot be empty", nil)
	}
	address = HexFix(address)
	if len(address) != 64 {
		return types.NewFormatError("address must be 64 hex characters long", nil)
	}
	if !isHexString(address) {
		return types.NewFormatError("address must be valid hex", nil)
	}
	return nil
}

// ValidateBlockchain checks a blockchain identifier
func ValidateBlockchain(blockchain string) error {
	blockchain = HexFix(blockchain)
	if blockchain == "" {
		return types.NewFormatError("blockchain cannot be empty", nil)
	}
	if !isHexString(blockchain) {
		return types.NewFormatError("blockchain must be valid hex", nil)
	}
	return nil
}

// Helper function to check if a string is valid hexadecimal
func isHexString(s string) bool {
	return hexPattern.MatchString(s)
}
