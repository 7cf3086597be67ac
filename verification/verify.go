package verification

import (
	"context"
	"fmt"

	"github.com/vitwit/circular/transaction"
	"github.com/vitwit/circular/types"
	"github.com/vitwit/circular/utils"
)

// Verifier interface defines the contract for transaction verification
type Verifier interface {
	VerifyTransaction(tx *types.Transaction, publicKey string) *types.VerificationResult
}

// VerificationService checks transactions before they leave the client
type VerificationService struct {
	allowUnsignedRegistration bool
}

var _ Verifier = (*VerificationService)(nil)

// NewVerificationService creates a new verification service. When
// allowUnsignedRegistration is set, a wallet registration without a signature passes
// RequireSigned.
func NewVerificationService(allowUnsignedRegistration bool) *VerificationService {
	return &VerificationService{
		allowUnsignedRegistration: allowUnsignedRegistration,
	}
}

// QuickVerify performs structural checks without any cryptography beyond hashing:
// field formats and the ID recomputed from the fields
func (s *VerificationService) QuickVerify(tx *types.Transaction) *types.VerificationResult {
	if tx == nil {
		return invalid("", "transaction is nil")
	}

	if err := utils.ValidateTransaction(tx); err != nil {
		return invalid(tx.ID, err.Error())
	}

	if expected := transaction.IDOf(tx); expected != tx.ID {
		return invalid(tx.ID, fmt.Sprintf("id mismatch: fields hash to %s", expected))
	}

	return &types.VerificationResult{
		IsValid: true,
		TxID:    tx.ID,
	}
}

// RequireSigned returns an error when tx may not be submitted: a failed quick check,
// or a missing signature on anything other than a permitted unsigned registration
func (s *VerificationService) RequireSigned(tx *types.Transaction) error {
	result := s.QuickVerify(tx)
	if !result.IsValid {
		return types.NewInvalidTransactionError(result.InvalidReason)
	}

	if tx.IsSigned() {
		return nil
	}
	if tx.IsRegistration() && s.allowUnsignedRegistration {
		return nil
	}
	return types.NewCryptoError(fmt.Sprintf("transaction %s is not signed", tx.ID), nil)
}

// VerifyTransaction checks the transaction structure and its signature against publicKey
func (s *VerificationService) VerifyTransaction(tx *types.Transaction, publicKey string) *types.VerificationResult {
	result := s.QuickVerify(tx)
	if !result.IsValid {
		return result
	}

	if !tx.IsSigned() {
		return invalid(tx.ID, "transaction is not signed")
	}

	if !utils.VerifySignature(publicKey, tx.ID, tx.Signature) {
		return invalid(tx.ID, "signature does not match public key")
	}

	if tx.IsRegistration() && utils.WalletAddress(publicKey) != tx.From {
		return invalid(tx.ID, "registration sender is not the wallet of the public key")
	}

	return result
}

// BatchVerify verifies multiple transactions concurrently against one public key
func (s *VerificationService) BatchVerify(
	ctx context.Context,
	txs []*types.Transaction,
	publicKey string,
) ([]*types.VerificationResult, error) {
	results := make([]*types.VerificationResult, len(txs))

	type verificationResult struct {
		index  int
		result *types.VerificationResult
	}

	resultChan := make(chan verificationResult, len(txs))

	for i, tx := range txs {
		go func(index int, t *types.Transaction) {
			resultChan <- verificationResult{
				index:  index,
				result: s.VerifyTransaction(t, publicKey),
			}
		}(i, tx)
	}

	for i := 0; i < len(txs); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-resultChan:
			results[res.index] = res.result
		}
	}

	return results, nil
}

func invalid(txID, reason string) *types.VerificationResult {
	return &types.VerificationResult{
		IsValid:       false,
		InvalidReason: reason,
		TxID:          txID,
	}
}
