package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
	"github.com/vitwit/circular/types"
)

// DeriveFromSeed derives a key pair from a seed phrase.
// The private scalar is SHA-256(seed) reduced modulo the curve order, so the same
// phrase always yields the same wallet.
func DeriveFromSeed(seed string) (*types.KeyPair, error) {
	sum := sha256.Sum256([]byte(seed))

	privKey, pubKey := btcec.PrivKeyFromBytes(sum[:])
	if privKey.Key.IsZero() {
		return nil, types.NewCryptoError("seed derives the zero scalar", nil)
	}

	scalar := privKey.Key.Bytes()
	publicKey := hex.EncodeToString(pubKey.SerializeUncompressed())

	return &types.KeyPair{
		PrivateKey:    hex.EncodeToString(scalar[:]),
		PublicKey:     publicKey,
		WalletAddress: Sha256Hex(publicKey),
	}, nil
}

// KeyPairFromPrivate rebuilds the key pair of an existing private key
func KeyPairFromPrivate(privHex string) (*types.KeyPair, error) {
	privKey, err := parsePrivateKey(privHex)
	if err != nil {
		return nil, err
	}

	scalar := privKey.Key.Bytes()
	publicKey := hex.EncodeToString(privKey.PubKey().SerializeUncompressed())

	return &types.KeyPair{
		PrivateKey:    hex.EncodeToString(scalar[:]),
		PublicKey:     publicKey,
		WalletAddress: Sha256Hex(publicKey),
	}, nil
}

// PublicKeyFromPrivate returns the uncompressed public key (04||X||Y) as hex
func PublicKeyFromPrivate(privHex string) (string, error) {
	privKey, err := parsePrivateKey(privHex)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(privKey.PubKey().SerializeUncompressed()), nil
}

// WalletAddress returns the wallet address of a public key: SHA-256 of its hex form
func WalletAddress(pubHex string) string {
	return Sha256Hex(HexFix(pubHex))
}

// SignMessage hashes message with SHA-256 and signs the digest with secp256k1.
// Transaction IDs are already digests; they are hashed again here, which is what the
// gateway verifies against. The signature is DER encoded and returned as hex.
func SignMessage(message string, privHex string) (string, error) {
	privKey, err := parsePrivateKey(privHex)
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256([]byte(message))
	sig := ecdsa.Sign(privKey, digest[:])

	return hex.EncodeToString(sig.Serialize()), nil
}

// VerifySignature checks a DER hex signature over SHA-256(message).
// Malformed keys or signatures yield false.
func VerifySignature(pubHex string, message string, sigHex string) bool {
	pubKey, err := parsePublicKey(pubHex)
	if err != nil {
		return false
	}

	sigBytes, err := hex.DecodeString(HexFix(sigHex))
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}

	digest := sha256.Sum256([]byte(message))
	return sig.Verify(digest[:], pubKey)
}

// NewSeedPhrase generates a BIP-39 mnemonic with the given entropy size in bits
// (128 to 256, multiple of 32). It is used as the input of DeriveFromSeed.
func NewSeedPhrase(bits int) (string, error) {
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", types.NewCryptoError("failed to generate entropy", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", types.NewCryptoError("failed to generate mnemonic", err)
	}
	return mnemonic, nil
}

// ValidateSeedPhrase reports whether s is a valid BIP-39 mnemonic
func ValidateSeedPhrase(s string) bool {
	return bip39.IsMnemonicValid(s)
}

// ValidatePublicKey checks that pubHex encodes a point on secp256k1, compressed or
// uncompressed, with or without 0x
func ValidatePublicKey(pubHex string) error {
	_, err := parsePublicKey(pubHex)
	return err
}

func parsePublicKey(pubHex string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(HexFix(pubHex))
	if err != nil {
		return nil, types.NewCryptoError("public key is not valid hex", err)
	}
	pubKey, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, types.NewCryptoError("invalid public key", err)
	}
	return pubKey, nil
}

// parsePrivateKey accepts a hex scalar of up to 32 bytes, with or without 0x.
// Shorter keys are left padded, matching keys whose leading zero bytes were dropped.
func parsePrivateKey(privHex string) (*btcec.PrivateKey, error) {
	privHex = HexFix(privHex)
	if len(privHex)%2 == 1 {
		privHex = "0" + privHex
	}

	raw, err := hex.DecodeString(privHex)
	if err != nil {
		return nil, types.NewCryptoError("private key is not valid hex", err)
	}
	if len(raw) == 0 || len(raw) > 32 {
		return nil, types.NewCryptoError(fmt.Sprintf("private key must be 1 to 32 bytes, got %d", len(raw)), nil)
	}

	padded := make([]byte, 32)
	copy(padded[32-len(raw):], raw)

	// rejects zero and scalars >= N
	if _, err := crypto.ToECDSA(padded); err != nil {
		return nil, types.NewCryptoError("invalid private key", err)
	}

	privKey, _ := btcec.PrivKeyFromBytes(padded)
	return privKey, nil
}
