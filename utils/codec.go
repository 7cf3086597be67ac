package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/vitwit/circular/types"
)

var hexFixReplacer = strings.NewReplacer(`\`, "", "\r", "", "\n", "")

// StringToHex hex-encodes the UTF-8 bytes of s
func StringToHex(s string) string {
	return hex.EncodeToString([]byte(s))
}

// HexToString decodes a hex string back into the bytes it encodes
func HexToString(h string) ([]byte, error) {
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, types.NewFormatError("invalid hex string", err)
	}
	return b, nil
}

// HexFix normalizes a hex identifier: embedded backslash, CR and LF characters are
// removed and a single leading 0x is stripped. Inner occurrences of 0x are kept.
func HexFix(s string) string {
	s = hexFixReplacer.Replace(s)
	return strings.TrimPrefix(s, "0x")
}

// Sha256Hex returns the lowercase hex SHA-256 digest of s
func Sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// FormatTimestamp renders t in UTC as YYYY:MM:DD-HH:MM:SS.
// The exact layout is part of the transaction hash input.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(types.TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(types.TimestampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, types.NewFormatError("invalid timestamp", err)
	}
	return t, nil
}
