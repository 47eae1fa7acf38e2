package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var assetKeyPattern = regexp.MustCompile(`^[A-Z0-9_\-]{1,50}$`)

// NormalizeWalletID validates and canonicalizes a 32-byte wallet identifier
// into "0x" + 64 lowercase hex chars.
func NormalizeWalletID(id string) (string, error) {
	s := strings.TrimSpace(id)
	if !strings.HasPrefix(strings.ToLower(s), "0x") {
		s = "0x" + s
	}
	raw, err := hexutil.Decode(strings.ToLower(s))
	if err != nil {
		return "", fmt.Errorf("invalid wallet id %q: %w", id, err)
	}
	if len(raw) != common.HashLength {
		return "", fmt.Errorf("invalid wallet id %q: want %d bytes, got %d", id, common.HashLength, len(raw))
	}
	return common.BytesToHash(raw).Hex(), nil
}

// NormalizePrincipal canonicalizes an owner principal address. Both 20-byte
// EVM addresses and 32-byte universal identifiers are accepted; the result is
// lowercase 0x-prefixed hex.
func NormalizePrincipal(addr string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(addr))
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return "", fmt.Errorf("invalid principal %q: %w", addr, err)
	}
	switch len(raw) {
	case common.AddressLength:
		return strings.ToLower(common.BytesToAddress(raw).Hex()), nil
	case common.HashLength:
		return strings.ToLower(common.BytesToHash(raw).Hex()), nil
	default:
		return "", fmt.Errorf("invalid principal %q: want 20 or 32 bytes, got %d", addr, len(raw))
	}
}

// IsValidAssetKey reports whether s is an acceptable asset key ("USDC",
// "WBTC", ...). Keys are stored as-is and compared case-sensitively.
func IsValidAssetKey(s string) bool {
	return assetKeyPattern.MatchString(s)
}
