package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type ContactID string

type Contact struct {
	ID        ContactID
	Name      string
	Address   common.Address
	CreatedAt time.Time
}

// NormalizeContactName is the lookup key; names compare case-insensitively.
func NormalizeContactName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ParseAddress accepts a 0x-prefixed hex address and rejects the zero address.
func ParseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}

	addr := common.HexToAddress(trimmed)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}

	return addr, nil
}
