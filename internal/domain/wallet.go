package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WalletProfile records which secret-store entry holds the owner key.
type WalletProfile struct {
	Owner common.Address
	// KeyRef points to a secret-store entry, typically in "smartwallet/keys/<address>" form.
	KeyRef     string
	ImportedAt time.Time
}

func (p WalletProfile) Authenticated() bool {
	return p.KeyRef != ""
}
