package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Transfer is a payment intent before recipient resolution.
// Recipient is either a hex address or a contact name. A nil Token means the native coin.
type Transfer struct {
	Recipient string
	Amount    *big.Int
	Token     *common.Address
}

func (t Transfer) Validate() error {
	if strings.TrimSpace(t.Recipient) == "" {
		return fmt.Errorf("%w: recipient is empty", ErrInvalidAddress)
	}
	if t.Amount == nil || t.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	return nil
}

// ParseAmount parses a base-10 integer amount in the smallest unit.
func ParseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q must be positive", ErrInvalidAmount, raw)
	}
	return amount, nil
}

type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusSucceeded OperationStatus = "succeeded"
	OperationStatusFailed    OperationStatus = "failed"
)

// HistoryEntry is one submitted user operation.
type HistoryEntry struct {
	UserOpHash      common.Hash
	Sender          common.Address
	Calls           []Call
	Status          OperationStatus
	TransactionHash common.Hash
	Note            string
	SubmittedAt     time.Time
	UpdatedAt       time.Time
}
