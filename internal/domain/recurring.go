package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type RecurringID string

// RecurringPayment repeats a transfer on a standard five-field cron schedule.
type RecurringPayment struct {
	ID        RecurringID
	Name      string
	Recipient string
	Amount    *big.Int
	Token     *common.Address
	Schedule  string
	Active    bool
	CreatedAt time.Time
	NextRunAt time.Time
	LastRunAt time.Time
	// LastUserOpHash is empty until the first successful submission.
	LastUserOpHash string
	LastError      string
}

func (p RecurringPayment) Transfer() Transfer {
	return Transfer{Recipient: p.Recipient, Amount: p.Amount, Token: p.Token}
}

func (p RecurringPayment) Due(now time.Time) bool {
	return p.Active && !p.NextRunAt.IsZero() && !now.Before(p.NextRunAt)
}
