package toml

import (
	"context"
	"fmt"
	"math/big"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
)

type RecurringRepository struct {
	store *Store
}

var _ ports.RecurringRepository = (*RecurringRepository)(nil)

func (r *RecurringRepository) GetByID(ctx context.Context, id domain.RecurringID) (domain.RecurringPayment, error) {
	var payment domain.RecurringPayment
	err := r.store.view(ctx, func(file fileSchema) error {
		for _, entry := range file.Recurring {
			if entry.ID == string(id) {
				decoded, err := recurringFromSchema(entry)
				if err != nil {
					return err
				}
				payment = decoded
				return nil
			}
		}
		return domain.ErrRecurringNotFound
	})
	if err != nil {
		return domain.RecurringPayment{}, err
	}

	return payment, nil
}

// List returns payments in insertion order.
func (r *RecurringRepository) List(ctx context.Context) ([]domain.RecurringPayment, error) {
	var payments []domain.RecurringPayment
	err := r.store.view(ctx, func(file fileSchema) error {
		payments = make([]domain.RecurringPayment, 0, len(file.Recurring))
		for _, entry := range file.Recurring {
			payment, err := recurringFromSchema(entry)
			if err != nil {
				return err
			}
			payments = append(payments, payment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *RecurringRepository) Save(ctx context.Context, payment domain.RecurringPayment) error {
	return r.store.update(ctx, func(file *fileSchema) error {
		encoded := recurringToSchema(payment)
		for i := range file.Recurring {
			if file.Recurring[i].ID == encoded.ID {
				file.Recurring[i] = encoded
				return nil
			}
		}

		file.Recurring = append(file.Recurring, encoded)
		return nil
	})
}

func recurringToSchema(payment domain.RecurringPayment) recurringSchema {
	entry := recurringSchema{
		ID:             string(payment.ID),
		Name:           payment.Name,
		Recipient:      payment.Recipient,
		Amount:         domain.BigOrZero(payment.Amount).String(),
		Schedule:       payment.Schedule,
		Active:         payment.Active,
		CreatedAt:      formatTime(payment.CreatedAt),
		NextRunAt:      formatTime(payment.NextRunAt),
		LastRunAt:      formatTime(payment.LastRunAt),
		LastUserOpHash: payment.LastUserOpHash,
		LastError:      payment.LastError,
	}
	if payment.Token != nil {
		entry.Token = payment.Token.Hex()
	}
	return entry
}

func recurringFromSchema(entry recurringSchema) (domain.RecurringPayment, error) {
	amount, ok := new(big.Int).SetString(entry.Amount, 10)
	if !ok {
		return domain.RecurringPayment{}, fmt.Errorf("decode recurring payment %s: invalid amount %q", entry.ID, entry.Amount)
	}

	payment := domain.RecurringPayment{
		ID:             domain.RecurringID(entry.ID),
		Name:           entry.Name,
		Recipient:      entry.Recipient,
		Amount:         amount,
		Schedule:       entry.Schedule,
		Active:         entry.Active,
		CreatedAt:      parseTime(entry.CreatedAt),
		NextRunAt:      parseTime(entry.NextRunAt),
		LastRunAt:      parseTime(entry.LastRunAt),
		LastUserOpHash: entry.LastUserOpHash,
		LastError:      entry.LastError,
	}

	if entry.Token != "" {
		if !common.IsHexAddress(entry.Token) {
			return domain.RecurringPayment{}, fmt.Errorf("decode recurring payment %s: invalid token %q", entry.ID, entry.Token)
		}
		token := common.HexToAddress(entry.Token)
		payment.Token = &token
	}

	return payment, nil
}
