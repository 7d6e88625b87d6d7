package ports

import (
	"context"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

type WalletRepository interface {
	Get(ctx context.Context) (domain.WalletProfile, error)
	Save(ctx context.Context, profile domain.WalletProfile) error
	Delete(ctx context.Context) error
}

type ContactRepository interface {
	GetByName(ctx context.Context, name string) (domain.Contact, error)
	List(ctx context.Context) ([]domain.Contact, error)
	Save(ctx context.Context, contact domain.Contact) error
	Delete(ctx context.Context, id domain.ContactID) error
}

type RecurringRepository interface {
	GetByID(ctx context.Context, id domain.RecurringID) (domain.RecurringPayment, error)
	List(ctx context.Context) ([]domain.RecurringPayment, error)
	Save(ctx context.Context, payment domain.RecurringPayment) error
}

type HistoryRepository interface {
	Save(ctx context.Context, entry domain.HistoryEntry) error
	UpdateStatus(ctx context.Context, hash common.Hash, status domain.OperationStatus, txHash common.Hash) error
	List(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}
