package toml

import (
	"context"
	"fmt"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
)

type WalletRepository struct {
	store *Store
}

var _ ports.WalletRepository = (*WalletRepository)(nil)

func (r *WalletRepository) Get(ctx context.Context) (domain.WalletProfile, error) {
	var profile domain.WalletProfile
	err := r.store.view(ctx, func(file fileSchema) error {
		if file.Wallet == nil {
			return domain.ErrWalletNotFound
		}
		if !common.IsHexAddress(file.Wallet.Owner) {
			return fmt.Errorf("decode wallet: invalid owner %q", file.Wallet.Owner)
		}

		profile = domain.WalletProfile{
			Owner:      common.HexToAddress(file.Wallet.Owner),
			KeyRef:     file.Wallet.KeyRef,
			ImportedAt: parseTime(file.Wallet.ImportedAt),
		}
		return nil
	})
	if err != nil {
		return domain.WalletProfile{}, err
	}

	return profile, nil
}

func (r *WalletRepository) Save(ctx context.Context, profile domain.WalletProfile) error {
	return r.store.update(ctx, func(file *fileSchema) error {
		file.Wallet = &walletSchema{
			Owner:      profile.Owner.Hex(),
			KeyRef:     profile.KeyRef,
			ImportedAt: formatTime(profile.ImportedAt),
		}
		return nil
	})
}

func (r *WalletRepository) Delete(ctx context.Context) error {
	return r.store.update(ctx, func(file *fileSchema) error {
		if file.Wallet == nil {
			return domain.ErrWalletNotFound
		}
		file.Wallet = nil
		return nil
	})
}
