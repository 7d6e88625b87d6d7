package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
)

const keyRefPrefix = "smartwallet/keys/"

// KeyRef is the secret-store key holding the private key for owner.
func KeyRef(owner common.Address) string {
	return keyRefPrefix + strings.ToLower(owner.Hex())
}

type WalletService struct {
	repo  ports.WalletRepository
	store ports.SecretStore
	keys  ports.KeySource
	clock ports.Clock
}

func NewWalletService(repo ports.WalletRepository, store ports.SecretStore, keys ports.KeySource, clock ports.Clock) *WalletService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &WalletService{
		repo:  repo,
		store: store,
		keys:  keys,
		clock: clock,
	}
}

func (s *WalletService) Import(ctx context.Context, rawKey string) (domain.WalletProfile, error) {
	signer, err := s.keys.Parse(rawKey)
	if err != nil {
		return domain.WalletProfile{}, fmt.Errorf("import wallet: %w", err)
	}

	return s.replace(ctx, signer)
}

func (s *WalletService) Create(ctx context.Context) (domain.WalletProfile, error) {
	signer, err := s.keys.Generate()
	if err != nil {
		return domain.WalletProfile{}, fmt.Errorf("create wallet: %w", err)
	}

	return s.replace(ctx, signer)
}

func (s *WalletService) Current(ctx context.Context) (domain.WalletProfile, error) {
	profile, err := s.repo.Get(ctx)
	if err != nil {
		return domain.WalletProfile{}, fmt.Errorf("get wallet: %w", err)
	}

	return profile, nil
}

// replace stores the new key, then points the profile at it. The previous key
// is removed last; every failure restores the prior state.
func (s *WalletService) replace(ctx context.Context, signer ports.KeySigner) (domain.WalletProfile, error) {
	previous, err := s.repo.Get(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrWalletNotFound) {
			return domain.WalletProfile{}, fmt.Errorf("get wallet: %w", err)
		}
		previous = domain.WalletProfile{}
	}

	keyRef := KeyRef(signer.Address())
	if err := s.store.Put(ctx, keyRef, signer.ExportHex()); err != nil {
		return domain.WalletProfile{}, fmt.Errorf("store wallet key: %w", err)
	}

	profile := domain.WalletProfile{
		Owner:      signer.Address(),
		KeyRef:     keyRef,
		ImportedAt: s.clock.Now().UTC(),
	}

	if err := s.repo.Save(ctx, profile); err != nil {
		if rollbackErr := s.store.Delete(ctx, keyRef); rollbackErr != nil {
			return domain.WalletProfile{}, fmt.Errorf("save wallet and rollback stored key: %w", errors.Join(err, rollbackErr))
		}

		return domain.WalletProfile{}, fmt.Errorf("save wallet: %w", err)
	}

	if previous.KeyRef == "" || previous.KeyRef == keyRef {
		return profile, nil
	}

	if err := s.store.Delete(ctx, previous.KeyRef); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		var rollbackErr error
		if restoreErr := s.repo.Save(ctx, previous); restoreErr != nil {
			rollbackErr = errors.Join(rollbackErr, restoreErr)
		}
		if newKeyDeleteErr := s.store.Delete(ctx, keyRef); newKeyDeleteErr != nil {
			rollbackErr = errors.Join(rollbackErr, newKeyDeleteErr)
		}
		if rollbackErr != nil {
			return domain.WalletProfile{}, fmt.Errorf("delete previous wallet key and rollback wallet update: %w", errors.Join(err, rollbackErr))
		}
		return domain.WalletProfile{}, fmt.Errorf("delete previous wallet key: %w", err)
	}

	return profile, nil
}

// Logout forgets the wallet profile and its stored key.
func (s *WalletService) Logout(ctx context.Context) error {
	profile, err := s.repo.Get(ctx)
	if err != nil {
		return fmt.Errorf("get wallet: %w", err)
	}

	if err := s.repo.Delete(ctx); err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}

	if profile.KeyRef == "" {
		return nil
	}

	if err := s.store.Delete(ctx, profile.KeyRef); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		if restoreErr := s.repo.Save(ctx, profile); restoreErr != nil {
			return fmt.Errorf("delete wallet key and restore wallet: %w", errors.Join(err, restoreErr))
		}
		return fmt.Errorf("delete wallet key: %w", err)
	}

	return nil
}
