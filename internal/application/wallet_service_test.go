package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/bnema/smartwallet-cli/internal/ports/mocks"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var importedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestKeyRefUsesLowercaseAddress(t *testing.T) {
	t.Parallel()

	owner := common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")
	assert.Equal(t, "smartwallet/keys/0x2c7536e3605d9c16a7a3d7b1898e529396a65c23", KeyRef(owner))
}

func TestWalletServiceImportFirstWallet(t *testing.T) {
	repo := mocks.NewMockWalletRepository(t)
	store := mocks.NewMockSecretStore(t)
	clock := mocks.NewMockClock(t)
	keys := &fakeKeys{signer: fakeKeySigner{fakeSigner: fakeSigner{address: ownerA}, key: "0xaaaa"}}
	service := NewWalletService(repo, store, keys, clock)

	want := domain.WalletProfile{Owner: ownerA, KeyRef: KeyRef(ownerA), ImportedAt: importedAt}
	repo.EXPECT().Get(mockAnyContext()).Return(domain.WalletProfile{}, domain.ErrWalletNotFound)
	store.EXPECT().Put(mockAnyContext(), KeyRef(ownerA), "0xaaaa").Return(nil)
	clock.EXPECT().Now().Return(importedAt)
	repo.EXPECT().Save(mockAnyContext(), want).Return(nil)

	profile, err := service.Import(context.Background(), "0xaaaa")
	require.NoError(t, err)
	assert.Equal(t, want, profile)
	assert.Equal(t, "0xaaaa", keys.parsed)
}

func TestWalletServiceImportRejectsBadKey(t *testing.T) {
	repo := mocks.NewMockWalletRepository(t)
	store := mocks.NewMockSecretStore(t)
	keys := &fakeKeys{err: errors.New("invalid hex")}
	service := NewWalletService(repo, store, keys, nil)

	_, err := service.Import(context.Background(), "zz")
	require.ErrorContains(t, err, "import wallet")
}

func TestWalletServiceReplaceDeletesPreviousKey(t *testing.T) {
	repo := mocks.NewMockWalletRepository(t)
	store := mocks.NewMockSecretStore(t)
	clock := mocks.NewMockClock(t)
	keys := &fakeKeys{signer: fakeKeySigner{fakeSigner: fakeSigner{address: ownerB}, key: "0xbbbb"}}
	service := NewWalletService(repo, store, keys, clock)

	previous := domain.WalletProfile{Owner: ownerA, KeyRef: KeyRef(ownerA), ImportedAt: importedAt.Add(-time.Hour)}
	repo.EXPECT().Get(mockAnyContext()).Return(previous, nil)
	store.EXPECT().Put(mockAnyContext(), KeyRef(ownerB), "0xbbbb").Return(nil)
	clock.EXPECT().Now().Return(importedAt)
	repo.EXPECT().Save(mockAnyContext(), domain.WalletProfile{Owner: ownerB, KeyRef: KeyRef(ownerB), ImportedAt: importedAt}).Return(nil)
	store.EXPECT().Delete(mockAnyContext(), KeyRef(ownerA)).Return(nil)

	_, err := service.Create(context.Background())
	require.NoError(t, err)
}

func TestWalletServiceReplaceRollsBackWhenPreviousKeyDeleteFails(t *testing.T) {
	repo := mocks.NewMockWalletRepository(t)
	store := mocks.NewMockSecretStore(t)
	clock := mocks.NewMockClock(t)
	keys := &fakeKeys{signer: fakeKeySigner{fakeSigner: fakeSigner{address: ownerB}, key: "0xbbbb"}}
	service := NewWalletService(repo, store, keys, clock)

	deleteErr := errors.New("gpg agent gone")
	previous := domain.WalletProfile{Owner: ownerA, KeyRef: KeyRef(ownerA), ImportedAt: importedAt.Add(-time.Hour)}
	repo.EXPECT().Get(mockAnyContext()).Return(previous, nil)
	store.EXPECT().Put(mockAnyContext(), KeyRef(ownerB), "0xbbbb").Return(nil)
	clock.EXPECT().Now().Return(importedAt)
	repo.EXPECT().Save(mockAnyContext(), domain.WalletProfile{Owner: ownerB, KeyRef: KeyRef(ownerB), ImportedAt: importedAt}).Return(nil).Once()
	store.EXPECT().Delete(mockAnyContext(), KeyRef(ownerA)).Return(deleteErr)
	repo.EXPECT().Save(mockAnyContext(), previous).Return(nil).Once()
	store.EXPECT().Delete(mockAnyContext(), KeyRef(ownerB)).Return(nil)

	_, err := service.Import(context.Background(), "0xbbbb")
	require.ErrorIs(t, err, deleteErr)
	assert.ErrorContains(t, err, "delete previous wallet key")
}

func TestWalletServiceSaveFailureRemovesStoredKey(t *testing.T) {
	repo := mocks.NewMockWalletRepository(t)
	store := mocks.NewMockSecretStore(t)
	clock := mocks.NewMockClock(t)
	keys := &fakeKeys{signer: fakeKeySigner{fakeSigner: fakeSigner{address: ownerA}, key: "0xaaaa"}}
	service := NewWalletService(repo, store, keys, clock)

	saveErr := errors.New("disk full")
	rollbackErr := errors.New("pass locked")
	repo.EXPECT().Get(mockAnyContext()).Return(domain.WalletProfile{}, domain.ErrWalletNotFound)
	store.EXPECT().Put(mockAnyContext(), KeyRef(ownerA), "0xaaaa").Return(nil)
	clock.EXPECT().Now().Return(importedAt)
	repo.EXPECT().Save(mockAnyContext(), mock.AnythingOfType("domain.WalletProfile")).Return(saveErr)
	store.EXPECT().Delete(mockAnyContext(), KeyRef(ownerA)).Return(rollbackErr)

	_, err := service.Import(context.Background(), "0xaaaa")
	require.ErrorIs(t, err, saveErr)
	assert.ErrorIs(t, err, rollbackErr)
}

func TestWalletServiceLogout(t *testing.T) {
	testCases := []struct {
		name      string
		deleteErr error
		wantErr   bool
	}{
		{name: "removes profile and key"},
		{name: "missing key is fine", deleteErr: domain.ErrSecretNotFound},
		{name: "restores profile when key delete fails", deleteErr: errors.New("pass failed"), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := mocks.NewMockWalletRepository(t)
			store := mocks.NewMockSecretStore(t)
			service := NewWalletService(repo, store, &fakeKeys{}, nil)

			profile := domain.WalletProfile{Owner: ownerA, KeyRef: KeyRef(ownerA), ImportedAt: importedAt}
			repo.EXPECT().Get(mockAnyContext()).Return(profile, nil)
			repo.EXPECT().Delete(mockAnyContext()).Return(nil)
			store.EXPECT().Delete(mockAnyContext(), KeyRef(ownerA)).Return(tc.deleteErr)
			if tc.wantErr {
				repo.EXPECT().Save(mockAnyContext(), profile).Return(nil)
			}

			err := service.Logout(context.Background())
			if tc.wantErr {
				require.ErrorIs(t, err, tc.deleteErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestWalletServiceLogoutWithoutWallet(t *testing.T) {
	repo := mocks.NewMockWalletRepository(t)
	service := NewWalletService(repo, mocks.NewMockSecretStore(t), &fakeKeys{}, nil)

	repo.EXPECT().Get(mockAnyContext()).Return(domain.WalletProfile{}, domain.ErrWalletNotFound)

	err := service.Logout(context.Background())
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func mockAnyContext() interface{} {
	return mock.Anything
}

type fakeKeySigner struct {
	fakeSigner
	key string
}

func (s fakeKeySigner) ExportHex() string { return s.key }

type fakeKeys struct {
	signer fakeKeySigner
	err    error
	parsed string
}

func (k *fakeKeys) Generate() (ports.KeySigner, error) {
	if k.err != nil {
		return nil, k.err
	}
	return k.signer, nil
}

func (k *fakeKeys) Parse(raw string) (ports.KeySigner, error) {
	k.parsed = raw
	if k.err != nil {
		return nil, k.err
	}
	return k.signer, nil
}
