// Package auth exposes the locally stored wallet as the session's auth state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
)

// Provider reads the wallet profile and loads its key from the secret store.
// The loaded signer is memoized per key ref so repeated checks do not hit the
// password manager.
type Provider struct {
	profiles ports.WalletRepository
	store    ports.SecretStore
	keys     ports.KeySource

	mu     sync.Mutex
	keyRef string
	signer ports.Signer
}

var _ ports.AuthProvider = (*Provider)(nil)

func NewProvider(profiles ports.WalletRepository, store ports.SecretStore, keys ports.KeySource) *Provider {
	return &Provider{profiles: profiles, store: store, keys: keys}
}

// Current reports Ready once the profile store could be read. A missing
// profile is a logged-out state, not an error.
func (p *Provider) Current(ctx context.Context) (ports.AuthState, error) {
	profile, err := p.profiles.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			p.forget()
			return ports.AuthState{Ready: true}, nil
		}
		return ports.AuthState{}, fmt.Errorf("get wallet: %w", err)
	}

	state := ports.AuthState{Ready: true, Authenticated: profile.Authenticated()}
	if !state.Authenticated {
		p.forget()
		return state, nil
	}

	signer, err := p.load(ctx, profile)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return state, nil
		}
		return ports.AuthState{}, err
	}

	state.Wallet = signer
	return state, nil
}

func (p *Provider) load(ctx context.Context, profile domain.WalletProfile) (ports.Signer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.signer != nil && p.keyRef == profile.KeyRef {
		return p.signer, nil
	}

	raw, err := p.store.Get(ctx, profile.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("load wallet key: %w", err)
	}

	signer, err := p.keys.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}
	if signer.Address() != profile.Owner {
		return nil, fmt.Errorf("wallet key does not match owner %s", profile.Owner.Hex())
	}

	p.keyRef = profile.KeyRef
	p.signer = signer
	return signer, nil
}

func (p *Provider) forget() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keyRef = ""
	p.signer = nil
}
