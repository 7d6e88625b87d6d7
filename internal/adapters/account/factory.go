package account

import (
	"context"

	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
)

// ClientFactory composes cached descriptors with the bundler transport.
type ClientFactory struct {
	cache   *Cache
	bundler ports.Bundler
	opts    ClientOptions
}

var _ ports.ClientFactory = (*ClientFactory)(nil)

func NewClientFactory(cache *Cache, bundler ports.Bundler, opts ClientOptions) *ClientFactory {
	return &ClientFactory{cache: cache, bundler: bundler, opts: opts}
}

func (f *ClientFactory) NewClient(ctx context.Context, owner ports.Signer) (ports.SessionClient, error) {
	descriptor, err := f.cache.Get(ctx, owner)
	if err != nil {
		return nil, err
	}

	client, err := NewSmartAccountClient(descriptor, f.bundler, f.opts)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (f *ClientFactory) Invalidate(owner common.Address) {
	f.cache.Invalidate(owner)
}
