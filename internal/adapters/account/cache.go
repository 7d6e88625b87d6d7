package account

import (
	"context"
	"sync"

	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
)

// Cache memoizes one Descriptor per owner address until invalidated.
type Cache struct {
	chain     ports.ChainReader
	contracts Contracts

	mu      sync.Mutex
	entries map[common.Address]*Descriptor
}

func NewCache(chain ports.ChainReader, contracts Contracts) *Cache {
	return &Cache{
		chain:     chain,
		contracts: contracts,
		entries:   map[common.Address]*Descriptor{},
	}
}

// Get returns the memoized descriptor for owner, deriving it on first use.
// A failed build is not cached.
func (c *Cache) Get(ctx context.Context, owner ports.Signer) (*Descriptor, error) {
	if owner == nil {
		return nil, errNilSigner
	}
	key := owner.Address()

	c.mu.Lock()
	if cached, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	descriptor, err := NewDescriptor(ctx, owner, c.chain, c.contracts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.entries[key]; ok {
		return cached, nil
	}
	c.entries[key] = descriptor
	return descriptor, nil
}

func (c *Cache) Invalidate(owner common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, owner)
}

func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[common.Address]*Descriptor{}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
