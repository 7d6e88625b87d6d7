package account

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	localsigner "github.com/bnema/smartwallet-cli/internal/adapters/signer/local"
	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOwnerKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var (
	testEntryPoint = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")
	testFactory    = common.HexToAddress("0x91E60e0613810449d098b0b5Ec8b51A0FE8c8985")
	testAccount    = common.HexToAddress("0x00000000000000000000000000000000000acc01")
)

func TestDescriptorDerivesAddressFromFactory(t *testing.T) {
	t.Parallel()

	chain := newFakeChain(t)
	owner := mustSigner(t)

	descriptor, err := NewDescriptor(context.Background(), owner, chain, testContracts())
	require.NoError(t, err)
	assert.Equal(t, testAccount, descriptor.Address())
	assert.Equal(t, owner.Address(), descriptor.Owner())
	assert.Equal(t, owner.Address(), chain.lastOwner)
	assert.Equal(t, 0, chain.lastSalt.Sign())
}

func TestDescriptorPropagatesRPCErrors(t *testing.T) {
	t.Parallel()

	rpcErr := errors.New("dial tcp: connection refused")
	chain := newFakeChain(t)
	chain.callErr = rpcErr

	_, err := NewDescriptor(context.Background(), mustSigner(t), chain, testContracts())
	require.ErrorIs(t, err, rpcErr)
	assert.Equal(t, 1, chain.callCount())
}

func TestDescriptorFactoryArgsEncodesCreateAccount(t *testing.T) {
	t.Parallel()

	owner := mustSigner(t)
	descriptor, err := NewDescriptor(context.Background(), owner, newFakeChain(t), testContracts())
	require.NoError(t, err)

	factory, data, err := descriptor.FactoryArgs()
	require.NoError(t, err)
	assert.Equal(t, testFactory, factory)
	assert.Equal(t, factoryABI.Methods["createAccount"].ID, data[:4])

	args, err := factoryABI.Methods["createAccount"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, owner.Address(), args[0])
	assert.Equal(t, 0, args[1].(*big.Int).Sign())
}

func TestDescriptorNonceUsesKeyZero(t *testing.T) {
	t.Parallel()

	chain := newFakeChain(t)
	chain.nonce = big.NewInt(7)
	descriptor, err := NewDescriptor(context.Background(), mustSigner(t), chain, testContracts())
	require.NoError(t, err)

	nonce, err := descriptor.Nonce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), nonce.Int64())
	assert.Equal(t, testAccount, chain.lastNonceSender)
	assert.Equal(t, 0, chain.lastNonceKey.Sign())
}

func TestDescriptorSignUserOperationHashesWithEmptySignature(t *testing.T) {
	t.Parallel()

	chain := newFakeChain(t)
	owner := mustSigner(t)
	descriptor, err := NewDescriptor(context.Background(), owner, chain, testContracts())
	require.NoError(t, err)

	op := domain.UserOperation{
		Sender:               testAccount,
		Nonce:                big.NewInt(3),
		CallData:             []byte{0x01, 0x02},
		CallGasLimit:         big.NewInt(100_000),
		VerificationGasLimit: big.NewInt(200_000),
		MaxFeePerGas:         big.NewInt(30),
		MaxPriorityFeePerGas: big.NewInt(2),
		Signature:            []byte{0xde, 0xad},
	}

	sig, err := descriptor.SignUserOperation(context.Background(), op)
	require.NoError(t, err)

	packed := chain.lastHashedOp
	assert.Empty(t, packed.Signature)
	assert.Equal(t, testAccount, packed.Sender)
	assert.Equal(t, int64(3), packed.Nonce.Int64())
	assert.Equal(t, 0, packed.PreVerificationGas.Sign(), "unset fields resolve to zero")
	assert.Equal(t, op.AccountGasLimits(), packed.AccountGasLimits)
	assert.Equal(t, op.GasFees(), packed.GasFees)

	hash := chain.userOpHash()
	pub, err := crypto.SigToPub(accounts.TextHash(hash.Bytes()), normalizeV(sig))
	require.NoError(t, err)
	assert.Equal(t, owner.Address(), crypto.PubkeyToAddress(*pub))
}

func TestDescriptorIsDeployedReadsCode(t *testing.T) {
	t.Parallel()

	chain := newFakeChain(t)
	descriptor, err := NewDescriptor(context.Background(), mustSigner(t), chain, testContracts())
	require.NoError(t, err)

	deployed, err := descriptor.IsDeployed(context.Background())
	require.NoError(t, err)
	assert.False(t, deployed)

	chain.code = []byte{0x60, 0x80}
	deployed, err = descriptor.IsDeployed(context.Background())
	require.NoError(t, err)
	assert.True(t, deployed)
}

func TestCacheMemoizesPerOwnerUntilInvalidated(t *testing.T) {
	t.Parallel()

	chain := newFakeChain(t)
	cache := NewCache(chain, testContracts())
	owner := mustSigner(t)

	first, err := cache.Get(context.Background(), owner)
	require.NoError(t, err)
	second, err := cache.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, chain.callCount())

	cache.Invalidate(owner.Address())
	third, err := cache.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, chain.callCount())

	cache.Reset()
	assert.Equal(t, 0, cache.Len())
}

func TestCacheDoesNotKeepFailedBuilds(t *testing.T) {
	t.Parallel()

	chain := newFakeChain(t)
	chain.callErr = errors.New("timeout")
	cache := NewCache(chain, testContracts())
	owner := mustSigner(t)

	_, err := cache.Get(context.Background(), owner)
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	chain.setCallErr(nil)
	_, err = cache.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}

func testContracts() Contracts {
	return Contracts{EntryPoint: testEntryPoint, Factory: testFactory}
}

func mustSigner(t *testing.T) *localsigner.Signer {
	t.Helper()

	signer, err := localsigner.ParseSigner(testOwnerKey)
	require.NoError(t, err)
	return signer
}

func normalizeV(sig []byte) []byte {
	out := common.CopyBytes(sig)
	out[64] -= 27
	return out
}

// fakeChain answers the factory and entry point views by selector.
type fakeChain struct {
	t *testing.T

	mu              sync.Mutex
	calls           int
	callErr         error
	nonce           *big.Int
	code            []byte
	gasPrice        *big.Int
	tipCap          *big.Int
	lastOwner       common.Address
	lastSalt        *big.Int
	lastNonceSender common.Address
	lastNonceKey    *big.Int
	lastHashedOp    packedUserOperation
	lastHashInput   []byte
}

func newFakeChain(t *testing.T) *fakeChain {
	return &fakeChain{
		t:        t,
		nonce:    big.NewInt(0),
		gasPrice: big.NewInt(1_000_000_000),
		tipCap:   big.NewInt(100_000_000),
	}
}

func (c *fakeChain) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *fakeChain) setCallErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callErr = err
}

func (c *fakeChain) userOpHash() common.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return crypto.Keccak256Hash(c.lastHashInput)
}

func (c *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.callErr != nil {
		return nil, c.callErr
	}

	selector := msg.Data[:4]
	switch {
	case bytes.Equal(selector, factoryABI.Methods["getAddress"].ID):
		require.Equal(c.t, testFactory, *msg.To)
		args, err := factoryABI.Methods["getAddress"].Inputs.Unpack(msg.Data[4:])
		require.NoError(c.t, err)
		c.lastOwner = args[0].(common.Address)
		c.lastSalt = args[1].(*big.Int)
		return factoryABI.Methods["getAddress"].Outputs.Pack(testAccount)
	case bytes.Equal(selector, entryPointABI.Methods["getNonce"].ID):
		require.Equal(c.t, testEntryPoint, *msg.To)
		args, err := entryPointABI.Methods["getNonce"].Inputs.Unpack(msg.Data[4:])
		require.NoError(c.t, err)
		c.lastNonceSender = args[0].(common.Address)
		c.lastNonceKey = args[1].(*big.Int)
		return entryPointABI.Methods["getNonce"].Outputs.Pack(c.nonce)
	case bytes.Equal(selector, entryPointABI.Methods["getUserOpHash"].ID):
		args, err := entryPointABI.Methods["getUserOpHash"].Inputs.Unpack(msg.Data[4:])
		require.NoError(c.t, err)
		c.lastHashedOp = *abi.ConvertType(args[0], new(packedUserOperation)).(*packedUserOperation)
		c.lastHashInput = common.CopyBytes(msg.Data)
		return entryPointABI.Methods["getUserOpHash"].Outputs.Pack([32]byte(crypto.Keccak256Hash(msg.Data)))
	default:
		c.t.Fatalf("unexpected selector %x", selector)
		return nil, nil
	}
}

func (c *fakeChain) CodeAt(_ context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code, nil
}

func (c *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return c.gasPrice, nil
}

func (c *fakeChain) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return c.tipCap, nil
}
