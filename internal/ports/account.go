package ports

import (
	"context"
	"math/big"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer is the owner's embedded signing wallet.
type Signer interface {
	Address() common.Address
	// SignMessage signs msg as an EIP-191 personal message.
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
}

// AuthState is a point-in-time view of the auth subsystem.
type AuthState struct {
	Ready         bool
	Authenticated bool
	Wallet        Signer
}

// Satisfied reports whether every prerequisite for building a client holds.
func (s AuthState) Satisfied() bool {
	return s.Ready && s.Authenticated && s.Wallet != nil
}

func (s AuthState) Owner() common.Address {
	if s.Wallet == nil {
		return common.Address{}
	}
	return s.Wallet.Address()
}

type AuthProvider interface {
	Current(ctx context.Context) (AuthState, error)
}

// ChainReader is the read-only subset of an Ethereum JSON-RPC client.
// *ethclient.Client satisfies it.
type ChainReader interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
}

type Bundler interface {
	SendUserOperation(ctx context.Context, op domain.UserOperation, entryPoint common.Address) (common.Hash, error)
	EstimateUserOperationGas(ctx context.Context, op domain.UserOperation, entryPoint common.Address) (domain.GasEstimate, error)
	// GetUserOperationReceipt returns nil while the operation is pending.
	GetUserOperationReceipt(ctx context.Context, hash common.Hash) (*domain.UserOperationReceipt, error)
}

// Paymaster follows ERC-7677.
type Paymaster interface {
	GetPaymasterStubData(ctx context.Context, op domain.UserOperation, entryPoint common.Address, chainID *big.Int) (domain.PaymasterData, error)
	GetPaymasterData(ctx context.Context, op domain.UserOperation, entryPoint common.Address, chainID *big.Int) (domain.PaymasterData, error)
}

// SessionClient is the usable handle through which operations are submitted.
type SessionClient interface {
	Owner() common.Address
	Address() common.Address
	IsDeployed(ctx context.Context) (bool, error)
	SendUserOperation(ctx context.Context, calls []domain.Call) (common.Hash, error)
	WaitForUserOperationReceipt(ctx context.Context, hash common.Hash) (domain.UserOperationReceipt, error)
}

// ClientFactory composes an account descriptor for owner with the bundler transport.
type ClientFactory interface {
	NewClient(ctx context.Context, owner Signer) (SessionClient, error)
	// Invalidate drops any memoized descriptor for owner.
	Invalidate(owner common.Address)
}

// KeySigner is a Signer whose private key can be exported for storage.
type KeySigner interface {
	Signer
	ExportHex() string
}

type KeySource interface {
	Generate() (KeySigner, error)
	Parse(raw string) (KeySigner, error)
}
