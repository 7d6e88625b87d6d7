package account

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var errNilSigner = errors.New("owner signer is nil")

type Contracts struct {
	EntryPoint common.Address
	Factory    common.Address
}

// Descriptor binds one owner to its counterfactual smart account.
// It holds no mutable state once built.
type Descriptor struct {
	owner     ports.Signer
	chain     ports.ChainReader
	contracts Contracts
	address   common.Address
}

// NewDescriptor derives the account address through the factory and returns the
// bound descriptor. RPC failures propagate as-is.
func NewDescriptor(ctx context.Context, owner ports.Signer, chain ports.ChainReader, contracts Contracts) (*Descriptor, error) {
	if owner == nil {
		return nil, errNilSigner
	}

	address, err := DeriveAddress(ctx, chain, contracts.Factory, owner.Address())
	if err != nil {
		return nil, err
	}

	return &Descriptor{
		owner:     owner,
		chain:     chain,
		contracts: contracts,
		address:   address,
	}, nil
}

// DeriveAddress reads the factory's getAddress(owner, 0).
func DeriveAddress(ctx context.Context, chain ports.ChainReader, factory, owner common.Address) (common.Address, error) {
	values, err := callView(ctx, chain, factory, factoryABI, "getAddress", owner, accountSalt)
	if err != nil {
		return common.Address{}, err
	}

	return *abi.ConvertType(values[0], new(common.Address)).(*common.Address), nil
}

func (d *Descriptor) Address() common.Address {
	return d.address
}

func (d *Descriptor) Owner() common.Address {
	return d.owner.Address()
}

func (d *Descriptor) EntryPoint() common.Address {
	return d.contracts.EntryPoint
}

// FactoryArgs returns the deployment target and createAccount(owner, 0) call data.
func (d *Descriptor) FactoryArgs() (common.Address, []byte, error) {
	data, err := factoryABI.Pack("createAccount", d.owner.Address(), accountSalt)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("encode createAccount: %w", err)
	}

	return d.contracts.Factory, data, nil
}

func (d *Descriptor) EncodeCalls(calls []domain.Call) ([]byte, error) {
	return EncodeCalls(calls)
}

func (d *Descriptor) DecodeCalls(data []byte) []domain.Call {
	return DecodeCalls(data)
}

// Nonce reads the entry point nonce at key 0.
func (d *Descriptor) Nonce(ctx context.Context) (*big.Int, error) {
	values, err := callView(ctx, d.chain, d.contracts.EntryPoint, entryPointABI, "getNonce", d.address, nonceKey)
	if err != nil {
		return nil, err
	}

	return *abi.ConvertType(values[0], new(*big.Int)).(**big.Int), nil
}

func (d *Descriptor) IsDeployed(ctx context.Context) (bool, error) {
	code, err := d.chain.CodeAt(ctx, d.address, nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// UserOperationHash asks the entry point for the canonical hash of op, with the
// signature replaced by empty bytes and unset gas fields resolved to zero.
func (d *Descriptor) UserOperationHash(ctx context.Context, op domain.UserOperation) (common.Hash, error) {
	packed := packUserOperation(op)
	packed.Signature = []byte{}

	values, err := callView(ctx, d.chain, d.contracts.EntryPoint, entryPointABI, "getUserOpHash", packed)
	if err != nil {
		return common.Hash{}, err
	}

	raw := *abi.ConvertType(values[0], new([32]byte)).(*[32]byte)
	return common.Hash(raw), nil
}

// SignUserOperation returns the owner's personal-sign signature over the entry point hash.
func (d *Descriptor) SignUserOperation(ctx context.Context, op domain.UserOperation) ([]byte, error) {
	hash, err := d.UserOperationHash(ctx, op)
	if err != nil {
		return nil, err
	}

	sig, err := d.owner.SignMessage(ctx, hash.Bytes())
	if err != nil {
		return nil, fmt.Errorf("sign user operation hash: %w", err)
	}

	return sig, nil
}

func (d *Descriptor) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	return d.owner.SignMessage(ctx, msg)
}

func (d *Descriptor) SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error) {
	return d.owner.SignTypedData(ctx, data)
}

func (d *Descriptor) DummySignature() []byte {
	return common.CopyBytes(dummySignature)
}

func packUserOperation(op domain.UserOperation) packedUserOperation {
	return packedUserOperation{
		Sender:             op.Sender,
		Nonce:              domain.BigOrZero(op.Nonce),
		InitCode:           op.InitCode(),
		CallData:           nonNilBytes(op.CallData),
		AccountGasLimits:   op.AccountGasLimits(),
		PreVerificationGas: domain.BigOrZero(op.PreVerificationGas),
		GasFees:            op.GasFees(),
		PaymasterAndData:   op.PaymasterAndData(),
		Signature:          nonNilBytes(op.Signature),
	}
}

func callView(ctx context.Context, chain ports.ChainReader, to common.Address, contract abi.ABI, method string, args ...any) ([]any, error) {
	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	output, err := chain.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, err
	}

	values, err := contract.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("decode %s result: empty output", method)
	}

	return values, nil
}
