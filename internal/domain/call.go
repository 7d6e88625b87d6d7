package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is one target invocation executed by the smart account.
type Call struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// ValueOrZero never returns nil.
func (c Call) ValueOrZero() *big.Int {
	if c.Value == nil {
		return new(big.Int)
	}
	return c.Value
}

// UserOperation holds the unpacked EntryPoint v0.7 fields.
type UserOperation struct {
	Sender      common.Address
	Nonce       *big.Int
	Factory     *common.Address
	FactoryData []byte
	CallData    []byte

	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int

	Paymaster                     *common.Address
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
	PaymasterData                 []byte

	Signature []byte
}

// InitCode is factory ++ factoryData, empty once the account is deployed.
func (op UserOperation) InitCode() []byte {
	if op.Factory == nil {
		return []byte{}
	}

	out := make([]byte, 0, common.AddressLength+len(op.FactoryData))
	out = append(out, op.Factory.Bytes()...)
	out = append(out, op.FactoryData...)
	return out
}

// PaymasterAndData is paymaster ++ verificationGas(16) ++ postOpGas(16) ++ data.
func (op UserOperation) PaymasterAndData() []byte {
	if op.Paymaster == nil {
		return []byte{}
	}

	out := make([]byte, 0, common.AddressLength+32+len(op.PaymasterData))
	out = append(out, op.Paymaster.Bytes()...)
	out = append(out, uint128Bytes(op.PaymasterVerificationGasLimit)...)
	out = append(out, uint128Bytes(op.PaymasterPostOpGasLimit)...)
	out = append(out, op.PaymasterData...)
	return out
}

// AccountGasLimits packs verificationGasLimit in the high half and callGasLimit in the low half.
func (op UserOperation) AccountGasLimits() [32]byte {
	return packUint128Pair(op.VerificationGasLimit, op.CallGasLimit)
}

// GasFees packs maxPriorityFeePerGas in the high half and maxFeePerGas in the low half.
func (op UserOperation) GasFees() [32]byte {
	return packUint128Pair(op.MaxPriorityFeePerGas, op.MaxFeePerGas)
}

func packUint128Pair(high, low *big.Int) [32]byte {
	var out [32]byte
	copy(out[:16], uint128Bytes(high))
	copy(out[16:], uint128Bytes(low))
	return out
}

func uint128Bytes(v *big.Int) []byte {
	out := make([]byte, 16)
	if v == nil || v.Sign() <= 0 {
		return out
	}
	raw := v.Bytes()
	if len(raw) > 16 {
		raw = raw[len(raw)-16:]
	}
	copy(out[16-len(raw):], raw)
	return out
}

// BigOrZero resolves an unset gas or fee field.
func BigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

type GasEstimate struct {
	PreVerificationGas            *big.Int
	VerificationGasLimit          *big.Int
	CallGasLimit                  *big.Int
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
}

type PaymasterData struct {
	Paymaster                     common.Address
	PaymasterData                 []byte
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
	IsFinal                       bool
}

type UserOperationReceipt struct {
	UserOpHash      common.Hash
	Sender          common.Address
	Success         bool
	Reason          string
	ActualGasCost   *big.Int
	ActualGasUsed   *big.Int
	TransactionHash common.Hash
	BlockNumber     uint64
}
