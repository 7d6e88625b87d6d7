package bundler

import (
	"math/big"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// userOperationJSON is the EntryPoint v0.7 unpacked user operation as bundlers
// and ERC-7677 paymasters expect it on the wire.
type userOperationJSON struct {
	Sender                        common.Address  `json:"sender"`
	Nonce                         *hexutil.Big    `json:"nonce"`
	Factory                       *common.Address `json:"factory,omitempty"`
	FactoryData                   *hexutil.Bytes  `json:"factoryData,omitempty"`
	CallData                      hexutil.Bytes   `json:"callData"`
	CallGasLimit                  *hexutil.Big    `json:"callGasLimit"`
	VerificationGasLimit          *hexutil.Big    `json:"verificationGasLimit"`
	PreVerificationGas            *hexutil.Big    `json:"preVerificationGas"`
	MaxFeePerGas                  *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas          *hexutil.Big    `json:"maxPriorityFeePerGas"`
	Paymaster                     *common.Address `json:"paymaster,omitempty"`
	PaymasterVerificationGasLimit *hexutil.Big    `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       *hexutil.Big    `json:"paymasterPostOpGasLimit,omitempty"`
	PaymasterData                 *hexutil.Bytes  `json:"paymasterData,omitempty"`
	Signature                     hexutil.Bytes   `json:"signature"`
}

func toUserOperationJSON(op domain.UserOperation) userOperationJSON {
	out := userOperationJSON{
		Sender:               op.Sender,
		Nonce:                hexBig(op.Nonce),
		CallData:             nonNil(op.CallData),
		CallGasLimit:         hexBig(op.CallGasLimit),
		VerificationGasLimit: hexBig(op.VerificationGasLimit),
		PreVerificationGas:   hexBig(op.PreVerificationGas),
		MaxFeePerGas:         hexBig(op.MaxFeePerGas),
		MaxPriorityFeePerGas: hexBig(op.MaxPriorityFeePerGas),
		Signature:            nonNil(op.Signature),
	}

	if op.Factory != nil {
		factory := *op.Factory
		data := hexutil.Bytes(nonNil(op.FactoryData))
		out.Factory = &factory
		out.FactoryData = &data
	}

	if op.Paymaster != nil {
		paymaster := *op.Paymaster
		data := hexutil.Bytes(nonNil(op.PaymasterData))
		out.Paymaster = &paymaster
		out.PaymasterData = &data
		out.PaymasterVerificationGasLimit = hexBig(op.PaymasterVerificationGasLimit)
		out.PaymasterPostOpGasLimit = hexBig(op.PaymasterPostOpGasLimit)
	}

	return out
}

type gasEstimateJSON struct {
	PreVerificationGas            *hexutil.Big `json:"preVerificationGas"`
	VerificationGasLimit          *hexutil.Big `json:"verificationGasLimit"`
	CallGasLimit                  *hexutil.Big `json:"callGasLimit"`
	PaymasterVerificationGasLimit *hexutil.Big `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       *hexutil.Big `json:"paymasterPostOpGasLimit,omitempty"`
}

func (e gasEstimateJSON) toDomain() domain.GasEstimate {
	return domain.GasEstimate{
		PreVerificationGas:            fromHexBig(e.PreVerificationGas),
		VerificationGasLimit:          fromHexBig(e.VerificationGasLimit),
		CallGasLimit:                  fromHexBig(e.CallGasLimit),
		PaymasterVerificationGasLimit: fromHexBig(e.PaymasterVerificationGasLimit),
		PaymasterPostOpGasLimit:       fromHexBig(e.PaymasterPostOpGasLimit),
	}
}

type receiptJSON struct {
	UserOpHash    common.Hash    `json:"userOpHash"`
	Sender        common.Address `json:"sender"`
	Success       bool           `json:"success"`
	Reason        string         `json:"reason"`
	ActualGasCost *hexutil.Big   `json:"actualGasCost"`
	ActualGasUsed *hexutil.Big   `json:"actualGasUsed"`
	Receipt       struct {
		TransactionHash common.Hash     `json:"transactionHash"`
		BlockNumber     *hexutil.Uint64 `json:"blockNumber"`
	} `json:"receipt"`
}

func (r receiptJSON) toDomain() domain.UserOperationReceipt {
	receipt := domain.UserOperationReceipt{
		UserOpHash:      r.UserOpHash,
		Sender:          r.Sender,
		Success:         r.Success,
		Reason:          r.Reason,
		ActualGasCost:   fromHexBig(r.ActualGasCost),
		ActualGasUsed:   fromHexBig(r.ActualGasUsed),
		TransactionHash: r.Receipt.TransactionHash,
	}
	if r.Receipt.BlockNumber != nil {
		receipt.BlockNumber = uint64(*r.Receipt.BlockNumber)
	}
	return receipt
}

type paymasterJSON struct {
	Paymaster                     common.Address `json:"paymaster"`
	PaymasterData                 hexutil.Bytes  `json:"paymasterData"`
	PaymasterVerificationGasLimit *hexutil.Big   `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       *hexutil.Big   `json:"paymasterPostOpGasLimit,omitempty"`
	IsFinal                       bool           `json:"isFinal,omitempty"`
}

func (p paymasterJSON) toDomain() domain.PaymasterData {
	return domain.PaymasterData{
		Paymaster:                     p.Paymaster,
		PaymasterData:                 nonNil(p.PaymasterData),
		PaymasterVerificationGasLimit: fromHexBig(p.PaymasterVerificationGasLimit),
		PaymasterPostOpGasLimit:       fromHexBig(p.PaymasterPostOpGasLimit),
		IsFinal:                       p.IsFinal,
	}
}

func hexBig(v *big.Int) *hexutil.Big {
	return (*hexutil.Big)(domain.BigOrZero(v))
}

// fromHexBig keeps nil so callers can tell a missing field from zero.
func fromHexBig(v *hexutil.Big) *big.Int {
	if v == nil {
		return nil
	}
	return v.ToInt()
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
