package account

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// EncodeCalls encodes exactly one call as execute and two or more as executeBatch.
func EncodeCalls(calls []domain.Call) ([]byte, error) {
	switch len(calls) {
	case 0:
		return nil, domain.ErrNoCalls
	case 1:
		call := calls[0]
		data, err := accountABI.Pack("execute", call.To, call.ValueOrZero(), nonNilBytes(call.Data))
		if err != nil {
			return nil, fmt.Errorf("encode execute: %w", err)
		}
		return data, nil
	default:
		batch := make([]batchCall, 0, len(calls))
		for _, call := range calls {
			batch = append(batch, batchCall{
				Target: call.To,
				Value:  call.ValueOrZero(),
				Data:   nonNilBytes(call.Data),
			})
		}
		data, err := accountABI.Pack("executeBatch", batch)
		if err != nil {
			return nil, fmt.Errorf("encode executeBatch: %w", err)
		}
		return data, nil
	}
}

// DecodeCalls never fails: anything it cannot read comes back as a single call
// to the zero address carrying the raw bytes.
func DecodeCalls(data []byte) []domain.Call {
	calls, err := decodeCalls(data)
	if err != nil {
		return []domain.Call{{
			To:    common.Address{},
			Value: new(big.Int),
			Data:  common.CopyBytes(data),
		}}
	}
	return calls
}

func decodeCalls(data []byte) (calls []domain.Call, err error) {
	defer func() {
		if r := recover(); r != nil {
			calls = nil
			err = fmt.Errorf("decode account call data: %v", r)
		}
	}()

	if len(data) < 4 {
		return nil, fmt.Errorf("call data too short: %d bytes", len(data))
	}

	method, err := accountABI.MethodById(data[:4])
	if err != nil {
		return nil, err
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method.Name, err)
	}

	switch {
	case bytes.Equal(method.ID, accountABI.Methods["execute"].ID):
		if len(args) != 3 {
			return nil, fmt.Errorf("execute: unexpected argument count %d", len(args))
		}
		return []domain.Call{{
			To:    *abi.ConvertType(args[0], new(common.Address)).(*common.Address),
			Value: *abi.ConvertType(args[1], new(*big.Int)).(**big.Int),
			Data:  *abi.ConvertType(args[2], new([]byte)).(*[]byte),
		}}, nil
	case bytes.Equal(method.ID, accountABI.Methods["executeBatch"].ID):
		if len(args) != 1 {
			return nil, fmt.Errorf("executeBatch: unexpected argument count %d", len(args))
		}
		batch := *abi.ConvertType(args[0], new([]batchCall)).(*[]batchCall)
		out := make([]domain.Call, 0, len(batch))
		for _, entry := range batch {
			out = append(out, domain.Call{To: entry.Target, Value: entry.Value, Data: entry.Data})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported account method %s", method.Name)
	}
}

func nonNilBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
