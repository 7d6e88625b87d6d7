package bundler

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymasterRequestsFollowERC7677(t *testing.T) {
	t.Parallel()

	paymasterAddr := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	server := newRPCServer(t)
	server.handle("pm_getPaymasterStubData", func([]json.RawMessage) (any, *rpcError) {
		return map[string]any{
			"paymaster":                     paymasterAddr.Hex(),
			"paymasterData":                 "0x01",
			"paymasterVerificationGasLimit": "0xea60",
			"paymasterPostOpGasLimit":       "0x2710",
		}, nil
	})
	server.handle("pm_getPaymasterData", func([]json.RawMessage) (any, *rpcError) {
		return map[string]any{
			"paymaster":     paymasterAddr.Hex(),
			"paymasterData": "0x0203",
		}, nil
	})

	paymaster, err := DialPaymaster(context.Background(), server.URL, map[string]any{"policyId": "sponsor-all"}, Options{RequestsPerSecond: -1})
	require.NoError(t, err)
	t.Cleanup(paymaster.Close)

	op := domain.UserOperation{Sender: testSender, Nonce: big.NewInt(3)}

	stub, err := paymaster.GetPaymasterStubData(context.Background(), op, testEntryPoint, big.NewInt(8453))
	require.NoError(t, err)
	assert.Equal(t, paymasterAddr, stub.Paymaster)
	assert.Equal(t, []byte{0x01}, stub.PaymasterData)
	assert.Equal(t, int64(60_000), stub.PaymasterVerificationGasLimit.Int64())
	assert.Equal(t, int64(10_000), stub.PaymasterPostOpGasLimit.Int64())

	params := server.lastParams("pm_getPaymasterStubData")
	require.Len(t, params, 4)
	var chainID string
	require.NoError(t, json.Unmarshal(params[2], &chainID))
	assert.Equal(t, "0x2105", chainID)
	var policy map[string]string
	require.NoError(t, json.Unmarshal(params[3], &policy))
	assert.Equal(t, "sponsor-all", policy["policyId"])

	final, err := paymaster.GetPaymasterData(context.Background(), op, testEntryPoint, big.NewInt(8453))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x03}, final.PaymasterData)
	assert.Nil(t, final.PaymasterVerificationGasLimit)
}

func TestPaymasterSendsEmptyContextWithoutPolicy(t *testing.T) {
	t.Parallel()

	server := newRPCServer(t)
	server.handle("pm_getPaymasterStubData", func([]json.RawMessage) (any, *rpcError) {
		return map[string]any{"paymaster": testSender.Hex(), "paymasterData": "0x", "isFinal": true}, nil
	})

	paymaster, err := DialPaymaster(context.Background(), server.URL, nil, Options{RequestsPerSecond: -1})
	require.NoError(t, err)
	t.Cleanup(paymaster.Close)

	stub, err := paymaster.GetPaymasterStubData(context.Background(), domain.UserOperation{Sender: testSender}, testEntryPoint, big.NewInt(1))
	require.NoError(t, err)
	assert.True(t, stub.IsFinal)
	assert.Equal(t, []byte{}, stub.PaymasterData)

	assert.JSONEq(t, `{}`, string(server.lastParams("pm_getPaymasterStubData")[3]))
}
