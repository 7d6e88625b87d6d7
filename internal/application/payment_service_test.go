package application

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenAddress  = common.HexToAddress("0x0000000000000000000000000000000000070ce1")
	accountAddr   = common.HexToAddress("0x0000000000000000000000000000000000acc001")
	submittedHash = common.HexToHash("0xfeed")
)

func TestPaymentServiceBuildCalls(t *testing.T) {
	t.Parallel()

	service := newTestPaymentService(&recordingClient{}, &memoryHistory{}, nil)
	token := tokenAddress

	calls, err := service.BuildCalls(context.Background(), []domain.Transfer{
		{Recipient: "alice", Amount: big.NewInt(1000)},
		{Recipient: aliceAddress.Hex(), Amount: big.NewInt(25), Token: &token},
	})
	require.NoError(t, err)
	require.Len(t, calls, 2)

	assert.Equal(t, aliceAddress, calls[0].To)
	assert.Equal(t, int64(1000), calls[0].Value.Int64())
	assert.Empty(t, calls[0].Data)

	assert.Equal(t, tokenAddress, calls[1].To)
	assert.Equal(t, 0, calls[1].Value.Sign())
	method, err := erc20ABI.MethodById(calls[1].Data[:4])
	require.NoError(t, err)
	assert.Equal(t, "transfer", method.Name)
	args, err := method.Inputs.Unpack(calls[1].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, aliceAddress, args[0])
	assert.Equal(t, int64(25), args[1].(*big.Int).Int64())
}

func TestPaymentServiceBuildCallsRejectsInvalidTransfers(t *testing.T) {
	t.Parallel()

	service := newTestPaymentService(&recordingClient{}, &memoryHistory{}, nil)

	testCases := []struct {
		name      string
		transfers []domain.Transfer
		wantErr   error
	}{
		{name: "no transfers", wantErr: domain.ErrNoCalls},
		{name: "zero amount", transfers: []domain.Transfer{{Recipient: "alice", Amount: big.NewInt(0)}}, wantErr: domain.ErrInvalidAmount},
		{name: "missing amount", transfers: []domain.Transfer{{Recipient: "alice"}}, wantErr: domain.ErrInvalidAmount},
		{name: "unknown contact", transfers: []domain.Transfer{{Recipient: "mallory", Amount: big.NewInt(1)}}, wantErr: domain.ErrContactNotFound},
		{name: "empty recipient", transfers: []domain.Transfer{{Recipient: "", Amount: big.NewInt(1)}}, wantErr: domain.ErrInvalidAddress},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.BuildCalls(context.Background(), tc.transfers)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPaymentServiceSendRecordsHistory(t *testing.T) {
	t.Parallel()

	client := &recordingClient{hash: submittedHash}
	history := &memoryHistory{}
	observer := &recordingObserver{}
	service := newTestPaymentService(client, history, observer)

	result, err := service.Send(context.Background(), []domain.Transfer{{Recipient: "alice", Amount: big.NewInt(7)}}, SendOptions{Note: "rent"})
	require.NoError(t, err)

	assert.Equal(t, submittedHash, result.UserOpHash)
	assert.Equal(t, accountAddr, result.Sender)
	assert.Nil(t, result.Receipt)
	require.Len(t, client.sentCalls(), 1)

	require.Len(t, history.entries, 1)
	entry := history.entries[0]
	assert.Equal(t, submittedHash, entry.UserOpHash)
	assert.Equal(t, domain.OperationStatusPending, entry.Status)
	assert.Equal(t, "rent", entry.Note)
	assert.Equal(t, []string{"pending"}, observer.statuses)
}

func TestPaymentServiceSendWaitsForReceipt(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		success    bool
		wantStatus domain.OperationStatus
	}{
		{name: "included", success: true, wantStatus: domain.OperationStatusSucceeded},
		{name: "reverted", success: false, wantStatus: domain.OperationStatusFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			txHash := common.HexToHash("0xbeef")
			client := &recordingClient{hash: submittedHash, receipt: domain.UserOperationReceipt{Success: tc.success, TransactionHash: txHash}}
			history := &memoryHistory{}
			observer := &recordingObserver{}
			service := newTestPaymentService(client, history, observer)

			result, err := service.Send(context.Background(), []domain.Transfer{{Recipient: "alice", Amount: big.NewInt(7)}}, SendOptions{Wait: true})
			require.NoError(t, err)
			require.NotNil(t, result.Receipt)

			assert.Equal(t, tc.wantStatus, history.entries[0].Status)
			assert.Equal(t, txHash, history.entries[0].TransactionHash)
			assert.Equal(t, []string{"pending", string(tc.wantStatus)}, observer.statuses)
		})
	}
}

func TestPaymentServiceSendKeepsHashWhenHistoryFails(t *testing.T) {
	t.Parallel()

	client := &recordingClient{hash: submittedHash}
	service := newTestPaymentService(client, &memoryHistory{saveErr: errors.New("database is locked")}, nil)

	result, err := service.Send(context.Background(), []domain.Transfer{{Recipient: "alice", Amount: big.NewInt(7)}}, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, submittedHash, result.UserOpHash)
}

func TestPaymentServiceSendSurfacesClientUnavailable(t *testing.T) {
	t.Parallel()

	source := clientSourceFunc(func(context.Context, GetClientOptions) (ports.SessionClient, error) {
		return nil, domain.ErrClientUnavailable
	})
	history := &memoryHistory{}
	service := NewPaymentService(source, testContacts(), history, nil, nil, nil)

	_, err := service.Send(context.Background(), []domain.Transfer{{Recipient: "alice", Amount: big.NewInt(7)}}, SendOptions{})
	require.ErrorIs(t, err, domain.ErrClientUnavailable)
	assert.Empty(t, history.entries)
}

func TestPaymentServiceSendRejectedByBundler(t *testing.T) {
	t.Parallel()

	rejectErr := errors.New("AA21 didn't pay prefund")
	client := &recordingClient{sendErr: rejectErr}
	history := &memoryHistory{}
	observer := &recordingObserver{}
	service := newTestPaymentService(client, history, observer)

	_, err := service.Send(context.Background(), []domain.Transfer{{Recipient: "alice", Amount: big.NewInt(7)}}, SendOptions{})
	require.ErrorIs(t, err, rejectErr)
	assert.Empty(t, history.entries)
	assert.Equal(t, []string{"rejected"}, observer.statuses)
}

func TestPaymentServiceRefreshUpdatesPendingEntries(t *testing.T) {
	t.Parallel()

	txHash := common.HexToHash("0xbeef")
	client := &recordingClient{receipt: domain.UserOperationReceipt{Success: true, TransactionHash: txHash}}
	history := &memoryHistory{entries: []domain.HistoryEntry{
		{UserOpHash: common.HexToHash("0x01"), Status: domain.OperationStatusPending},
		{UserOpHash: common.HexToHash("0x02"), Status: domain.OperationStatusSucceeded},
	}}
	service := newTestPaymentService(client, history, nil)

	updated, err := service.Refresh(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, domain.OperationStatusSucceeded, history.entries[0].Status)
	assert.Equal(t, txHash, history.entries[0].TransactionHash)
}

func newTestPaymentService(client *recordingClient, history *memoryHistory, observer *recordingObserver) *PaymentService {
	source := clientSourceFunc(func(context.Context, GetClientOptions) (ports.SessionClient, error) {
		return client, nil
	})
	var paymentObserver ports.PaymentObserver
	if observer != nil {
		paymentObserver = observer
	}
	clock := &fixedClock{now: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	return NewPaymentService(source, testContacts(), history, paymentObserver, clock, nil)
}

func testContacts() *ContactService {
	return NewContactService(newMemoryContacts(domain.Contact{ID: "c-1", Name: "Alice", Address: aliceAddress}), nil)
}

type clientSourceFunc func(ctx context.Context, opts GetClientOptions) (ports.SessionClient, error)

func (f clientSourceFunc) GetClient(ctx context.Context, opts GetClientOptions) (ports.SessionClient, error) {
	return f(ctx, opts)
}

type recordingClient struct {
	hash    common.Hash
	sendErr error
	receipt domain.UserOperationReceipt

	mu    sync.Mutex
	calls [][]domain.Call
}

func (c *recordingClient) Owner() common.Address   { return ownerA }
func (c *recordingClient) Address() common.Address { return accountAddr }

func (c *recordingClient) IsDeployed(context.Context) (bool, error) { return true, nil }

func (c *recordingClient) SendUserOperation(_ context.Context, calls []domain.Call) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return common.Hash{}, c.sendErr
	}
	c.calls = append(c.calls, calls)
	return c.hash, nil
}

func (c *recordingClient) WaitForUserOperationReceipt(context.Context, common.Hash) (domain.UserOperationReceipt, error) {
	return c.receipt, nil
}

func (c *recordingClient) sentCalls() [][]domain.Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
