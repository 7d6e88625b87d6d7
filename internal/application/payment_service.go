package application

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

const erc20ABIJSON = `[{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}]`

var erc20ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(fmt.Sprintf("parse erc20 abi: %v", err))
	}
	return parsed
}()

// ClientSource hands out the current session client. *SessionManager satisfies it.
type ClientSource interface {
	GetClient(ctx context.Context, opts GetClientOptions) (ports.SessionClient, error)
}

type SendOptions struct {
	// Wait blocks until the bundler reports a receipt.
	Wait bool
	Note string
	// ClientTimeout bounds how long to wait for a usable client.
	ClientTimeout time.Duration
}

type SendResult struct {
	UserOpHash common.Hash
	Sender     common.Address
	Calls      []domain.Call
	// Receipt is nil unless SendOptions.Wait was set.
	Receipt *domain.UserOperationReceipt
}

type PaymentService struct {
	session  ClientSource
	contacts *ContactService
	history  ports.HistoryRepository
	observer ports.PaymentObserver
	clock    ports.Clock
	logger   logrus.FieldLogger
}

func NewPaymentService(session ClientSource, contacts *ContactService, history ports.HistoryRepository, observer ports.PaymentObserver, clock ports.Clock, logger logrus.FieldLogger) *PaymentService {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = discardLogger()
	}

	return &PaymentService{
		session:  session,
		contacts: contacts,
		history:  history,
		observer: observer,
		clock:    clock,
		logger:   logger.WithField("component", "payments"),
	}
}

// BuildCalls resolves recipients and encodes every transfer as one call, in order.
func (s *PaymentService) BuildCalls(ctx context.Context, transfers []domain.Transfer) ([]domain.Call, error) {
	if len(transfers) == 0 {
		return nil, domain.ErrNoCalls
	}

	calls := make([]domain.Call, 0, len(transfers))
	for i, transfer := range transfers {
		if err := transfer.Validate(); err != nil {
			return nil, fmt.Errorf("transfer %d: %w", i+1, err)
		}

		to, err := s.contacts.Resolve(ctx, transfer.Recipient)
		if err != nil {
			return nil, fmt.Errorf("transfer %d: %w", i+1, err)
		}

		call, err := transferCall(to, transfer.Amount, transfer.Token)
		if err != nil {
			return nil, fmt.Errorf("transfer %d: %w", i+1, err)
		}
		calls = append(calls, call)
	}

	return calls, nil
}

// Send submits all transfers as a single user operation.
func (s *PaymentService) Send(ctx context.Context, transfers []domain.Transfer, opts SendOptions) (SendResult, error) {
	calls, err := s.BuildCalls(ctx, transfers)
	if err != nil {
		return SendResult{}, err
	}

	client, err := s.session.GetClient(ctx, GetClientOptions{Timeout: opts.ClientTimeout})
	if err != nil {
		return SendResult{}, err
	}

	hash, err := client.SendUserOperation(ctx, calls)
	if err != nil {
		s.observer.UserOperationSubmitted("rejected")
		return SendResult{}, fmt.Errorf("send user operation: %w", err)
	}
	s.observer.UserOperationSubmitted(string(domain.OperationStatusPending))

	result := SendResult{UserOpHash: hash, Sender: client.Address(), Calls: calls}
	log := s.logger.WithFields(logrus.Fields{
		"user_op_hash": hash.Hex(),
		"sender":       result.Sender.Hex(),
		"calls":        len(calls),
	})
	log.Info("user operation submitted")

	now := s.clock.Now().UTC()
	entry := domain.HistoryEntry{
		UserOpHash:  hash,
		Sender:      result.Sender,
		Calls:       calls,
		Status:      domain.OperationStatusPending,
		Note:        opts.Note,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	// The operation is already with the bundler; a history failure must not hide its hash.
	if err := s.history.Save(ctx, entry); err != nil {
		log.WithError(err).Warn("record user operation history")
	}

	if !opts.Wait {
		return result, nil
	}

	receipt, err := client.WaitForUserOperationReceipt(ctx, hash)
	if err != nil {
		return result, fmt.Errorf("wait for user operation %s: %w", hash.Hex(), err)
	}
	result.Receipt = &receipt

	status := domain.OperationStatusSucceeded
	if !receipt.Success {
		status = domain.OperationStatusFailed
	}
	s.observer.UserOperationSubmitted(string(status))
	if err := s.history.UpdateStatus(ctx, hash, status, receipt.TransactionHash); err != nil {
		log.WithError(err).Warn("update user operation history")
	}
	log.WithFields(logrus.Fields{
		"status":           status,
		"transaction_hash": receipt.TransactionHash.Hex(),
	}).Info("user operation included")

	return result, nil
}

// Refresh polls the receipt of every pending history entry once.
func (s *PaymentService) Refresh(ctx context.Context, limit int) (int, error) {
	entries, err := s.history.List(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list history: %w", err)
	}

	var pending []domain.HistoryEntry
	for _, entry := range entries {
		if entry.Status == domain.OperationStatusPending {
			pending = append(pending, entry)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	client, err := s.session.GetClient(ctx, GetClientOptions{})
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, entry := range pending {
		receiptCtx, cancel := context.WithTimeout(ctx, time.Second)
		receipt, err := client.WaitForUserOperationReceipt(receiptCtx, entry.UserOpHash)
		cancel()
		if err != nil {
			continue
		}

		status := domain.OperationStatusSucceeded
		if !receipt.Success {
			status = domain.OperationStatusFailed
		}
		if err := s.history.UpdateStatus(ctx, entry.UserOpHash, status, receipt.TransactionHash); err != nil {
			return updated, fmt.Errorf("update history: %w", err)
		}
		updated++
	}

	return updated, nil
}

func (s *PaymentService) History(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	entries, err := s.history.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return entries, nil
}

func transferCall(to common.Address, amount *big.Int, token *common.Address) (domain.Call, error) {
	if token == nil {
		return domain.Call{To: to, Value: new(big.Int).Set(amount)}, nil
	}

	data, err := erc20ABI.Pack("transfer", to, amount)
	if err != nil {
		return domain.Call{}, fmt.Errorf("encode token transfer: %w", err)
	}

	return domain.Call{To: *token, Value: new(big.Int), Data: data}, nil
}
