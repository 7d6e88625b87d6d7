package account

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
)

const defaultReceiptPollInterval = 2 * time.Second

type ClientOptions struct {
	Chain ports.ChainReader
	// Paymaster is optional; operations are self-funded without it.
	Paymaster           ports.Paymaster
	ChainID             *big.Int
	ReceiptPollInterval time.Duration
}

// SmartAccountClient submits user operations for one descriptor through a bundler.
type SmartAccountClient struct {
	account   *Descriptor
	bundler   ports.Bundler
	chain     ports.ChainReader
	paymaster ports.Paymaster
	chainID   *big.Int
	poll      time.Duration
}

var _ ports.SessionClient = (*SmartAccountClient)(nil)

// NewSmartAccountClient checks the composed capabilities once; a client that
// passes construction is usable until its owner changes.
func NewSmartAccountClient(account *Descriptor, bundler ports.Bundler, opts ClientOptions) (*SmartAccountClient, error) {
	if account == nil || account.owner == nil {
		return nil, fmt.Errorf("%w: account", domain.ErrClientIncomplete)
	}
	if bundler == nil {
		return nil, fmt.Errorf("%w: user operation transport", domain.ErrClientIncomplete)
	}

	chain := opts.Chain
	if chain == nil {
		chain = account.chain
	}
	if chain == nil {
		return nil, fmt.Errorf("%w: chain reader", domain.ErrClientIncomplete)
	}

	poll := opts.ReceiptPollInterval
	if poll <= 0 {
		poll = defaultReceiptPollInterval
	}

	chainID := opts.ChainID
	if chainID == nil {
		chainID = new(big.Int)
	}

	return &SmartAccountClient{
		account:   account,
		bundler:   bundler,
		chain:     chain,
		paymaster: opts.Paymaster,
		chainID:   chainID,
		poll:      poll,
	}, nil
}

func (c *SmartAccountClient) Account() *Descriptor {
	return c.account
}

func (c *SmartAccountClient) Owner() common.Address {
	return c.account.Owner()
}

func (c *SmartAccountClient) Address() common.Address {
	return c.account.Address()
}

func (c *SmartAccountClient) IsDeployed(ctx context.Context) (bool, error) {
	return c.account.IsDeployed(ctx)
}

// SendUserOperation builds, prices, signs and submits one operation carrying calls.
func (c *SmartAccountClient) SendUserOperation(ctx context.Context, calls []domain.Call) (common.Hash, error) {
	op, err := c.PrepareUserOperation(ctx, calls)
	if err != nil {
		return common.Hash{}, err
	}

	sig, err := c.account.SignUserOperation(ctx, op)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign user operation: %w", err)
	}
	op.Signature = sig

	hash, err := c.bundler.SendUserOperation(ctx, op, c.account.EntryPoint())
	if err != nil {
		return common.Hash{}, fmt.Errorf("send user operation: %w", err)
	}

	return hash, nil
}

// PrepareUserOperation fills every field except the final signature.
func (c *SmartAccountClient) PrepareUserOperation(ctx context.Context, calls []domain.Call) (domain.UserOperation, error) {
	callData, err := c.account.EncodeCalls(calls)
	if err != nil {
		return domain.UserOperation{}, err
	}

	nonce, err := c.account.Nonce(ctx)
	if err != nil {
		return domain.UserOperation{}, fmt.Errorf("read account nonce: %w", err)
	}

	op := domain.UserOperation{
		Sender:    c.account.Address(),
		Nonce:     nonce,
		CallData:  callData,
		Signature: c.account.DummySignature(),
	}

	deployed, err := c.account.IsDeployed(ctx)
	if err != nil {
		return domain.UserOperation{}, fmt.Errorf("read account code: %w", err)
	}
	if !deployed {
		factory, factoryData, err := c.account.FactoryArgs()
		if err != nil {
			return domain.UserOperation{}, err
		}
		op.Factory = &factory
		op.FactoryData = factoryData
	}

	if err := c.applyFees(ctx, &op); err != nil {
		return domain.UserOperation{}, err
	}

	if c.paymaster != nil {
		stub, err := c.paymaster.GetPaymasterStubData(ctx, op, c.account.EntryPoint(), c.chainID)
		if err != nil {
			return domain.UserOperation{}, fmt.Errorf("get paymaster stub data: %w", err)
		}
		applyPaymaster(&op, stub)
	}

	estimate, err := c.bundler.EstimateUserOperationGas(ctx, op, c.account.EntryPoint())
	if err != nil {
		return domain.UserOperation{}, fmt.Errorf("estimate user operation gas: %w", err)
	}
	applyEstimate(&op, estimate)

	if c.paymaster != nil {
		final, err := c.paymaster.GetPaymasterData(ctx, op, c.account.EntryPoint(), c.chainID)
		if err != nil {
			return domain.UserOperation{}, fmt.Errorf("get paymaster data: %w", err)
		}
		applyPaymaster(&op, final)
	}

	return op, nil
}

// WaitForUserOperationReceipt polls the bundler until the operation is included or ctx ends.
func (c *SmartAccountClient) WaitForUserOperationReceipt(ctx context.Context, hash common.Hash) (domain.UserOperationReceipt, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		receipt, err := c.bundler.GetUserOperationReceipt(ctx, hash)
		if err != nil {
			return domain.UserOperationReceipt{}, fmt.Errorf("get user operation receipt: %w", err)
		}
		if receipt != nil {
			return *receipt, nil
		}

		select {
		case <-ctx.Done():
			return domain.UserOperationReceipt{}, fmt.Errorf("wait for user operation %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *SmartAccountClient) applyFees(ctx context.Context, op *domain.UserOperation) error {
	tip, err := c.chain.SuggestGasTipCap(ctx)
	if err != nil {
		return fmt.Errorf("suggest gas tip cap: %w", err)
	}
	price, err := c.chain.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("suggest gas price: %w", err)
	}

	op.MaxPriorityFeePerGas = tip
	op.MaxFeePerGas = new(big.Int).Add(price, tip)
	return nil
}

func applyEstimate(op *domain.UserOperation, estimate domain.GasEstimate) {
	op.PreVerificationGas = estimate.PreVerificationGas
	op.VerificationGasLimit = estimate.VerificationGasLimit
	op.CallGasLimit = estimate.CallGasLimit
	if op.Paymaster != nil && estimate.PaymasterVerificationGasLimit != nil {
		op.PaymasterVerificationGasLimit = estimate.PaymasterVerificationGasLimit
	}
	if op.Paymaster != nil && estimate.PaymasterPostOpGasLimit != nil {
		op.PaymasterPostOpGasLimit = estimate.PaymasterPostOpGasLimit
	}
}

func applyPaymaster(op *domain.UserOperation, data domain.PaymasterData) {
	paymaster := data.Paymaster
	op.Paymaster = &paymaster
	op.PaymasterData = data.PaymasterData
	if data.PaymasterVerificationGasLimit != nil {
		op.PaymasterVerificationGasLimit = data.PaymasterVerificationGasLimit
	}
	if data.PaymasterPostOpGasLimit != nil {
		op.PaymasterPostOpGasLimit = data.PaymasterPostOpGasLimit
	}
}
