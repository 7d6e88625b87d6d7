package bundler

import (
	"context"
	"math/big"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Paymaster is an ERC-7677 paymaster web service client.
type Paymaster struct {
	*endpoint
	// policy is passed through as the context parameter, e.g. a sponsorship policy id.
	policy map[string]any
}

var _ ports.Paymaster = (*Paymaster)(nil)

func DialPaymaster(ctx context.Context, url string, policy map[string]any, opts Options) (*Paymaster, error) {
	endpoint, err := dial(ctx, url, opts, "paymaster")
	if err != nil {
		return nil, err
	}
	return &Paymaster{endpoint: endpoint, policy: policy}, nil
}

func NewPaymaster(client *rpc.Client, policy map[string]any, opts Options) *Paymaster {
	return &Paymaster{endpoint: newEndpoint(client, opts, "paymaster"), policy: policy}
}

func (p *Paymaster) GetPaymasterStubData(ctx context.Context, op domain.UserOperation, entryPoint common.Address, chainID *big.Int) (domain.PaymasterData, error) {
	return p.request(ctx, "pm_getPaymasterStubData", op, entryPoint, chainID)
}

func (p *Paymaster) GetPaymasterData(ctx context.Context, op domain.UserOperation, entryPoint common.Address, chainID *big.Int) (domain.PaymasterData, error) {
	return p.request(ctx, "pm_getPaymasterData", op, entryPoint, chainID)
}

func (p *Paymaster) request(ctx context.Context, method string, op domain.UserOperation, entryPoint common.Address, chainID *big.Int) (domain.PaymasterData, error) {
	policy := p.policy
	if policy == nil {
		policy = map[string]any{}
	}

	var result paymasterJSON
	err := p.call(ctx, &result, method, toUserOperationJSON(op), entryPoint, (*hexutil.Big)(domain.BigOrZero(chainID)), policy)
	if err != nil {
		return domain.PaymasterData{}, err
	}
	return result.toDomain(), nil
}
