// Package bundler talks to ERC-4337 bundlers and ERC-7677 paymasters over JSON-RPC.
package bundler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerSecond = 10
	defaultBurst             = 5
)

var errEmptyEndpoint = errors.New("rpc endpoint is empty")

type Options struct {
	// RequestsPerSecond caps outgoing calls. Zero uses the default; negative disables pacing.
	RequestsPerSecond float64
	Burst             int
	Headers           http.Header
	Logger            logrus.FieldLogger
}

// endpoint is the shared JSON-RPC plumbing for the bundler and paymaster clients.
type endpoint struct {
	rpc     *rpc.Client
	limiter *rate.Limiter
	logger  logrus.FieldLogger
}

func dial(ctx context.Context, url string, opts Options, component string) (*endpoint, error) {
	if url == "" {
		return nil, errEmptyEndpoint
	}

	var clientOpts []rpc.ClientOption
	if len(opts.Headers) > 0 {
		clientOpts = append(clientOpts, rpc.WithHeaders(opts.Headers))
	}

	client, err := rpc.DialOptions(ctx, url, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", component, err)
	}

	return newEndpoint(client, opts, component), nil
}

func newEndpoint(client *rpc.Client, opts Options, component string) *endpoint {
	logger := opts.Logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	var limiter *rate.Limiter
	switch {
	case opts.RequestsPerSecond < 0:
		limiter = rate.NewLimiter(rate.Inf, 0)
	case opts.RequestsPerSecond == 0:
		limiter = rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultBurst)
	default:
		burst := opts.Burst
		if burst <= 0 {
			burst = defaultBurst
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &endpoint{
		rpc:     client,
		limiter: limiter,
		logger:  logger.WithField("component", component),
	}
}

func (e *endpoint) call(ctx context.Context, result any, method string, args ...any) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	start := time.Now()
	err := e.rpc.CallContext(ctx, result, method, args...)
	log := e.logger.WithFields(logrus.Fields{
		"method":   method,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		log.WithError(err).Debug("rpc call failed")
		return fmt.Errorf("%s: %w", method, err)
	}
	log.Debug("rpc call")

	return nil
}

func (e *endpoint) Close() {
	e.rpc.Close()
}

// Client is a bundler JSON-RPC client.
type Client struct {
	*endpoint
}

var _ ports.Bundler = (*Client)(nil)

func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	endpoint, err := dial(ctx, url, opts, "bundler")
	if err != nil {
		return nil, err
	}
	return &Client{endpoint: endpoint}, nil
}

func NewClient(client *rpc.Client, opts Options) *Client {
	return &Client{endpoint: newEndpoint(client, opts, "bundler")}
}

func (c *Client) SendUserOperation(ctx context.Context, op domain.UserOperation, entryPoint common.Address) (common.Hash, error) {
	var hash common.Hash
	if err := c.call(ctx, &hash, "eth_sendUserOperation", toUserOperationJSON(op), entryPoint); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func (c *Client) EstimateUserOperationGas(ctx context.Context, op domain.UserOperation, entryPoint common.Address) (domain.GasEstimate, error) {
	var estimate gasEstimateJSON
	if err := c.call(ctx, &estimate, "eth_estimateUserOperationGas", toUserOperationJSON(op), entryPoint); err != nil {
		return domain.GasEstimate{}, err
	}
	return estimate.toDomain(), nil
}

// GetUserOperationReceipt returns nil while the operation is pending.
func (c *Client) GetUserOperationReceipt(ctx context.Context, hash common.Hash) (*domain.UserOperationReceipt, error) {
	var raw *receiptJSON
	if err := c.call(ctx, &raw, "eth_getUserOperationReceipt", hash); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	receipt := raw.toDomain()
	return &receipt, nil
}

func (c *Client) SupportedEntryPoints(ctx context.Context) ([]common.Address, error) {
	var entryPoints []common.Address
	if err := c.call(ctx, &entryPoints, "eth_supportedEntryPoints"); err != nil {
		return nil, err
	}
	return entryPoints, nil
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var chainID hexutil.Big
	if err := c.call(ctx, &chainID, "eth_chainId"); err != nil {
		return nil, err
	}
	return chainID.ToInt(), nil
}
