package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"slices"
	"strings"
	"sync"
	"time"

	accountadapter "github.com/bnema/smartwallet-cli/internal/adapters/account"
	authadapter "github.com/bnema/smartwallet-cli/internal/adapters/auth"
	"github.com/bnema/smartwallet-cli/internal/adapters/bundler"
	"github.com/bnema/smartwallet-cli/internal/adapters/metrics"
	statusadapter "github.com/bnema/smartwallet-cli/internal/adapters/render/status"
	sqliterepo "github.com/bnema/smartwallet-cli/internal/adapters/repo/sqlite"
	tomlrepo "github.com/bnema/smartwallet-cli/internal/adapters/repo/toml"
	chainstore "github.com/bnema/smartwallet-cli/internal/adapters/secrets/chain"
	filestore "github.com/bnema/smartwallet-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/smartwallet-cli/internal/adapters/secrets/pass"
	"github.com/bnema/smartwallet-cli/internal/adapters/signer/local"
	"github.com/bnema/smartwallet-cli/internal/application"
	"github.com/bnema/smartwallet-cli/internal/config"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// app holds the offline services. Network clients are dialed on first use so
// wallet, contact and history commands work without any RPC configured.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	clock  ports.Clock
	now    func() time.Time

	store    *tomlrepo.Store
	history  *sqliterepo.HistoryStore
	secrets  ports.SecretStore
	auth     *authadapter.Provider
	metrics  *metrics.Recorder
	wallets  *application.WalletService
	contacts *application.ContactService
	payments *application.PaymentService
	recurrer *application.RecurringService

	statusRenderer func(application.Status, statusadapter.RenderOptions) (string, error)

	netMu sync.Mutex
	net   *network
}

// network is everything that needs the RPC, bundler and paymaster endpoints.
type network struct {
	chain     *ethclient.Client
	bundler   *bundler.Client
	paymaster *bundler.Paymaster
	cache     *accountadapter.Cache
	session   *application.SessionManager
	status    *application.StatusQuery
	chainID   *big.Int
}

type wireOptions struct {
	config  config.Options
	verbose bool
	stderr  io.Writer
}

// wire fills a in place; commands hold the pointer before flags are parsed.
func (a *app) wire(opts wireOptions) error {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(opts.stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(cfg.Log.Level)
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	store, err := tomlrepo.NewStore(cfg.Storage.DataPath)
	if err != nil {
		return fmt.Errorf("wire wallet store: %w", err)
	}

	history, err := sqliterepo.Open(cfg.Storage.HistoryPath)
	if err != nil {
		return fmt.Errorf("wire history store: %w", err)
	}

	secrets, err := newSecretStore(cfg.Storage, logger)
	if err != nil {
		_ = history.Close()
		return fmt.Errorf("wire secret store: %w", err)
	}

	clock := ports.SystemClock{}
	keys := local.Keys{}
	recorder := metrics.NewRecorder()
	contacts := application.NewContactService(store.Contacts(), clock)

	a.cfg = cfg
	a.logger = logger
	a.clock = clock
	a.now = time.Now
	a.store = store
	a.history = history
	a.secrets = secrets
	a.auth = authadapter.NewProvider(store.Wallets(), secrets, keys)
	a.metrics = recorder
	a.wallets = application.NewWalletService(store.Wallets(), secrets, keys, clock)
	a.contacts = contacts
	a.payments = application.NewPaymentService(a, contacts, history, recorder, clock, logger)
	a.recurrer = application.NewRecurringService(store.Recurring(), a.payments, contacts, clock, logger)
	if a.statusRenderer == nil {
		a.statusRenderer = statusadapter.Render
	}

	return nil
}

func newSecretStore(cfg config.StorageConfig, logger logrus.FieldLogger) (ports.SecretStore, error) {
	switch cfg.SecretsBackend {
	case config.SecretsBackendFile:
		return filestore.NewStore(cfg.SecretsDir), nil
	case config.SecretsBackendPass:
		return passstore.NewStore(), nil
	default:
		store, err := chainstore.NewPassFirstWithFileFallback(cfg.SecretsDir)
		if err != nil {
			return nil, err
		}
		return store.WithLogger(logger), nil
	}
}

// GetClient lets the payment service reach the session without dialing at
// wire time.
func (a *app) GetClient(ctx context.Context, opts application.GetClientOptions) (ports.SessionClient, error) {
	net, err := a.network(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Timeout == 0 {
		opts.Timeout = a.cfg.Session.AccessorTimeout
	}
	return net.session.GetClient(ctx, opts)
}

func (a *app) network(ctx context.Context) (*network, error) {
	a.netMu.Lock()
	defer a.netMu.Unlock()

	if a.net != nil {
		return a.net, nil
	}

	net, err := a.dialNetwork(ctx)
	if err != nil {
		return nil, err
	}
	a.net = net
	return net, nil
}

func (a *app) dialNetwork(ctx context.Context) (*network, error) {
	cfg := a.cfg
	if err := cfg.RequireNetwork(); err != nil {
		return nil, err
	}

	chain, err := ethclient.DialContext(ctx, cfg.Network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	chainID := new(big.Int).SetUint64(cfg.Network.ChainID)
	if cfg.Network.ChainID == 0 {
		chainID, err = chain.ChainID(ctx)
		if err != nil {
			chain.Close()
			return nil, fmt.Errorf("read chain id: %w", err)
		}
	}

	transportOpts := bundler.Options{
		RequestsPerSecond: cfg.Bundler.RequestsPerSecond,
		Burst:             cfg.Bundler.Burst,
		Logger:            a.logger,
	}

	bundlerClient, err := bundler.Dial(ctx, cfg.Network.BundlerURL, transportOpts)
	if err != nil {
		chain.Close()
		return nil, fmt.Errorf("dial bundler: %w", err)
	}

	a.checkBundler(ctx, bundlerClient, chainID)

	var paymaster *bundler.Paymaster
	clientOpts := accountadapter.ClientOptions{
		Chain:               chain,
		ChainID:             chainID,
		ReceiptPollInterval: cfg.Session.ReceiptPollInterval,
	}
	if cfg.Network.PaymasterURL != "" {
		paymaster, err = bundler.DialPaymaster(ctx, cfg.Network.PaymasterURL, paymasterContext(cfg.Network.PaymasterPolicy), transportOpts)
		if err != nil {
			bundlerClient.Close()
			chain.Close()
			return nil, fmt.Errorf("dial paymaster: %w", err)
		}
		clientOpts.Paymaster = paymaster
	}

	cache := accountadapter.NewCache(chain, accountadapter.Contracts{
		EntryPoint: cfg.Contracts.EntryPoint,
		Factory:    cfg.Contracts.Factory,
	})
	factory := accountadapter.NewClientFactory(cache, bundlerClient, clientOpts)

	session := application.NewSessionManager(a.auth, factory, ports.SystemScheduler{}, a.metrics, a.logger, application.SessionConfig{
		ImmediateAttempts: cfg.Session.ImmediateAttempts,
		AttemptDelay:      cfg.Session.AttemptDelay,
		BaseBackoff:       cfg.Session.BaseBackoff,
		MaxBackoff:        cfg.Session.MaxBackoff,
		AccessorAttempts:  cfg.Session.AccessorAttempts,
		AccessorDelay:     cfg.Session.AccessorDelay,
	})

	a.logger.WithFields(logrus.Fields{
		"chain_id":    chainID.String(),
		"entry_point": cfg.Contracts.EntryPoint.Hex(),
		"factory":     cfg.Contracts.Factory.Hex(),
		"paymaster":   paymaster != nil,
	}).Debug("network wired")

	return &network{
		chain:     chain,
		bundler:   bundlerClient,
		paymaster: paymaster,
		cache:     cache,
		session:   session,
		status:    application.NewStatusQuery(session, a.history),
		chainID:   chainID,
	}, nil
}

// checkBundler only warns; some bundlers do not implement the discovery methods.
func (a *app) checkBundler(ctx context.Context, client *bundler.Client, chainID *big.Int) {
	log := a.logger.WithField("bundler", a.cfg.Network.BundlerURL)

	entryPoints, err := client.SupportedEntryPoints(ctx)
	if err != nil {
		log.WithError(err).Debug("read supported entry points")
	} else if !slices.Contains(entryPoints, a.cfg.Contracts.EntryPoint) {
		log.WithField("entry_point", a.cfg.Contracts.EntryPoint.Hex()).Warn("bundler does not list the configured entry point")
	}

	bundlerChainID, err := client.ChainID(ctx)
	if err != nil {
		log.WithError(err).Debug("read bundler chain id")
	} else if bundlerChainID.Cmp(chainID) != 0 {
		log.WithFields(logrus.Fields{
			"chain_id":         chainID.String(),
			"bundler_chain_id": bundlerChainID.String(),
		}).Warn("bundler is on a different chain")
	}
}

// paymasterContext accepts either a JSON object or a bare sponsorship policy id.
func paymasterContext(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "{") {
		var ctx map[string]any
		if err := json.Unmarshal([]byte(raw), &ctx); err == nil {
			return ctx
		}
	}
	return map[string]any{"sponsorshipPolicyId": raw}
}

// syncAuth pushes the current wallet state into the session.
func (a *app) syncAuth(ctx context.Context, session *application.SessionManager) {
	state, err := a.auth.Current(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("read auth state")
		return
	}
	session.OnAuthChanged(state)
}

func (a *app) Close() error {
	a.netMu.Lock()
	net := a.net
	a.net = nil
	a.netMu.Unlock()

	var errs []error
	if net != nil {
		net.session.Close()
		net.bundler.Close()
		if net.paymaster != nil {
			net.paymaster.Close()
		}
		net.chain.Close()
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	return errors.Join(errs...)
}
