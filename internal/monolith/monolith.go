// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/shivam-V8/defi-agent/internal/apperror"
	"github.com/shivam-V8/defi-agent/internal/asset"
	"github.com/shivam-V8/defi-agent/internal/config"
	"github.com/shivam-V8/defi-agent/internal/di"
	"github.com/shivam-V8/defi-agent/internal/logger"
	"github.com/shivam-V8/defi-agent/internal/statstore"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	// EthClient returns the RPC client for a configured chain.
	EthClient(chainID uint64) (*ethclient.Client, error)
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	ethClients    map[uint64]*ethclient.Client
	assetRegistry *asset.Registry
	statStore     *statstore.Store
	container     di.Container
}

// New creates a new Monolith instance, dialing an RPC client for every
// configured chain that has an endpoint.
func New(cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	ethClients := make(map[uint64]*ethclient.Client)
	for _, chain := range cfg.Chains {
		if chain.RPCURL == "" {
			continue
		}
		client, err := ethclient.Dial(chain.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial chain %d: %w", chain.ChainID, err)
		}
		ethClients[chain.ChainID] = client
	}

	assetRegistry := asset.DefaultRegistry()

	var statStore *statstore.Store
	if cfg.Stats.Enabled {
		store, err := statstore.Open(cfg.Stats.Path)
		if err != nil {
			return nil, fmt.Errorf("open stats store: %w", err)
		}
		statStore = store
	}

	container := di.NewContainer()

	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("ethClients", ethClients)
	container.Register("assetRegistry", assetRegistry)
	container.Register("statStore", statStore)

	return &app{
		config:        cfg,
		logger:        log,
		ethClients:    ethClients,
		assetRegistry: assetRegistry,
		statStore:     statStore,
		container:     container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) EthClient(chainID uint64) (*ethclient.Client, error) {
	client, ok := a.ethClients[chainID]
	if !ok {
		return nil, apperror.New(apperror.CodeUnsupportedChain,
			apperror.WithContext(fmt.Sprintf("chain %d has no RPC client", chainID)))
	}
	return client, nil
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all resources.
func (a *app) Close() error {
	for _, client := range a.ethClients {
		client.Close()
	}
	if a.statStore != nil {
		return a.statStore.Close()
	}
	return nil
}
