package cli

import (
	"fmt"
	"time"

	"github.com/glucopilot/glucopilot-agent/internal/agent"
	"github.com/glucopilot/glucopilot-agent/internal/config"
	"github.com/glucopilot/glucopilot-agent/internal/credentials"
	"github.com/glucopilot/glucopilot-agent/internal/database"
	"github.com/glucopilot/glucopilot-agent/internal/domain"
	"github.com/glucopilot/glucopilot-agent/internal/healthsource"
	"github.com/glucopilot/glucopilot-agent/internal/repository"
	"github.com/glucopilot/glucopilot-agent/internal/services"
	"github.com/glucopilot/glucopilot-agent/internal/status"
)

// buildProvider selects the sample source configured by PROVIDER_SOURCE.
func buildProvider(cfg *config.Config) (healthsource.Provider, error) {
	switch cfg.Provider.Source {
	case config.SourceFixture:
		return healthsource.FixtureFromFile(cfg.Provider.FixturePath)
	case config.SourceBridge:
		return healthsource.NewRESTProvider(cfg.Provider.ExporterURL, cfg.Provider.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported provider source %q", cfg.Provider.Source)
	}
}

// buildCredentials picks the API token source. A token file wins over the
// inline token so rotation works without a restart.
func buildCredentials(cfg *config.Config) domain.CredentialProvider {
	if cfg.API.TokenFile != "" {
		return credentials.NewFile(cfg.API.TokenFile)
	}
	if cfg.API.Token != "" {
		return credentials.NewStatic(cfg.API.Token)
	}
	return nil
}

func buildSyncService(cfg *config.Config) *services.SyncService {
	return services.NewSyncService(cfg.API.BaseURL, buildCredentials(cfg), cfg.API.Timeout)
}

// buildStatusStore returns the Redis-backed store when a host is configured,
// otherwise the in-memory manager.
func buildStatusStore(cfg *config.Config) (status.Store, func(), error) {
	if cfg.Redis.Host == "" {
		return status.NewManager(), func() {}, nil
	}
	rm, err := status.NewRedisManager(cfg.Redis.Host, cfg.Redis.Port)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rm, func() { _ = rm.Close() }, nil
}

// buildAgent assembles the full pipeline: provider, services, status store
// and the optional history repository. The returned cleanup releases any
// connections the wiring opened.
func buildAgent(cfg *config.Config) (*agent.Agent, status.Store, func(), error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	store, closeStore, err := buildStatusStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	var history *repository.HistoryRepository
	if cfg.DB.Enabled {
		db, err := database.NewPostgresDB(cfg.DB)
		if err != nil {
			closeStore()
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		history = repository.NewHistoryRepository(db)
	}

	a := agent.New(agent.Deps{
		Permissions:      services.NewPermissionService(provider),
		Health:           services.NewHealthService(provider),
		Sync:             buildSyncService(cfg),
		Status:           store,
		History:          history,
		Dexcom:           dexcomCredentials(cfg),
		CollectRange:     time.Duration(cfg.Sync.RangeHours) * time.Hour,
		InsightTimeframe: cfg.Sync.Timeframe,
	})
	return a, store, closeStore, nil
}

func dexcomCredentials(cfg *config.Config) domain.DexcomCredentials {
	return domain.DexcomCredentials{
		Username: cfg.Dexcom.Username,
		Password: cfg.Dexcom.Password,
		OUS:      cfg.Dexcom.OUS,
	}
}
