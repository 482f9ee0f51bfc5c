package publisher

import (
	"fmt"

	"go.uber.org/zap"
)

// Manager is the registry of platform adapters, keyed by platform name.
type Manager struct {
	publishers map[string]Publisher
	logger     *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		publishers: make(map[string]Publisher),
		logger:     logger,
	}
}

func (m *Manager) Register(publisher Publisher) error {
	platformName := publisher.GetPlatformName()
	if _, exists := m.publishers[platformName]; exists {
		return fmt.Errorf("publisher for platform %s already registered", platformName)
	}

	m.publishers[platformName] = publisher
	m.logger.Info("Publisher registered", zap.String("platform", platformName))
	return nil
}

func (m *Manager) Get(platformName string) (Publisher, error) {
	publisher, exists := m.publishers[platformName]
	if !exists {
		return nil, fmt.Errorf("publisher for platform %s not found", platformName)
	}
	return publisher, nil
}

func (m *Manager) AvailablePlatforms() []string {
	var platforms []string
	for name := range m.publishers {
		platforms = append(platforms, name)
	}
	return platforms
}
