package dbmanager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bitechdev/RecordSpec/pkg/logger"
	"github.com/bitechdev/RecordSpec/pkg/recordaccess"
)

// Manager owns the named pipeline database connections. Request handlers
// resolve a record catalog through it and never hold a connection beyond
// the request.
type Manager interface {
	Get(name string) (Connection, error)
	GetDefault() (Connection, error)
	// Names lists the registered connections in sorted order
	Names() []string

	// Catalog returns the record store of a named connection. An empty
	// name selects the default connection.
	Catalog(name string) (recordaccess.Catalog, error)
	SetDefaultConnection(name string) error

	Connect(ctx context.Context) error
	Register(ctx context.Context, conn Connection) error
	Close() error
	HealthCheck(ctx context.Context) error

	Stats() *ManagerStats
}

type ManagerStats struct {
	TotalConnections int
	HealthyCount     int
	UnhealthyCount   int
	ConnectionStats  map[string]*ConnectionStats
}

type namedConnection struct {
	name string
	conn Connection
}

type connectionManager struct {
	connections map[string]Connection
	config      ManagerConfig
	mu          sync.RWMutex

	healthTicker *time.Ticker
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

func NewManager(cfg ManagerConfig) (Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &connectionManager{
		connections: make(map[string]Connection),
		config:      cfg,
		stopChan:    make(chan struct{}),
	}, nil
}

func (m *connectionManager) Get(name string) (Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(name)
}

func (m *connectionManager) getLocked(name string) (Connection, error) {
	conn, ok := m.connections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, name)
	}
	return conn, nil
}

func (m *connectionManager) GetDefault() (Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config.DefaultConnection == "" {
		return nil, ErrNoDefaultConnection
	}
	return m.getLocked(m.config.DefaultConnection)
}

func (m *connectionManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.connections))
	for name := range m.connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *connectionManager) Catalog(name string) (recordaccess.Catalog, error) {
	var (
		conn Connection
		err  error
	)
	if name == "" {
		conn, err = m.GetDefault()
	} else {
		conn, err = m.Get(name)
	}
	if err != nil {
		return nil, err
	}

	store, err := conn.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to get store from connection '%s': %w", conn.Name(), err)
	}
	return store, nil
}

// Register connects and adds a connection built outside the configuration,
// such as one from NewConnectionFromDB. The first registered connection
// becomes the default when none is configured.
func (m *connectionManager) Register(ctx context.Context, conn Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.connections[conn.Name()]; exists {
		return fmt.Errorf("connection '%s' already registered", conn.Name())
	}
	if err := conn.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect '%s': %w", conn.Name(), err)
	}

	m.connections[conn.Name()] = conn
	if m.config.DefaultConnection == "" {
		m.config.DefaultConnection = conn.Name()
	}
	return nil
}

func (m *connectionManager) SetDefaultConnection(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.getLocked(name); err != nil {
		return err
	}
	m.config.DefaultConnection = name
	logger.Info("Default database connection changed: name=%s", name)
	return nil
}

// Connect opens every configured connection. It is all or nothing: when one
// connection fails the ones already opened by this call are closed again.
func (m *connectionManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.config.Connections))
	for name := range m.config.Connections {
		names = append(names, name)
	}
	sort.Strings(names)

	opened := make([]namedConnection, 0, len(names))
	rollback := func() {
		for _, nc := range opened {
			_ = nc.conn.Close()
			delete(m.connections, nc.name)
		}
	}

	for _, name := range names {
		connCfg := m.config.Connections[name]
		connCfg.ApplyDefaults(&m.config)
		connCfg.Name = name

		conn, err := createConnection(connCfg)
		if err != nil {
			rollback()
			return fmt.Errorf("failed to create connection '%s': %w", name, err)
		}
		if err := conn.Connect(ctx); err != nil {
			rollback()
			return fmt.Errorf("failed to connect '%s': %w", name, err)
		}

		m.connections[name] = conn
		opened = append(opened, namedConnection{name, conn})
		logger.Info("Database connection established: name=%s, type=%s", name, connCfg.Type)
	}

	if m.config.HealthCheckInterval > 0 {
		m.startHealthChecker()
	}
	publishStats(m.statsLocked())

	logger.Info("Database manager initialized: connections=%d, default=%s", len(m.connections), m.config.DefaultConnection)
	return nil
}

func (m *connectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopHealthChecker()

	var errs []error
	for name, conn := range m.connections {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection '%s': %w", name, err))
			logger.Error("Failed to close connection: name=%s, error=%v", name, err)
		}
	}
	m.connections = make(map[string]Connection)

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Info("Database manager closed")
	return nil
}

// snapshot copies the connection list so checks run without holding the lock
func (m *connectionManager) snapshot() []namedConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns := make([]namedConnection, 0, len(m.connections))
	for name, conn := range m.connections {
		conns = append(conns, namedConnection{name, conn})
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].name < conns[j].name })
	return conns
}

func (m *connectionManager) HealthCheck(ctx context.Context) error {
	var errs []error
	for _, nc := range m.snapshot() {
		if err := nc.conn.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("connection '%s': %w", nc.name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *connectionManager) Stats() *ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statsLocked()
}

func (m *connectionManager) statsLocked() *ManagerStats {
	stats := &ManagerStats{
		TotalConnections: len(m.connections),
		ConnectionStats:  make(map[string]*ConnectionStats, len(m.connections)),
	}

	for name, conn := range m.connections {
		connStats := conn.Stats()
		stats.ConnectionStats[name] = connStats

		if connStats.Connected && connStats.HealthCheckStatus == "healthy" {
			stats.HealthyCount++
		} else {
			stats.UnhealthyCount++
		}
	}
	return stats
}

func (m *connectionManager) startHealthChecker() {
	if m.healthTicker != nil {
		return
	}
	m.healthTicker = time.NewTicker(m.config.HealthCheckInterval)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.healthTicker.C:
				m.performHealthCheck()
			case <-m.stopChan:
				return
			}
		}
	}()
}

func (m *connectionManager) stopHealthChecker() {
	if m.healthTicker == nil {
		return
	}
	m.healthTicker.Stop()
	close(m.stopChan)
	m.wg.Wait()
	m.healthTicker = nil
	m.stopChan = make(chan struct{})
}

// performHealthCheck pings every connection and, when auto reconnect is on,
// reopens the ones that failed
func (m *connectionManager) performHealthCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, nc := range m.snapshot() {
		err := nc.conn.HealthCheck(ctx)
		if err == nil {
			continue
		}
		logger.Warn("Health check failed: connection=%s, error=%v", nc.name, err)
		if !m.config.EnableAutoReconnect {
			continue
		}

		err = nc.conn.Reconnect(ctx)
		recordReconnectAttempt(nc.name, nc.conn.Type(), err == nil)
		if err != nil {
			logger.Error("Reconnection failed: connection=%s, error=%v", nc.name, err)
		} else {
			logger.Info("Reconnection successful: connection=%s", nc.name)
		}
	}

	m.publishMetrics()
}
