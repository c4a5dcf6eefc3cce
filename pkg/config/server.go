package config

import (
	"fmt"
	"strings"
)

// Validate checks the settings the server cannot start without
func (sc *ServerConfig) Validate() error {
	if sc.Addr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if sc.Prefix != "" && !strings.HasPrefix(sc.Prefix, "/") {
		return fmt.Errorf("server prefix must start with '/': %s", sc.Prefix)
	}
	if sc.DrainTimeout > 0 && sc.ShutdownTimeout > 0 && sc.DrainTimeout > sc.ShutdownTimeout {
		return fmt.Errorf("drain_timeout (%v) exceeds shutdown_timeout (%v)", sc.DrainTimeout, sc.ShutdownTimeout)
	}
	return nil
}

// Validate checks the engine limits
func (ec *EngineConfig) Validate() error {
	if ec.DefaultLimit < 0 || ec.MaxLimit < 0 {
		return fmt.Errorf("engine limits cannot be negative")
	}
	if ec.MaxLimit > 0 && ec.DefaultLimit > ec.MaxLimit {
		return fmt.Errorf("engine default_limit (%d) exceeds max_limit (%d)", ec.DefaultLimit, ec.MaxLimit)
	}
	return nil
}

// Validate checks every section that has constraints
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if err := c.DBManager.Validate(); err != nil {
		return fmt.Errorf("dbmanager: %w", err)
	}
	return nil
}
