package config

import (
	"fmt"
	"os"
	"strings"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// EnsureDirectories ensures all required directories exist
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.ResultsDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return nil
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// QueueEnabled reports whether forecast events should be published
func (c *QueueConfig) QueueEnabled() bool {
	return c.Type != "" && c.Type != "none"
}
