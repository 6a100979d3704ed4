package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config carries the marketplace daemon settings. The vault address is the
// account that holds escrowed funds and asset custody while listings are
// live; it is administrative wiring, not part of the settlement engine.
type Config struct {
	RPCAddress   string `toml:"RPCAddress"`
	DataDir      string `toml:"DataDir"`
	MarketName   string `toml:"MarketName"`
	TokenSymbol  string `toml:"TokenSymbol"`
	VaultAddress string `toml:"VaultAddress"`
	LogLevel     string `toml:"LogLevel"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.MarketName) == "" {
		cfg.MarketName = "spark-local"
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8545"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./spark-data"
	}
	if strings.TrimSpace(cfg.TokenSymbol) == "" {
		cfg.TokenSymbol = "SPK"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if _, err := cfg.Vault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Vault decodes the configured vault address.
func (c *Config) Vault() ([20]byte, error) {
	var vault [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(c.VaultAddress), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return vault, fmt.Errorf("config: invalid vault address %q: %w", c.VaultAddress, err)
	}
	if len(raw) != len(vault) {
		return vault, fmt.Errorf("config: vault address %q must be 20 bytes", c.VaultAddress)
	}
	copy(vault[:], raw)
	return vault, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:   ":8545",
		DataDir:      "./spark-data",
		MarketName:   "spark-local",
		TokenSymbol:  "SPK",
		VaultAddress: "0x" + strings.Repeat("ee", 20),
		LogLevel:     "info",
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
