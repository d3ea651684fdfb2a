package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"deelit/crypto"
	"deelit/native/fees"
)

// Config is the daemon configuration. Identity fields are bech32 "dlt"
// addresses.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Env           string `toml:"Env"`

	ChainID         int64  `toml:"ChainID"`
	ProtocolAddress string `toml:"ProtocolAddress"`
	LotteryAddress  string `toml:"LotteryAddress"`
	EscrowVault     string `toml:"EscrowVault"`
	LotteryPot      string `toml:"LotteryPot"`

	FeeRecipient  string `toml:"FeeRecipient"`
	ProtocolFeeBp uint32 `toml:"ProtocolFeeBp"`

	Judges        []string `toml:"Judges"`
	Pausers       []string `toml:"Pausers"`
	LotteryAdmins []string `toml:"LotteryAdmins"`

	// RandomMode selects the randomness producer: "sync" draws a word in the
	// same call, "async" expects request/fulfill delivery. Request fees are
	// credited to RandomFeeRecipient in async mode.
	RandomMode         string `toml:"RandomMode"`
	RandomRequestPrice string `toml:"RandomRequestPrice"`
	RandomFeeRecipient string `toml:"RandomFeeRecipient"`
}

// Load reads the configuration, creating a commented default file when none
// exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./deelit-data"
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = 1
	}
	if strings.TrimSpace(cfg.RandomMode) == "" {
		cfg.RandomMode = "sync"
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects impossible settings before any engine is wired.
func (c *Config) Validate() error {
	if c.ProtocolFeeBp > fees.MaxBp {
		return fmt.Errorf("config: ProtocolFeeBp %d exceeds %d", c.ProtocolFeeBp, fees.MaxBp)
	}
	switch c.RandomMode {
	case "sync", "async":
	default:
		return fmt.Errorf("config: unknown RandomMode %q", c.RandomMode)
	}
	for _, field := range []struct {
		name, value string
	}{
		{"ProtocolAddress", c.ProtocolAddress},
		{"LotteryAddress", c.LotteryAddress},
		{"EscrowVault", c.EscrowVault},
		{"LotteryPot", c.LotteryPot},
		{"FeeRecipient", c.FeeRecipient},
		{"RandomFeeRecipient", c.RandomFeeRecipient},
	} {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		if _, err := crypto.DecodeAddress(field.value); err != nil {
			return fmt.Errorf("config: %s: %w", field.name, err)
		}
	}
	return nil
}

// Address decodes one of the configured bech32 identities, returning the zero
// identity for an empty value.
func Address(value string) ([20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, nil
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Raw(), nil
}

// RandomPrice parses the randomness request price, defaulting to zero.
func (c *Config) RandomPrice() (*big.Int, error) {
	trimmed := strings.TrimSpace(c.RandomRequestPrice)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	price, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || price.Sign() < 0 {
		return nil, fmt.Errorf("config: malformed RandomRequestPrice %q", c.RandomRequestPrice)
	}
	return price, nil
}
