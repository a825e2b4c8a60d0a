package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// SeedBridge describes a bridge token registered at startup.
type SeedBridge struct {
	Token       string `yaml:"token"`
	Cap         string `yaml:"cap"`
	HourlyLimit string `yaml:"hourly_limit"`
	Fee         uint64 `yaml:"fee"`
}

// Seed is the governance bootstrap read from the YAML seed file. Addresses
// stay hex strings so operators can edit the file by hand.
type Seed struct {
	Treasury         string       `yaml:"treasury"`
	Stablecoin       string       `yaml:"stablecoin"`
	Governors        []string     `yaml:"governors"`
	Guardians        []string     `yaml:"guardians"`
	Depositors       []string     `yaml:"depositors"`
	Minters          []string     `yaml:"minters"`
	FeeExemptions    []string     `yaml:"fee_exemptions"`
	ChainHourlyLimit string       `yaml:"chain_hourly_limit"`
	Bridges          []SeedBridge `yaml:"bridges"`
}

// LoadSeed loads the governance seed from config/bridgelayer.yaml.
func LoadSeed() (*Seed, error) {
	return LoadSeedFromPath(filepath.Join("config", "bridgelayer.yaml"))
}

// LoadSeedFromPath loads the governance seed from a specific path.
func LoadSeedFromPath(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := seed.validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// LoadSeedOrDefault loads the seed or returns an empty one when the file
// cannot be read. An empty seed leaves governance locked until a treasury is
// configured.
func LoadSeedOrDefault(path string) *Seed {
	seed, err := LoadSeedFromPath(path)
	if err != nil {
		return &Seed{}
	}
	return seed
}

func (s *Seed) validate() error {
	fields := map[string][]string{
		"treasury":       {s.Treasury},
		"stablecoin":     {s.Stablecoin},
		"governors":      s.Governors,
		"guardians":      s.Guardians,
		"depositors":     s.Depositors,
		"minters":        s.Minters,
		"fee_exemptions": s.FeeExemptions,
	}
	for field, values := range fields {
		for _, raw := range values {
			if raw == "" {
				continue
			}
			if !common.IsHexAddress(raw) {
				return fmt.Errorf("%s: %q is not a hex address", field, raw)
			}
		}
	}
	for i, b := range s.Bridges {
		if !common.IsHexAddress(b.Token) {
			return fmt.Errorf("bridges[%d]: token is required", i)
		}
	}
	return nil
}

// Addresses parses a list of hex address strings, skipping empty entries.
func Addresses(raw []string) []common.Address {
	out := make([]common.Address, 0, len(raw))
	for _, r := range raw {
		if r == "" {
			continue
		}
		out = append(out, common.HexToAddress(r))
	}
	return out
}
