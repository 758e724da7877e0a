package market

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// pairConfig is the YAML shape of one listed pair.
type pairConfig struct {
	Symbol        string `yaml:"symbol"`
	Base          string `yaml:"base"`
	Quote         string `yaml:"quote"`
	PriceDecimals int32  `yaml:"priceDecimals"`
	MinBaseSize   string `yaml:"minBaseSize"`
	MinNotional   string `yaml:"minNotional"`
}

type marketsConfig struct {
	Pairs []pairConfig `yaml:"pairs"`
}

// LoadRegistry reads a markets YAML file and returns a populated registry.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markets file: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry builds a registry from YAML bytes.
func ParseRegistry(data []byte) (*Registry, error) {
	var cfg marketsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse markets config: %w", err)
	}
	if len(cfg.Pairs) == 0 {
		return nil, fmt.Errorf("markets config lists no pairs")
	}

	reg := NewRegistry()
	for _, pc := range cfg.Pairs {
		minBase, err := parseAmount(pc.MinBaseSize)
		if err != nil {
			return nil, fmt.Errorf("pair %s minBaseSize: %w", pc.Symbol, err)
		}
		minNotional, err := parseAmount(pc.MinNotional)
		if err != nil {
			return nil, fmt.Errorf("pair %s minNotional: %w", pc.Symbol, err)
		}
		if pc.PriceDecimals == 0 {
			pc.PriceDecimals = 8
		}
		p, err := NewPair(pc.Symbol, pc.Base, pc.Quote, pc.PriceDecimals, minBase, minNotional)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
