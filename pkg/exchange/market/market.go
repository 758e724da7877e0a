package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PairStatus defines the trading status of a pair.
type PairStatus int8

const (
	Active   PairStatus = iota // trading enabled
	Paused                     // trading halted, cancels still allowed
	Delisted                   // terminal
)

func (ps PairStatus) String() string {
	switch ps {
	case Active:
		return "active"
	case Paused:
		return "paused"
	case Delisted:
		return "delisted"
	default:
		return "unknown"
	}
}

// Pair defines one trading pair and its order constraints. Prices are
// normalized to quote units per base unit and truncated to PriceDecimals
// before entering the book.
type Pair struct {
	Symbol     string // "ETH-USDC"
	BaseToken  string // "ETH"
	QuoteToken string // "USDC"
	Status     PairStatus

	// PriceDecimals is the resolution of the normalized price axis. All
	// resting prices are exact multiples of 10^-PriceDecimals.
	PriceDecimals int32

	// MinBaseSize rejects dust orders on the base axis.
	MinBaseSize decimal.Decimal

	// MinNotional rejects orders worth less than this in quote units.
	MinNotional decimal.Decimal
}

// NewPair creates a pair with validation.
func NewPair(symbol, baseToken, quoteToken string, priceDecimals int32, minBase, minNotional decimal.Decimal) (*Pair, error) {
	p := &Pair{
		Symbol:        symbol,
		BaseToken:     baseToken,
		QuoteToken:    quoteToken,
		Status:        Active,
		PriceDecimals: priceDecimals,
		MinBaseSize:   minBase,
		MinNotional:   minNotional,
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pair %q: %w", symbol, err)
	}
	return p, nil
}

// Validate checks pair parameter sanity.
func (p *Pair) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	// ':' delimits the per-pair event log key range.
	if strings.ContainsRune(p.Symbol, ':') {
		return fmt.Errorf("symbol must not contain ':'")
	}
	if p.BaseToken == "" || p.QuoteToken == "" {
		return fmt.Errorf("base and quote tokens must be specified")
	}
	if p.BaseToken == p.QuoteToken {
		return fmt.Errorf("base and quote tokens must differ")
	}
	if p.PriceDecimals < 0 || p.PriceDecimals > 18 {
		return fmt.Errorf("price decimals must be within [0, 18], got %d", p.PriceDecimals)
	}
	if p.MinBaseSize.IsNegative() || p.MinNotional.IsNegative() {
		return fmt.Errorf("minimum sizes cannot be negative")
	}
	return nil
}

// CheckOrder validates an order's legs against the pair's constraints.
// baseQty and notional are on the normalized axes (base size, quote value).
func (p *Pair) CheckOrder(baseQty, notional decimal.Decimal) error {
	if p.Status != Active {
		return fmt.Errorf("pair %s is %s", p.Symbol, p.Status)
	}
	if baseQty.LessThan(p.MinBaseSize) {
		return fmt.Errorf("size %s below pair minimum %s", baseQty, p.MinBaseSize)
	}
	if notional.LessThan(p.MinNotional) {
		return fmt.Errorf("notional %s below pair minimum %s", notional, p.MinNotional)
	}
	return nil
}
