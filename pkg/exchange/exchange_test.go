package exchange

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meridian-dex/meridian/pkg/events"
	"github.com/meridian-dex/meridian/pkg/exchange/lifecycle"
	"github.com/meridian-dex/meridian/pkg/exchange/market"
	"github.com/meridian-dex/meridian/pkg/exchange/orderbook"
	"github.com/meridian-dex/meridian/pkg/storage"
)

var (
	alice = common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	bob   = common.HexToAddress("0xb0b0000000000000000000000000000000000002")
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testRegistry(t *testing.T) *market.Registry {
	t.Helper()
	reg := market.NewRegistry()
	for _, def := range [][2]string{{"ETH-USDC", "ETH"}, {"WBTC-USDC", "WBTC"}} {
		p, err := market.NewPair(def[0], def[1], "USDC", 8, decimal.Zero, decimal.Zero)
		if err != nil {
			t.Fatalf("NewPair: %v", err)
		}
		if err := reg.Register(p); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return reg
}

func newTestExchange(t *testing.T, opts Options) *Exchange {
	t.Helper()
	ex, err := New(testRegistry(t), opts, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ex
}

func buyReq(offered, requested string) lifecycle.PlaceRequest {
	return lifecycle.PlaceRequest{Owner: alice, Side: orderbook.Buy, Type: orderbook.Limit,
		AmountOffered: dec(offered), AmountRequested: dec(requested)}
}

func sellReq(offered, requested string) lifecycle.PlaceRequest {
	return lifecycle.PlaceRequest{Owner: bob, Side: orderbook.Sell, Type: orderbook.Limit,
		AmountOffered: dec(offered), AmountRequested: dec(requested)}
}

func TestPlaceRoutesByPair(t *testing.T) {
	ex := newTestExchange(t, Options{})

	ethID, err := ex.PlaceOrder("ETH-USDC", buyReq("200", "100"))
	if err != nil {
		t.Fatalf("place ETH: %v", err)
	}
	btcID, err := ex.PlaceOrder("WBTC-USDC", buyReq("60000", "1"))
	if err != nil {
		t.Fatalf("place WBTC: %v", err)
	}
	if ethID == btcID {
		t.Fatal("ids must be globally unique across pairs")
	}
	if _, err := ex.PlaceOrder("DOGE-USDC", buyReq("1", "1")); err == nil {
		t.Fatal("unknown pair accepted")
	}

	ethBids, err := ex.BuyOrders("ETH-USDC")
	if err != nil || len(ethBids) != 1 || ethBids[0] != ethID {
		t.Fatalf("ETH bids = %v (%v)", ethBids, err)
	}
	btcBids, _ := ex.BuyOrders("WBTC-USDC")
	if len(btcBids) != 1 || btcBids[0] != btcID {
		t.Fatalf("WBTC bids = %v", btcBids)
	}
}

func TestCancelResolvesPairFromID(t *testing.T) {
	ex := newTestExchange(t, Options{})

	id, _ := ex.PlaceOrder("WBTC-USDC", buyReq("60000", "1"))
	if err := ex.CancelOrder(id, alice); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	o, err := ex.GetOrder(id)
	if err != nil || o.Status != orderbook.Cancelled {
		t.Fatalf("order after cancel = %+v (%v)", o, err)
	}

	if err := ex.CancelOrder(999, alice); !errors.Is(err, orderbook.ErrOrderNotFound) {
		t.Fatalf("cancel unknown err = %v, want ErrOrderNotFound", err)
	}
}

func TestPairsAreIndependent(t *testing.T) {
	ex := newTestExchange(t, Options{})

	ex.PlaceOrder("ETH-USDC", buyReq("200", "100"))
	ex.PlaceOrder("WBTC-USDC", sellReq("1", "60000"))

	// A crossing sell on ETH-USDC must not touch the WBTC book.
	ex.PlaceOrder("ETH-USDC", sellReq("100", "100"))

	ethTrades, _ := ex.RecentTrades("ETH-USDC", 0)
	btcTrades, _ := ex.RecentTrades("WBTC-USDC", 0)
	if len(ethTrades) != 1 {
		t.Fatalf("ETH trades = %d, want 1", len(ethTrades))
	}
	if len(btcTrades) != 0 {
		t.Fatalf("WBTC trades = %d, want 0", len(btcTrades))
	}
	btcAsks, _ := ex.SellOrders("WBTC-USDC")
	if len(btcAsks) != 1 {
		t.Fatalf("WBTC asks = %v, want one resting", btcAsks)
	}
}

func TestDepthAndQuote(t *testing.T) {
	ex := newTestExchange(t, Options{})

	ex.PlaceOrder("ETH-USDC", sellReq("50", "100"))  // 50 at 2
	ex.PlaceOrder("ETH-USDC", sellReq("50", "150"))  // 50 at 3

	_, asks, err := ex.Depth("ETH-USDC")
	if err != nil || len(asks) != 2 {
		t.Fatalf("Depth = %v (%v)", asks, err)
	}
	if !asks[0].Price.Equal(dec("2")) {
		t.Fatalf("best ask level = %+v", asks[0])
	}

	total, err := ex.Quote("ETH-USDC", orderbook.Buy, dec("75"))
	if err != nil || !total.Equal(dec("175")) {
		t.Fatalf("Quote = %s (%v), want 175", total, err)
	}
	if _, err := ex.Quote("ETH-USDC", orderbook.Buy, dec("500")); !errors.Is(err, orderbook.ErrInsufficientLiquidity) {
		t.Fatalf("deep quote err = %v, want ErrInsufficientLiquidity", err)
	}
}

// routingSink checks, from inside the pair's critical section, that an order
// id announced by an event is already routable through the exchange.
type routingSink struct {
	ex      *Exchange
	missing []uint64
}

func (s *routingSink) Publish(ev events.Envelope) error {
	placed, ok := ev.Data.(events.OrderPlaced)
	if !ok {
		return nil
	}
	s.ex.mu.RLock()
	_, found := s.ex.orderPairs[placed.ID]
	s.ex.mu.RUnlock()
	if !found {
		s.missing = append(s.missing, placed.ID)
	}
	return nil
}

func (s *routingSink) Close() error { return nil }

func TestOrderRoutableWhenAnnounced(t *testing.T) {
	sink := &routingSink{}
	ex, err := New(testRegistry(t), Options{Sink: sink}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sink.ex = ex

	ex.PlaceOrder("ETH-USDC", buyReq("200", "100"))
	ex.PlaceOrder("WBTC-USDC", buyReq("60000", "1"))

	if len(sink.missing) != 0 {
		t.Fatalf("ids announced before they were routable: %v", sink.missing)
	}
}

func TestRestoreFromStore(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	ex := newTestExchange(t, Options{Store: store, Sink: storage.NewSink(store)})
	restingID, err := ex.PlaceOrder("ETH-USDC", buyReq("200", "100"))
	if err != nil {
		t.Fatalf("place resting: %v", err)
	}
	filledID, _ := ex.PlaceOrder("ETH-USDC", buyReq("300", "100"))
	ex.PlaceOrder("ETH-USDC", sellReq("100", "100")) // fills the 3.0 bid
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = storage.NewStore(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	ex2 := newTestExchange(t, Options{Store: store, Sink: storage.NewSink(store)})

	// Only the non-terminal order rests again, and its record survives.
	bids, _ := ex2.BuyOrders("ETH-USDC")
	if len(bids) != 1 || bids[0] != restingID {
		t.Fatalf("bids after restore = %v, want [%d]", bids, restingID)
	}
	filled, err := ex2.GetOrder(filledID)
	if err != nil || filled.Status != orderbook.Filled {
		t.Fatalf("filled order after restore = %+v (%v)", filled, err)
	}

	// Recent trades come back from the durable event log.
	trades, err := ex2.RecentTrades("ETH-USDC", 0)
	if err != nil || len(trades) != 1 {
		t.Fatalf("trades after restore = %v (%v), want one fill", trades, err)
	}
	if trades[0].MakerID != filledID || !trades[0].BaseQty.Equal(dec("100")) {
		t.Fatalf("restored trade = %+v, want maker %d for 100", trades[0], filledID)
	}

	// New ids continue past everything restored.
	newID, err := ex2.PlaceOrder("ETH-USDC", sellReq("1", "5"))
	if err != nil {
		t.Fatalf("place after restore: %v", err)
	}
	if newID <= filledID {
		t.Fatalf("new id %d not past restored ids", newID)
	}

	// Restored resting orders are still cancellable by their owner.
	if err := ex2.CancelOrder(restingID, alice); err != nil {
		t.Fatalf("cancel restored order: %v", err)
	}
}
