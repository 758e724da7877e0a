package orderbook

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

type matchFixture struct {
	t      *testing.T
	book   *OrderBook
	engine *MatchingEngine
	nextID uint64
	seq    uint64
}

func newMatchFixture(t *testing.T) *matchFixture {
	book := NewOrderBook("ETH-USDC", 8)
	return &matchFixture{t: t, book: book, engine: NewMatchingEngine(book)}
}

func (f *matchFixture) nextSeq() uint64 {
	f.seq++
	return f.seq
}

// place runs an order through the full register/match path, the way the
// lifecycle manager drives the engine.
func (f *matchFixture) place(side Side, typ OrderType, offered, requested string) (*Order, []Fill) {
	f.t.Helper()
	f.nextID++
	o, err := NewOrder(f.nextID, alice, "ETH-USDC", side, typ, dec(offered), dec(requested), 8)
	if err != nil {
		f.t.Fatalf("NewOrder: %v", err)
	}
	if side == Sell {
		o.Owner = bob
	}
	o.Seq = f.nextSeq()
	if err := f.book.Register(o); err != nil {
		f.t.Fatalf("Register: %v", err)
	}
	return o, f.engine.Match(o, f.nextSeq)
}

func TestMatchPriceTimePriority(t *testing.T) {
	f := newMatchFixture(t)
	// Two bids for 100 base at price 2 each, then a sell for 150 base that
	// crosses both. The older bid fills completely, the newer one partially,
	// and fills come out in that order.
	first, _ := f.place(Buy, Limit, "200", "100")
	second, _ := f.place(Buy, Limit, "200", "100")
	taker, fills := f.place(Sell, Limit, "150", "150")

	if len(fills) != 2 {
		t.Fatalf("fills = %d, want 2", len(fills))
	}
	if fills[0].MakerID != first.ID || !fills[0].BaseQty.Equal(dec("100")) {
		t.Fatalf("fill[0] = %+v, want maker %d for 100", fills[0], first.ID)
	}
	if fills[1].MakerID != second.ID || !fills[1].BaseQty.Equal(dec("50")) {
		t.Fatalf("fill[1] = %+v, want maker %d for 50", fills[1], second.ID)
	}
	if fills[0].Seq >= fills[1].Seq {
		t.Fatalf("fill seqs not increasing: %d, %d", fills[0].Seq, fills[1].Seq)
	}

	if first.Status != Filled {
		t.Fatalf("first maker status = %s, want filled", first.Status)
	}
	if second.Status != PartiallyFilled || !second.RemainingBase().Equal(dec("50")) {
		t.Fatalf("second maker = %s remaining %s, want partially_filled remaining 50", second.Status, second.RemainingBase())
	}
	if taker.Status != Filled {
		t.Fatalf("taker status = %s, want filled", taker.Status)
	}

	// The partially filled maker keeps the top of the book.
	best, ok := f.book.BestBid()
	if !ok || best.ID != second.ID {
		t.Fatalf("best bid = %v, want id %d", best, second.ID)
	}
}

func TestMatchExecutesAtMakerPrice(t *testing.T) {
	f := newMatchFixture(t)
	// Resting ask at 2. An aggressive bid at 3 still pays 2 per base unit.
	maker, _ := f.place(Sell, Limit, "100", "200")
	_, fills := f.place(Buy, Limit, "300", "100")

	if len(fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(fills))
	}
	if !fills[0].Price.Equal(maker.Price) {
		t.Fatalf("fill price = %s, want maker price %s", fills[0].Price, maker.Price)
	}
	if !fills[0].QuoteQty.Equal(dec("200")) {
		t.Fatalf("quote qty = %s, want 200", fills[0].QuoteQty)
	}
}

func TestMatchStopsAtNonCrossingPrice(t *testing.T) {
	f := newMatchFixture(t)
	f.place(Sell, Limit, "50", "100")  // ask 2
	f.place(Sell, Limit, "50", "150")  // ask 3
	taker, fills := f.place(Buy, Limit, "250", "100") // bid 2.5

	if len(fills) != 1 || !fills[0].BaseQty.Equal(dec("50")) {
		t.Fatalf("fills = %+v, want one fill of 50", fills)
	}
	// The residual at 2.5 rests as the best bid, and the book is not crossed.
	if taker.Status != PartiallyFilled {
		t.Fatalf("taker status = %s, want partially_filled", taker.Status)
	}
	bid, _ := f.book.BestBid()
	ask, _ := f.book.BestAsk()
	if bid.ID != taker.ID {
		t.Fatalf("best bid = %d, want taker %d", bid.ID, taker.ID)
	}
	if bid.Price.GreaterThanOrEqual(ask.Price) {
		t.Fatalf("book crossed after match: bid %s >= ask %s", bid.Price, ask.Price)
	}
}

func TestMatchPartialMakerKeepsPriority(t *testing.T) {
	f := newMatchFixture(t)
	resting, _ := f.place(Buy, Limit, "400", "200")
	f.place(Sell, Limit, "100", "100") // fills 100 of the resting bid
	f.place(Buy, Limit, "200", "100")

	// The older bid, though partially filled, keeps its slot ahead of the
	// later one at the same price.
	got := f.book.SnapshotBids()
	if len(got) != 2 || got[0] != resting.ID {
		t.Fatalf("bid snapshot = %v, want %d first", got, resting.ID)
	}
}

func TestMatchIOCResidualDoesNotRest(t *testing.T) {
	f := newMatchFixture(t)
	f.place(Sell, Limit, "50", "100")
	taker, fills := f.place(Buy, IOC, "400", "200")

	if len(fills) != 1 || !fills[0].BaseQty.Equal(dec("50")) {
		t.Fatalf("fills = %+v, want one fill of 50", fills)
	}
	if len(f.book.SnapshotBids()) != 0 {
		t.Fatal("IOC residual must not rest")
	}
	// Status is left for the lifecycle layer to cancel.
	if taker.Status.Terminal() {
		t.Fatalf("taker status = %s, expected non-terminal residual", taker.Status)
	}
}

func TestMatchFOKAllOrNothing(t *testing.T) {
	f := newMatchFixture(t)
	maker, _ := f.place(Sell, Limit, "50", "100")

	// Depth is 50, the kill order wants 100: nothing happens.
	killed, fills := f.place(Buy, FOK, "200", "100")
	if len(fills) != 0 {
		t.Fatalf("fills = %+v, want none", fills)
	}
	if !maker.RemainingBase().Equal(dec("50")) {
		t.Fatalf("maker remaining = %s, want untouched 50", maker.RemainingBase())
	}
	if !killed.FilledBase.IsZero() {
		t.Fatalf("killed taker filled = %s, want 0", killed.FilledBase)
	}

	// With enough depth the same order fills completely.
	f.place(Sell, Limit, "50", "100")
	full, fills := f.place(Buy, FOK, "200", "100")
	if full.Status != Filled {
		t.Fatalf("taker status = %s, want filled", full.Status)
	}
	if len(fills) != 2 {
		t.Fatalf("fills = %d, want 2", len(fills))
	}
}

func TestMatchFillConservation(t *testing.T) {
	f := newMatchFixture(t)
	makers := make([]*Order, 0, 4)
	for _, lot := range []struct{ offered, requested string }{
		{"30", "60"}, {"25", "55"}, {"40", "92"}, {"10", "24"},
	} {
		m, _ := f.place(Sell, Limit, lot.offered, lot.requested)
		makers = append(makers, m)
	}
	taker, fills := f.place(Buy, Limit, "300", "100")

	base := decimal.Zero
	quote := decimal.Zero
	perMaker := map[uint64]decimal.Decimal{}
	for _, fl := range fills {
		base = base.Add(fl.BaseQty)
		quote = quote.Add(fl.QuoteQty)
		perMaker[fl.MakerID] = fl.BaseQty.Add(perMaker[fl.MakerID])
	}
	if !base.Equal(taker.FilledBase) || !quote.Equal(taker.FilledQuote) {
		t.Fatalf("taker fills (%s base, %s quote) disagree with fill list (%s, %s)",
			taker.FilledBase, taker.FilledQuote, base, quote)
	}
	for _, m := range makers {
		if !perMaker[m.ID].Equal(m.FilledBase) {
			t.Fatalf("maker %d filled %s, fill list says %s", m.ID, m.FilledBase, perMaker[m.ID])
		}
		if m.FilledBase.GreaterThan(m.BaseAmount()) {
			t.Fatalf("maker %d overfilled: %s > %s", m.ID, m.FilledBase, m.BaseAmount())
		}
	}
}

func TestQuote(t *testing.T) {
	f := newMatchFixture(t)
	f.place(Sell, Limit, "50", "100") // 50 base at 2
	f.place(Sell, Limit, "50", "150") // 50 base at 3

	total, err := f.engine.Quote(Buy, dec("75"))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	// 50*2 + 25*3
	if !total.Equal(dec("175")) {
		t.Fatalf("quote = %s, want 175", total)
	}

	if _, err := f.engine.Quote(Buy, dec("200")); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("deep quote err = %v, want ErrInsufficientLiquidity", err)
	}
	if _, err := f.engine.Quote(Buy, dec("0")); !errors.Is(err, ErrInvalidOrderParams) {
		t.Fatalf("zero quote err = %v, want ErrInvalidOrderParams", err)
	}

	// Quoting never mutates the book.
	if f.book.OpenOrders() != 2 {
		t.Fatalf("open orders = %d, want 2", f.book.OpenOrders())
	}
}
