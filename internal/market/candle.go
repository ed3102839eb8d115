package market

// BookLevel is one price/volume entry of an order-book side.
type BookLevel struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// OrderBook holds up to the five best levels per side at candle close.
type OrderBook struct {
	Bids []BookLevel `json:"bids,omitempty"`
	Asks []BookLevel `json:"asks,omitempty"`
}

// Candle is a single OHLCV bar. Immutable once produced; series are
// ordered by Time ascending.
type Candle struct {
	Time      int64      `json:"time"`
	Open      float64    `json:"open"`
	High      float64    `json:"high"`
	Low       float64    `json:"low"`
	Close     float64    `json:"close"`
	Volume    float64    `json:"volume"`
	OrderBook *OrderBook `json:"orderBook,omitempty"`
}

// Closes extracts the close series from candles.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
