package market

import (
	"math"
	"math/rand"
)

// SyntheticConfig controls the random-walk series generator.
type SyntheticConfig struct {
	StartPrice float64
	Step       float64
	StartTime  int64
	Interval   int64 // seconds between bars
	WithBook   bool
}

// GenerateSeries produces a deterministic random-walk candle series for
// local development and tests. The generator owns its own seeded rand
// source; nothing here touches the global RNG.
func GenerateSeries(seed int64, n int, cfg SyntheticConfig) []Candle {
	rng := rand.New(rand.NewSource(seed))

	price := cfg.StartPrice
	if price == 0 {
		price = 100.0
	}
	step := cfg.Step
	if step == 0 {
		step = 0.5
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = 60
	}

	candles := make([]Candle, 0, n)
	t := cfg.StartTime
	for i := 0; i < n; i++ {
		open := price
		// simple random walk
		price += (rng.Float64()*2 - 1) * step
		high := math.Max(open, price) + rng.Float64()*step*0.5
		low := math.Min(open, price) - rng.Float64()*step*0.5
		c := Candle{
			Time:   t,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  price,
			Volume: 100 + rng.Float64()*900,
		}
		if cfg.WithBook {
			c.OrderBook = syntheticBook(rng, price)
		}
		candles = append(candles, c)
		t += interval
	}
	return candles
}

func syntheticBook(rng *rand.Rand, mid float64) *OrderBook {
	book := &OrderBook{}
	tick := mid * 0.0001
	for i := 1; i <= 5; i++ {
		book.Bids = append(book.Bids, BookLevel{
			Price:  mid - float64(i)*tick,
			Volume: 1 + rng.Float64()*10,
		})
		book.Asks = append(book.Asks, BookLevel{
			Price:  mid + float64(i)*tick,
			Volume: 1 + rng.Float64()*10,
		})
	}
	return book
}
