// Package ledger turns trade intents into executions and an auditable
// position/PnL record, net of fees.
package ledger

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Side of an execution.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Costs parameterizes execution frictions. A zero Slippage disables
// slippage adjustment entirely.
type Costs struct {
	Slippage         float64 // price points added against the taker
	CommissionPerLot float64
	TaxRate          float64 // applied to notional, rounded to whole currency units
	PointValue       float64 // currency value of one price point per lot
}

// Position is a signed holding. Size > 0 is long, < 0 short.
// Size == 0 always implies AvgPrice == 0.
type Position struct {
	Size     int     `json:"size"`
	AvgPrice float64 `json:"avgPrice"`
}

// Trade is one immutable ledger record per processed order.
type Trade struct {
	ID            string   `json:"id"`
	Side          string   `json:"side"`
	ExecPrice     float64  `json:"execPrice"`
	Size          int      `json:"size"`
	Time          int64    `json:"time"`
	PnL           float64  `json:"pnl"` // realized, net of fees
	PositionAfter Position `json:"positionAfter"`
	Note          string   `json:"note,omitempty"`
}

// ApplyTrade executes one order against a position. It returns the trade
// record, the updated position, the fees charged and the realized net PnL
// (gross realized PnL minus fees). Callers never request closing more than
// exists in one call; a partial close closes min(|position|, size).
func ApplyTrade(side string, rawPrice float64, size int, ts int64, pos Position, costs Costs) (Trade, Position, float64, float64) {
	execPrice := rawPrice
	if side == SideBuy {
		execPrice += costs.Slippage
	} else {
		execPrice -= costs.Slippage
	}

	fees := costs.CommissionPerLot*float64(size) +
		math.Round(execPrice*costs.PointValue*float64(size)*costs.TaxRate)

	signedQty := size
	if side == SideSell {
		signedQty = -size
	}

	gross := 0.0
	newPos := pos

	switch {
	case pos.Size != 0 && (pos.Size > 0) != (signedQty > 0):
		// Reduces or flips the existing position.
		closedQty := size
		if abs(pos.Size) < closedQty {
			closedQty = abs(pos.Size)
		}
		if pos.Size > 0 {
			gross = (execPrice - pos.AvgPrice) * float64(closedQty) * costs.PointValue
		} else {
			gross = (pos.AvgPrice - execPrice) * float64(closedQty) * costs.PointValue
		}

		newPos.Size = pos.Size + signedQty
		switch {
		case newPos.Size == 0:
			newPos.AvgPrice = 0
		case (newPos.Size > 0) != (pos.Size > 0):
			// Full reversal: the flipping order sets the new basis.
			newPos.AvgPrice = execPrice
		}

	default:
		// Opens or adds; size-weighted average of old value and new fill.
		oldAbs := abs(pos.Size)
		newPos.Size = pos.Size + signedQty
		newPos.AvgPrice = (float64(oldAbs)*pos.AvgPrice + float64(size)*execPrice) /
			float64(oldAbs+size)
	}

	net := gross - fees
	trade := Trade{
		ID:            uuid.NewString(),
		Side:          side,
		ExecPrice:     execPrice,
		Size:          size,
		Time:          ts,
		PnL:           net,
		PositionAfter: newPos,
	}
	return trade, newPos, fees, net
}

// Ledger accumulates trades applied in sequence.
type Ledger struct {
	Position    Position
	Trades      []Trade
	RealizedPnL float64
	Costs       Costs
}

func New(costs Costs) *Ledger {
	return &Ledger{Costs: costs}
}

// Apply executes one order and records the resulting trade.
func (l *Ledger) Apply(side string, rawPrice float64, size int, ts int64) Trade {
	if ts == 0 {
		ts = time.Now().Unix()
	}
	trade, pos, _, net := ApplyTrade(side, rawPrice, size, ts, l.Position, l.Costs)
	l.Position = pos
	l.RealizedPnL += net
	l.Trades = append(l.Trades, trade)
	return trade
}

// CloseAll flattens any open position at rawPrice.
func (l *Ledger) CloseAll(rawPrice float64, ts int64) *Trade {
	if l.Position.Size == 0 {
		return nil
	}
	side := SideSell
	if l.Position.Size < 0 {
		side = SideBuy
	}
	trade := l.Apply(side, rawPrice, abs(l.Position.Size), ts)
	return &trade
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
