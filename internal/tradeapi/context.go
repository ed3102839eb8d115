package tradeapi

import (
	"fmt"
	"math"
)

// Context is the signal emitter handed to strategy code. It records a
// sequential signal log for one sandbox run. Position bookkeeping is
// deliberately not part of this surface: strategies track their own
// position, the engine only collects intents.
type Context struct {
	current    *Candle
	signals    []Signal
	nextOrdSeq int
}

func NewContext() *Context {
	return &Context{}
}

// SetCurrent binds the bar whose replay call is about to run. Signals
// emitted until the next call are timestamped with this bar's time.
func (c *Context) SetCurrent(candle Candle) {
	c.current = &candle
}

// Order emits a BUY or SELL intent and returns the assigned order id.
// A nil price means MARKET at the current bar's close; a numeric price
// means LIMIT at that price. A string in the price slot is treated as the
// reason — legacy positional-call behavior that existing strategies rely
// on. No-op (empty id) when no bar is bound.
func (c *Context) Order(action string, size float64, price any, reason string) string {
	if c.current == nil {
		return ""
	}

	orderType := OrderMarket
	signalPrice := c.current.Close
	limitPrice := 0.0

	switch p := price.(type) {
	case nil:
	case string:
		if reason == "" {
			reason = p
		}
	case float64:
		orderType = OrderLimit
		signalPrice = p
		limitPrice = p
	case float32:
		orderType = OrderLimit
		signalPrice = float64(p)
		limitPrice = float64(p)
	case int:
		orderType = OrderLimit
		signalPrice = float64(p)
		limitPrice = float64(p)
	}

	c.nextOrdSeq++
	id := fmt.Sprintf("ORD-%d", c.nextOrdSeq)
	c.append(Signal{
		Time:       c.current.Time,
		Action:     action,
		Price:      signalPrice,
		Size:       size,
		Reason:     reason,
		OrderID:    id,
		OrderType:  orderType,
		LimitPrice: limitPrice,
	})
	return id
}

// Cancel emits a cancellation intent for a previously returned order id.
// No-op when no bar is bound.
func (c *Context) Cancel(orderID, reason string) {
	if c.current == nil {
		return
	}
	c.append(Signal{
		Time:    c.current.Time,
		Action:  ActionCancel,
		Reason:  reason,
		OrderID: orderID,
	})
}

// CloseAll emits a flatten-everything intent. No-op when no bar is bound.
func (c *Context) CloseAll(reason string) {
	if c.current == nil {
		return
	}
	c.append(Signal{
		Time:   c.current.Time,
		Action: ActionCloseAll,
		Price:  c.current.Close,
		Reason: reason,
	})
}

// SMA mirrors the package-level helper so function-form strategies can
// reach it through their context argument.
func (c *Context) SMA(series []float64, period int) []float64 {
	return SMA(series, period)
}

// Signals returns the accumulated log.
func (c *Context) Signals() []Signal {
	return c.signals
}

func (c *Context) append(s Signal) {
	c.signals = append(c.signals, sanitize(s))
}

// sanitize coerces NaN/Infinity to 0 so broken arithmetic in user code
// degrades instead of poisoning the result payload.
func sanitize(s Signal) Signal {
	s.Price = finite(s.Price)
	s.Size = finite(s.Size)
	s.LimitPrice = finite(s.LimitPrice)
	return s
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
