package tradeapi

import "testing"

// The table must be visible under the import path user code writes and
// under the package's canonical path, or interpreted functions returning
// Strategy/Environment fail to resolve their interface wrappers.
func TestSymbolsRegisteredUnderBothPaths(t *testing.T) {
	keys := []string{
		"tradeapi/tradeapi",
		"backtest-core/internal/tradeapi/tradeapi",
	}
	for _, key := range keys {
		table, ok := Symbols[key]
		if !ok {
			t.Fatalf("symbol table missing key %q", key)
		}
		for _, name := range []string{"Strategy", "Environment", "_Strategy", "_Environment", "Candle", "Params"} {
			if _, ok := table[name]; !ok {
				t.Fatalf("%q missing from table %q", name, key)
			}
		}
	}
}
