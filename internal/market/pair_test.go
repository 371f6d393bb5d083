package market

import "testing"

func TestParsePair(t *testing.T) {
	cases := []struct {
		pair string
		sym  string
		kind Kind
	}{
		{"BTCUSDT PERP", "btcusdt", Perpetual},
		{"ETHUSDT PERP", "ethusdt", Perpetual},
		{"BTC/USDT", "btcusdt", Spot},
		{"DOGE/BUSD", "dogebusd", Spot},
		{"BTCUSDT", "btcusdt", Spot},
		{"  SOL/USDT  ", "solusdt", Spot},
	}

	for _, tc := range cases {
		sym, kind := ParsePair(tc.pair)
		if sym != tc.sym || kind != tc.kind {
			t.Errorf("ParsePair(%q) = (%q, %q), want (%q, %q)", tc.pair, sym, kind, tc.sym, tc.kind)
		}
	}
}
