package market

import "strings"

// Kind selects the venue a subscription is routed to.
type Kind string

const (
	// Spot pairs come from the spot combined stream.
	Spot Kind = "spot"
	// Perpetual pairs come from the futures combined stream.
	Perpetual Kind = "perpetual"
)

// ParsePair derives the stream symbol and market kind from an operator
// selection. A trailing "PERP" token selects the perpetual market and is
// stripped; anything else is a spot pair with its "/" separator removed.
// Symbols are normalized to lower case, the casing the combined stream tags
// use.
func ParsePair(pair string) (string, Kind) {
	pair = strings.TrimSpace(pair)
	if strings.HasSuffix(pair, "PERP") {
		sym := strings.TrimSpace(strings.TrimSuffix(pair, "PERP"))
		return strings.ToLower(sym), Perpetual
	}
	return strings.ToLower(strings.ReplaceAll(pair, "/", "")), Spot
}
