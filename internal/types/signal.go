package types

import "strings"

// SignalKind is the closed set of instructions a strategy can emit for a step.
type SignalKind int

const (
	// SignalHold keeps the current holding unchanged.
	SignalHold SignalKind = iota
	// SignalGoToCash liquidates any held product into cash.
	SignalGoToCash
	// SignalGoToAsset rotates the whole portfolio into Signal.Symbol.
	SignalGoToAsset
)

func (k SignalKind) String() string {
	switch k {
	case SignalHold:
		return "hold"
	case SignalGoToCash:
		return "go_to_cash"
	case SignalGoToAsset:
		return "go_to_asset"
	default:
		return "unknown"
	}
}

// Signal is a parsed target instruction. Only ParseSignal and HoldSignal build one.
type Signal struct {
	Kind SignalKind
	// Symbol is the normalized target. It is the cash symbol for SignalGoToCash
	// and empty for SignalHold.
	Symbol string
	// Raw is the token as read from the signal series.
	Raw string
}

// noopTokens are the spellings that mean "no instruction" in a signal series.
var noopTokens = map[string]struct{}{
	"":    {},
	"NIL": {},
	"NAN": {},
}

// HoldSignal returns the signal used for steps without an instruction.
func HoldSignal() Signal {
	return Signal{Kind: SignalHold}
}

// ParseSignal normalizes a raw signal token. Tokens are trimmed and upper-cased;
// blank, NIL and NAN are holds, the cash symbol is a move to cash, and every other
// token is a move into that symbol.
func ParseSignal(raw string, cashSymbol string) Signal {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if _, ok := noopTokens[token]; ok {
		return Signal{Kind: SignalHold, Raw: raw}
	}

	if token == strings.ToUpper(strings.TrimSpace(cashSymbol)) {
		return Signal{Kind: SignalGoToCash, Symbol: token, Raw: raw}
	}

	return Signal{Kind: SignalGoToAsset, Symbol: token, Raw: raw}
}

// IsHold reports whether the signal leaves the portfolio untouched.
func (s Signal) IsHold() bool {
	return s.Kind == SignalHold
}

// String returns the normalized target, or an empty string for a hold.
func (s Signal) String() string {
	return s.Symbol
}

// SignalRow is one row of a signal series file.
type SignalRow struct {
	Timestamp int64  `csv:"timestamp"`
	Signal    string `csv:"signal"`
	// Positional is set when the source file had no timestamp column and the
	// row must take the timestamp of the price row at the same index.
	Positional bool `csv:"-"`
}
