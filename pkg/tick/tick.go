package tick

// Tick is one price observation decoded from the feed.
type Tick struct {
	Symbol    string  `json:"symbol"` // Trading symbol (e.g., "BTC")
	Price     float64 `json:"price"`  // Last traded price
	Timestamp uint64  `json:"ts"`     // Server time in milliseconds since epoch
}

// Symbols is the fixed, ordered vocabulary used by binary frames.
// Index 0 doubles as the fallback for unknown indices.
var Symbols = [...]string{"BTC", "ETH", "SOL", "DOGE", "XRP"}

// SymbolAt returns the symbol for a binary index, falling back to Symbols[0].
func SymbolAt(idx uint32) string {
	if int(idx) >= len(Symbols) {
		return Symbols[0]
	}
	return Symbols[idx]
}

// SymbolIndex returns the binary index of symbol.
func SymbolIndex(symbol string) (uint32, bool) {
	for i, s := range Symbols {
		if s == symbol {
			return uint32(i), true
		}
	}
	return 0, false
}

// FrameKind identifies how an inbound frame is encoded.
type FrameKind int

const (
	FrameOther FrameKind = iota
	FrameText
	FrameBinary
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	default:
		return "other"
	}
}

// IsApplication reports whether frames of this kind carry feed payloads.
func (k FrameKind) IsApplication() bool {
	return k == FrameText || k == FrameBinary
}

// Frame is a single message read off the transport.
type Frame struct {
	Kind FrameKind
	Data []byte
}
