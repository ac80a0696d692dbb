package tick

import (
	"encoding/binary"
	"encoding/json"
	"math"
)

// BinaryFrameSize is the length of an encoded binary tick.
const BinaryFrameSize = 20

// textTick mirrors the JSON payload. Pointer fields let missing keys be told apart from zero values.
type textTick struct {
	Symbol *string  `json:"symbol"`
	Price  *float64 `json:"price"`
	Ts     *uint64  `json:"ts"`
}

// Decode turns a raw frame into a Tick. Anything that is not a well-formed
// text or binary tick is rejected with ok == false.
func Decode(kind FrameKind, data []byte) (Tick, bool) {
	switch kind {
	case FrameText:
		return DecodeText(data)
	case FrameBinary:
		return DecodeBinary(data)
	default:
		return Tick{}, false
	}
}

// DecodeText parses a JSON object of the form {"symbol":"BTC","price":1.5,"ts":1700000000000}.
func DecodeText(data []byte) (Tick, bool) {
	var raw textTick
	if err := json.Unmarshal(data, &raw); err != nil {
		return Tick{}, false
	}
	if raw.Symbol == nil || raw.Price == nil || raw.Ts == nil {
		return Tick{}, false
	}
	return Tick{Symbol: *raw.Symbol, Price: *raw.Price, Timestamp: *raw.Ts}, true
}

// DecodeBinary parses the 20-byte little-endian layout:
//
//	[0:4]   uint32  symbol index
//	[4:12]  float64 price
//	[12:20] int64   timestamp (ms), reinterpreted as unsigned
//
// Trailing bytes are ignored.
func DecodeBinary(data []byte) (Tick, bool) {
	if len(data) < BinaryFrameSize {
		return Tick{}, false
	}
	idx := binary.LittleEndian.Uint32(data[0:4])
	price := math.Float64frombits(binary.LittleEndian.Uint64(data[4:12]))
	ts := binary.LittleEndian.Uint64(data[12:20])

	return Tick{Symbol: SymbolAt(idx), Price: price, Timestamp: ts}, true
}

// EncodeBinary is the inverse of DecodeBinary. Symbols outside the vocabulary encode as index 0.
func EncodeBinary(t Tick) []byte {
	return AppendBinary(make([]byte, 0, BinaryFrameSize), t)
}

// AppendBinary appends the binary encoding of t to dst.
func AppendBinary(dst []byte, t Tick) []byte {
	idx, _ := SymbolIndex(t.Symbol)
	dst = binary.LittleEndian.AppendUint32(dst, idx)
	dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(t.Price))
	dst = binary.LittleEndian.AppendUint64(dst, t.Timestamp)
	return dst
}
