package lichtwerkd

import (
	"errors"
	"fmt"

	"dev.acmcsuf.com/christmas/lib/xcolor"
	"dev.acmcsuf.com/lichtwerkd/effects"
	"google.golang.org/protobuf/encoding/protowire"
)

// Frames are streamed as protobuf messages equivalent to
//
//	message Frame {
//	  repeated uint32 leds = 1; // packed, 0xRRGGBB
//	  uint64 seq = 2;
//	}
const (
	frameLEDsField protowire.Number = 1
	frameSeqField  protowire.Number = 2
)

// appendFrame appends the wire encoding of a frame to b.
func appendFrame(b []byte, seq uint64, leds []effects.RGB) []byte {
	var size int
	for _, led := range leds {
		size += protowire.SizeVarint(uint64(xcolor.RGB(led).ToUint()))
	}

	b = protowire.AppendTag(b, frameLEDsField, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(size))
	for _, led := range leds {
		b = protowire.AppendVarint(b, uint64(xcolor.RGB(led).ToUint()))
	}

	b = protowire.AppendTag(b, frameSeqField, protowire.VarintType)
	b = protowire.AppendVarint(b, seq)
	return b
}

// decodeFrame parses a frame produced by appendFrame. Unknown fields are
// skipped.
func decodeFrame(b []byte) (seq uint64, leds []effects.RGB, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == frameLEDsField && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, nil, protowire.ParseError(n)
			}
			b = b[n:]

			for len(packed) > 0 {
				v, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return 0, nil, protowire.ParseError(n)
				}
				packed = packed[n:]
				leds = append(leds, effects.RGB(xcolor.RGBFromUint(uint32(v))))
			}

		case num == frameSeqField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, nil, protowire.ParseError(n)
			}
			b = b[n:]
			seq = v

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, nil, fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if leds == nil {
		return 0, nil, errors.New("frame has no LEDs")
	}
	return seq, leds, nil
}
