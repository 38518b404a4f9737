// Package ogg demultiplexes Ogg container streams that arrive in arbitrary
// chunks, such as a streamed HTTP response body.
package ogg

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	headerSize  = 27
	maxSegments = 255
	maxLacing   = 255
)

var capturePattern = [4]byte{'O', 'g', 'g', 'S'}

const (
	FlagContinued byte = 0x01
	FlagBOS       byte = 0x02
	FlagEOS       byte = 0x04
)

var ErrPacketTooLarge = errors.New("packets do not fit into a single page")

type Header struct {
	Version    byte
	Flags      byte
	Granule    int64
	Serial     uint32
	Sequence   uint32
	Checksum   uint32
	SegmentCnt int
}

func (h Header) IsContinued() bool { return h.Flags&FlagContinued != 0 }
func (h Header) IsBOS() bool       { return h.Flags&FlagBOS != 0 }
func (h Header) IsEOS() bool       { return h.Flags&FlagEOS != 0 }

// Page is one verified Ogg page. Lacing holds the segment table, Body the
// concatenated segments.
type Page struct {
	Header
	Lacing []byte
	Body   []byte
}

func parseHeader(b []byte) Header {
	return Header{
		Version:    b[4],
		Flags:      b[5],
		Granule:    int64(binary.LittleEndian.Uint64(b[6:14])),
		Serial:     binary.LittleEndian.Uint32(b[14:18]),
		Sequence:   binary.LittleEndian.Uint32(b[18:22]),
		Checksum:   binary.LittleEndian.Uint32(b[22:26]),
		SegmentCnt: int(b[26]),
	}
}

// Marshal lays out packets as a single page with a valid checksum. The last
// packet is terminated unless h has no room for it, in which case
// ErrPacketTooLarge is returned.
func Marshal(h Header, packets ...[]byte) ([]byte, error) {
	var lacing []byte
	bodySize := 0
	for _, packet := range packets {
		n := len(packet)
		for n >= maxLacing {
			lacing = append(lacing, maxLacing)
			n -= maxLacing
		}
		lacing = append(lacing, byte(n))
		bodySize += len(packet)
	}
	if len(lacing) > maxSegments {
		return nil, fmt.Errorf("%w: %d segments", ErrPacketTooLarge, len(lacing))
	}

	page := make([]byte, headerSize, headerSize+len(lacing)+bodySize)
	copy(page, capturePattern[:])
	page[4] = h.Version
	page[5] = h.Flags
	binary.LittleEndian.PutUint64(page[6:14], uint64(h.Granule))
	binary.LittleEndian.PutUint32(page[14:18], h.Serial)
	binary.LittleEndian.PutUint32(page[18:22], h.Sequence)
	page[26] = byte(len(lacing))
	page = append(page, lacing...)
	for _, packet := range packets {
		page = append(page, packet...)
	}

	binary.LittleEndian.PutUint32(page[22:26], checksum(page))
	return page, nil
}
