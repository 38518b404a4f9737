package opus

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	headMagic = []byte("OpusHead")
	tagsMagic = []byte("OpusTags")

	ErrShortHeader = errors.New("opus header packet too short")
)

const (
	headSize    = 19
	minTagsSize = 16
)

// Head is the identification header of an Ogg Opus stream.
type Head struct {
	Version         uint8
	Channels        uint8
	PreSkip         uint16
	InputSampleRate uint32
	OutputGain      int16
	MappingFamily   uint8
}

// Tags is the comment header of an Ogg Opus stream.
type Tags struct {
	Vendor   string
	Comments []string
}

func IsHead(packet []byte) bool { return bytes.HasPrefix(packet, headMagic) }
func IsTags(packet []byte) bool { return bytes.HasPrefix(packet, tagsMagic) }

func ParseHead(packet []byte) (Head, error) {
	if !IsHead(packet) {
		return Head{}, fmt.Errorf("missing OpusHead magic")
	}
	if len(packet) < headSize {
		return Head{}, fmt.Errorf("%w: OpusHead has %d bytes", ErrShortHeader, len(packet))
	}

	return Head{
		Version:         packet[8],
		Channels:        packet[9],
		PreSkip:         binary.LittleEndian.Uint16(packet[10:12]),
		InputSampleRate: binary.LittleEndian.Uint32(packet[12:16]),
		OutputGain:      int16(binary.LittleEndian.Uint16(packet[16:18])),
		MappingFamily:   packet[18],
	}, nil
}

// ParseTags reads the vendor string and as many user comments as the packet
// holds. Truncated comment lists are not an error.
func ParseTags(packet []byte) (Tags, error) {
	if !IsTags(packet) {
		return Tags{}, fmt.Errorf("missing OpusTags magic")
	}
	if len(packet) < minTagsSize {
		return Tags{}, fmt.Errorf("%w: OpusTags has %d bytes", ErrShortHeader, len(packet))
	}

	vendorLen := int(binary.LittleEndian.Uint32(packet[8:12]))
	rest := packet[12:]
	if vendorLen > len(rest) {
		return Tags{}, fmt.Errorf("%w: vendor length %d exceeds packet", ErrShortHeader, vendorLen)
	}
	tags := Tags{Vendor: string(rest[:vendorLen])}
	rest = rest[vendorLen:]

	if len(rest) < 4 {
		return tags, nil
	}
	count := int(binary.LittleEndian.Uint32(rest[:4]))
	rest = rest[4:]
	for range count {
		if len(rest) < 4 {
			break
		}
		n := int(binary.LittleEndian.Uint32(rest[:4]))
		rest = rest[4:]
		if n > len(rest) {
			break
		}
		tags.Comments = append(tags.Comments, string(rest[:n]))
		rest = rest[n:]
	}

	return tags, nil
}
