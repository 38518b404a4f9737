package ogg

import (
	"errors"
	"fmt"
)

var (
	ErrSerialMismatch = errors.New("page belongs to a different logical stream")
	ErrPageGap        = errors.New("page sequence gap")
)

// Stream reassembles packets of one logical stream from its pages.
type Stream struct {
	serial   uint32
	started  bool
	sequence uint32

	partial    []byte
	hasPartial bool
	packets    [][]byte
}

func NewStream(serial uint32) *Stream {
	return &Stream{serial: serial}
}

func (s *Stream) Serial() uint32 { return s.serial }

// PageIn queues the packets completed by p. A sequence gap drops the packet
// that was being assembled and is reported with ErrPageGap after the page has
// been accepted.
func (s *Stream) PageIn(p Page) error {
	if p.Serial != s.serial {
		return fmt.Errorf("%w: expected %d, got %d", ErrSerialMismatch, s.serial, p.Serial)
	}

	var gapErr error
	if s.started && p.Sequence != s.sequence+1 {
		gapErr = fmt.Errorf("%w: expected page %d, got %d", ErrPageGap, s.sequence+1, p.Sequence)
		s.dropPartial()
	}
	s.started = true
	s.sequence = p.Sequence

	if !p.IsContinued() && s.hasPartial {
		s.dropPartial()
	}
	// The start of a continued packet was lost, skip to its end.
	skipping := p.IsContinued() && !s.hasPartial

	offset := 0
	for _, l := range p.Lacing {
		segment := p.Body[offset : offset+int(l)]
		offset += int(l)

		if skipping {
			if l < maxLacing {
				skipping = false
			}
			continue
		}

		s.partial = append(s.partial, segment...)
		s.hasPartial = true
		if l < maxLacing {
			s.packets = append(s.packets, s.partial)
			s.partial = nil
			s.hasPartial = false
		}
	}

	return gapErr
}

// PacketOut returns the next complete packet.
func (s *Stream) PacketOut() ([]byte, bool) {
	if len(s.packets) == 0 {
		return nil, false
	}

	packet := s.packets[0]
	s.packets[0] = nil
	s.packets = s.packets[1:]
	return packet, true
}

func (s *Stream) dropPartial() {
	s.partial = nil
	s.hasPartial = false
}
