package ogg

import "bytes"

// SyncBuffer accepts raw bytes and hands out complete, checksum verified
// pages. Garbage before a capture pattern and pages failing verification are
// skipped.
type SyncBuffer struct {
	buf []byte

	discarded    int
	corruptPages int
}

func (s *SyncBuffer) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// PageOut returns the next page, or false when more data is needed.
func (s *SyncBuffer) PageOut() (Page, bool) {
	for {
		idx := bytes.Index(s.buf, capturePattern[:])
		if idx < 0 {
			// Keep a possible partial capture pattern at the tail.
			keep := min(len(s.buf), len(capturePattern)-1)
			s.skip(len(s.buf) - keep)
			return Page{}, false
		}
		if idx > 0 {
			s.skip(idx)
		}

		if len(s.buf) < headerSize {
			return Page{}, false
		}
		header := parseHeader(s.buf)
		if header.Version != 0 {
			s.skip(1)
			continue
		}

		lacingEnd := headerSize + header.SegmentCnt
		if len(s.buf) < lacingEnd {
			return Page{}, false
		}
		bodySize := 0
		for _, l := range s.buf[headerSize:lacingEnd] {
			bodySize += int(l)
		}
		pageEnd := lacingEnd + bodySize
		if len(s.buf) < pageEnd {
			return Page{}, false
		}

		if checksum(s.buf[:pageEnd]) != header.Checksum {
			s.corruptPages++
			s.skip(1)
			continue
		}

		page := Page{
			Header: header,
			Lacing: bytes.Clone(s.buf[headerSize:lacingEnd]),
			Body:   bytes.Clone(s.buf[lacingEnd:pageEnd]),
		}
		s.consume(pageEnd)
		return page, true
	}
}

// Discarded returns the number of bytes skipped while searching for pages.
func (s *SyncBuffer) Discarded() int { return s.discarded }

// CorruptPages returns the number of pages rejected by checksum.
func (s *SyncBuffer) CorruptPages() int { return s.corruptPages }

func (s *SyncBuffer) skip(n int) {
	s.discarded += n
	s.consume(n)
}

func (s *SyncBuffer) consume(n int) {
	remaining := copy(s.buf, s.buf[n:])
	s.buf = s.buf[:remaining]
}
