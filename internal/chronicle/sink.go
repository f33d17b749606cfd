// Package chronicle is the narrative event log read by the presentation side:
// a fixed-capacity ring of timestamped lines with a write cursor, a read
// cursor and a time-to-live sweep.
package chronicle

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Entry is one chronicle line. A zero Time marks an expired or empty slot.
type Entry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Recorder receives every appended entry, e.g. for archiving.
type Recorder interface {
	Record(Entry) error
}

// Sink is the ring buffer. When the write cursor catches the read cursor the
// oldest unread entry is overwritten and the read cursor moves past it.
type Sink struct {
	mu      sync.Mutex
	entries []Entry
	write   int
	read    int
	maxLen  int

	now      func() time.Time
	recorder Recorder
	onError  func(error)
}

// New creates a sink holding capacity slots of at most maxLen bytes each.
func New(capacity, maxLen int) *Sink {
	if capacity < 2 {
		capacity = 2
	}
	return &Sink{
		entries: make([]Entry, capacity),
		maxLen:  maxLen,
		now:     time.Now,
	}
}

// SetClock replaces the wall clock used to stamp entries.
func (s *Sink) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// SetRecorder attaches r; onError is called when r fails.
func (s *Sink) SetRecorder(r Recorder, onError func(error)) {
	s.mu.Lock()
	s.recorder = r
	s.onError = onError
	s.mu.Unlock()
}

// Append adds one line.
func (s *Sink) Append(msg string) {
	s.mu.Lock()
	e := s.pushLocked(msg)
	rec, onErr := s.recorder, s.onError
	s.mu.Unlock()
	record(rec, onErr, e)
}

// Appendf formats and adds one line.
func (s *Sink) Appendf(format string, args ...any) {
	s.Append(fmt.Sprintf(format, args...))
}

// AppendMultiline adds every non-empty line of report as one atomic block:
// no other append can interleave with it.
func (s *Sink) AppendMultiline(report string) {
	s.mu.Lock()
	var added []Entry
	for _, line := range strings.Split(report, "\n") {
		if line == "" {
			continue
		}
		added = append(added, s.pushLocked(line))
	}
	rec, onErr := s.recorder, s.onError
	s.mu.Unlock()
	for _, e := range added {
		record(rec, onErr, e)
	}
}

func (s *Sink) pushLocked(msg string) Entry {
	msg = truncate(msg, s.maxLen)
	e := Entry{Time: s.now(), Message: msg}
	s.entries[s.write] = e
	s.write = (s.write + 1) % len(s.entries)
	if s.write == s.read {
		s.read = (s.read + 1) % len(s.entries)
	}
	return e
}

// truncate cuts msg to at most n bytes without splitting a UTF-8 sequence.
func truncate(msg string, n int) string {
	if n <= 0 || len(msg) <= n {
		return msg
	}
	for n > 0 && !utf8.RuneStart(msg[n]) {
		n--
	}
	return msg[:n]
}

func record(rec Recorder, onErr func(error), e Entry) {
	if rec == nil {
		return
	}
	if err := rec.Record(e); err != nil && onErr != nil {
		onErr(err)
	}
}

// Prune invalidates entries older than ttl. Slots keep their text; only the
// timestamp is cleared. It returns the number of entries invalidated.
func (s *Sink) Prune(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.entries {
		e := &s.entries[i]
		if !e.Time.IsZero() && now.Sub(e.Time) > ttl {
			e.Time = time.Time{}
			n++
		}
	}
	return n
}

// Unread returns the live entries between the read and write cursors,
// oldest first. The read cursor does not move.
func (s *Sink) Unread() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadLocked()
}

// TakeUnread returns the unread entries and moves the read cursor past them
// in one step, so nothing appended meanwhile is skipped.
func (s *Sink) TakeUnread() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.unreadLocked()
	s.read = s.write
	return out
}

func (s *Sink) unreadLocked() []Entry {
	var out []Entry
	for i := s.read; i != s.write; i = (i + 1) % len(s.entries) {
		if !s.entries[i].Time.IsZero() {
			out = append(out, s.entries[i])
		}
	}
	return out
}

// MarkRead moves the read cursor up to the write cursor.
func (s *Sink) MarkRead() {
	s.mu.Lock()
	s.read = s.write
	s.mu.Unlock()
}

// Entries returns every live entry in the ring, oldest first.
func (s *Sink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	n := len(s.entries)
	for k := 0; k < n; k++ {
		e := s.entries[(s.write+k)%n]
		if !e.Time.IsZero() {
			out = append(out, e)
		}
	}
	return out
}

// Restore replaces the ring contents with entries (oldest first), keeping
// only the newest that fit. All restored entries are unread.
func (s *Sink) Restore(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	s.write, s.read = 0, 0
	if keep := len(s.entries) - 1; len(entries) > keep {
		entries = entries[len(entries)-keep:]
	}
	for _, e := range entries {
		s.entries[s.write] = e
		s.write = (s.write + 1) % len(s.entries)
	}
}
