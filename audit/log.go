package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentgov/core"
	"github.com/hupe1980/agentgov/proof"
)

// Entry is a tamper-evident log record.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	Target    string         `json:"target"`
	Details   map[string]any `json:"details,omitempty"`

	// PreviousHash links this entry to the preceding one.
	PreviousHash string `json:"previous_hash"`

	// Hash is the SHA-256 digest of this entry's canonical form, excluding
	// the Hash field itself.
	Hash string `json:"hash"`
}

// Log manages an append-only sequence of hash-chained audit entries. Safe for
// concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	clock   func() time.Time
}

// NewLog creates an empty audit log. A nil clock defaults to time.Now.
func NewLog(clock func() time.Time) *Log {
	if clock == nil {
		clock = time.Now
	}
	return &Log{clock: clock}
}

// Append adds a new entry derived from ev, linking it to the previous one.
// The event's own timestamp is preserved when set; otherwise the log clock
// stamps it.
func (l *Log) Append(ev core.AuditEvent) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevHash := ""
	if len(l.entries) > 0 {
		prevHash = l.entries[len(l.entries)-1].Hash
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = l.clock()
	}

	entry := Entry{
		ID:           uuid.NewString(),
		Timestamp:    ts.UTC(),
		Actor:        ev.Actor,
		Action:       ev.Action,
		Target:       ev.Target,
		Details:      ev.Details,
		PreviousHash: prevHash,
	}

	hash, err := computeEntryHash(&entry)
	if err != nil {
		return nil, err
	}
	entry.Hash = hash

	l.entries = append(l.entries, entry)
	return &entry, nil
}

// Entries returns a snapshot of the log.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// VerifyChain checks the integrity of the log: every entry's PreviousHash
// must match the actual hash of the preceding entry, and every entry's Hash
// must match its content.
func (l *Log) VerifyChain() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, entry := range l.entries {
		if i == 0 {
			if entry.PreviousHash != "" {
				return false, fmt.Errorf("entry %d: unexpected previous hash on first entry", i)
			}
		} else if entry.PreviousHash != l.entries[i-1].Hash {
			return false, fmt.Errorf("entry %d: broken chain link", i)
		}

		expected, err := computeEntryHash(&entry)
		if err != nil {
			return false, err
		}
		if entry.Hash != expected {
			return false, fmt.Errorf("entry %d: content hash mismatch", i)
		}
	}
	return true, nil
}

// computeEntryHash hashes the canonical form of the entry with the Hash field
// cleared.
func computeEntryHash(entry *Entry) (string, error) {
	stripped := *entry
	stripped.Hash = ""
	hash, err := proof.CanonicalHash(stripped)
	if err != nil {
		return "", fmt.Errorf("audit: hash entry: %w", err)
	}
	return hash, nil
}
