// Package channelstate holds the list of tracked Discord channels and the
// cursor of the last message processed in each of them.
package channelstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Key is the single key the channel list is stored under.
const Key = "channel_list"

var (
	// ErrNotFound is returned by a KV when the key has never been written.
	ErrNotFound = errors.New("key not found")
	// ErrDuplicateChannel is returned when appending an id that is already tracked.
	ErrDuplicateChannel = errors.New("channel already tracked")
)

// KV is the persistence layer the store is read from and written to.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// ChannelRecord is one tracked channel. An empty LastMessageID means the
// channel has never been polled.
type ChannelRecord struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          int    `json:"type"`
	LastMessageID string `json:"last_message_id,omitempty"`
}

// Store is the ordered list of tracked channels. Records are only ever
// appended, and after that only the cursor changes.
type Store struct {
	records []ChannelRecord
}

// New builds a store from records, dropping repeated ids after the first.
func New(records ...ChannelRecord) Store {
	var s Store
	for _, r := range records {
		if s.Contains(r.ID) {
			slog.Warn("dropping duplicate channel record", "channel_id", r.ID, "name", r.Name)
			continue
		}
		s.records = append(s.records, r)
	}
	return s
}

// Records returns a copy of the records in store order.
func (s Store) Records() []ChannelRecord {
	out := make([]ChannelRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len reports how many channels are tracked.
func (s Store) Len() int {
	return len(s.records)
}

// Clone returns a store that shares no memory with s.
func (s Store) Clone() Store {
	return Store{records: s.Records()}
}

// Contains reports whether a record with id exists.
func (s Store) Contains(id string) bool {
	for _, r := range s.records {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Get returns the record with id.
func (s Store) Get(id string) (ChannelRecord, bool) {
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return ChannelRecord{}, false
}

// Append adds rec at the end of the store.
func (s *Store) Append(rec ChannelRecord) error {
	if s.Contains(rec.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, rec.ID)
	}
	s.records = append(s.records, rec)
	return nil
}

// SetCursor moves the cursor of channel id. It reports false if the channel
// is not tracked.
func (s *Store) SetCursor(id, lastMessageID string) bool {
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].LastMessageID = lastMessageID
			return true
		}
	}
	return false
}

func (s Store) MarshalJSON() ([]byte, error) {
	if s.records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.records)
}

func (s *Store) UnmarshalJSON(b []byte) error {
	var records []ChannelRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return err
	}
	*s = New(records...)
	return nil
}

// Load reads the whole store from kv. A key that was never written loads as
// an empty store.
func Load(ctx context.Context, kv KV) (Store, error) {
	raw, err := kv.Get(ctx, Key)
	if errors.Is(err, ErrNotFound) {
		slog.Info("no channel list stored yet, starting empty")
		return Store{}, nil
	}
	if err != nil {
		return Store{}, fmt.Errorf("failed to load channel list: %w", err)
	}

	var s Store
	if err := json.Unmarshal(raw, &s); err != nil {
		return Store{}, fmt.Errorf("failed to parse channel list: %w", err)
	}
	slog.Debug("loaded channel list", "channels", s.Len())
	return s, nil
}

// Save replaces the stored blob with s.
func Save(ctx context.Context, kv KV, s Store) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal channel list: %w", err)
	}
	if err := kv.Put(ctx, Key, raw); err != nil {
		return fmt.Errorf("failed to save channel list: %w", err)
	}
	slog.Debug("saved channel list", "channels", s.Len())
	return nil
}

// MemoryKV is an in-process KV, used in tests and for dry runs.
type MemoryKV struct {
	Values map[string][]byte
	Puts   int
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{Values: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.Values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	m.Values[key] = append([]byte(nil), value...)
	m.Puts++
	return nil
}
