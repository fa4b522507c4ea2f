package stream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/eternalApril/moonwire/internal/resp"
)

// LatestID asks XREAD for entries added after the call, skipping history
const LatestID = "$"

var (
	ErrOddFields  = errors.New("fields must come in name/value pairs")
	ErrCursorSave = errors.New("save stream cursor")
)

// Executor runs one command and returns its reply
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (resp.Value, error)
}

// CursorStore persists the last consumed entry ID between runs
type CursorStore interface {
	Load() (string, error)
	Save(id string) error
}

// Add appends an entry with XADD and returns the ID the server assigned.
// Pass "*" as id to let the server choose
func Add(ctx context.Context, exec Executor, key, id string, fields ...string) (string, error) {
	if len(fields) == 0 || len(fields)%2 != 0 {
		return "", ErrOddFields
	}

	args := make([]string, 0, 2+len(fields))
	args = append(args, key, id)
	args = append(args, fields...)

	v, err := exec.Execute(ctx, "XADD", args...)
	if err != nil {
		return "", err
	}
	return v.Text()
}

// PollerConfig configures a Poller
type PollerConfig struct {
	Key     string
	Block   time.Duration // XREAD BLOCK argument; 0 blocks forever
	Count   int           // XREAD COUNT argument; 0 omits it
	StartID string        // cursor used when Store has none; defaults to LatestID
	Store   CursorStore   // optional
}

// Poller repeatedly issues bounded XREADs for one key and tracks the cursor
// (last_id) so each poll asks only for entries after the highest one seen.
// The cursor belongs to the Poller, not the connection, so a Poller can be
// carried across reconnects
type Poller struct {
	key    string
	block  time.Duration
	count  int
	cursor string
	store  CursorStore
}

// NewPoller builds a Poller, restoring the cursor from cfg.Store when present
func NewPoller(cfg PollerConfig) (*Poller, error) {
	p := &Poller{
		key:    cfg.Key,
		block:  cfg.Block,
		count:  cfg.Count,
		cursor: cfg.StartID,
		store:  cfg.Store,
	}
	if p.cursor == "" {
		p.cursor = LatestID
	}

	if p.store != nil {
		saved, err := p.store.Load()
		if err != nil {
			return nil, fmt.Errorf("load stream cursor: %w", err)
		}
		if saved != "" {
			p.cursor = saved
		}
	}

	return p, nil
}

// Cursor returns the ID the next poll reads after
func (p *Poller) Cursor() string {
	return p.cursor
}

// SetCursor moves the cursor, e.g. to "0" to replay the whole stream.
// It is not persisted until the next non-empty poll
func (p *Poller) SetCursor(id string) {
	p.cursor = id
}

// Key returns the stream key being polled
func (p *Poller) Key() string {
	return p.key
}

// Poll issues one XREAD BLOCK. When the block time elapses without data it
// returns no entries and a nil error; the caller simply polls again.
// If persisting the cursor fails, the entries are still returned together
// with an error wrapping ErrCursorSave
func (p *Poller) Poll(ctx context.Context, exec Executor) ([]Entry, error) {
	args := []string{"BLOCK", strconv.FormatInt(p.block.Milliseconds(), 10)}
	if p.count > 0 {
		args = append(args, "COUNT", strconv.Itoa(p.count))
	}
	args = append(args, "STREAMS", p.key, p.cursor)

	v, err := exec.Execute(ctx, "XREAD", args...)
	if err != nil {
		return nil, err
	}

	streams, err := ParseRead(v)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, s := range streams {
		if s.Key == p.key {
			entries = append(entries, s.Entries...)
		}
	}
	if len(entries) == 0 {
		return nil, nil
	}

	if !p.advance(entries) || p.store == nil {
		return entries, nil
	}
	if err := p.store.Save(p.cursor); err != nil {
		return entries, fmt.Errorf("%w: %w", ErrCursorSave, err)
	}
	return entries, nil
}

// advance moves the cursor to the highest entry ID and reports whether it moved
func (p *Poller) advance(entries []Entry) bool {
	current, err := ParseEntryID(p.cursor)
	haveCurrent := err == nil

	moved := false
	for _, e := range entries {
		id, err := ParseEntryID(e.ID)
		if err != nil {
			continue
		}
		if !haveCurrent || current.Less(id) {
			current, haveCurrent = id, true
			moved = true
		}
	}

	if moved {
		p.cursor = current.String()
	}
	return moved
}
