package stream

import (
	"errors"
	"fmt"

	"github.com/eternalApril/moonwire/internal/resp"
)

var ErrMalformedReply = errors.New("malformed stream reply")

// ParseRead decodes an XREAD reply:
//
//	[[key, [[id, [field, value, ...]], ...]], ...]
//
// A null reply means the BLOCK timeout elapsed with no data and yields nil, nil
func ParseRead(v resp.Value) ([]Stream, error) {
	if v.Kind() == resp.KindArray && v.IsNull() {
		return nil, nil
	}

	elems, ok := v.Array()
	if !ok {
		return nil, fmt.Errorf("%w: want array, got %s", ErrMalformedReply, v.Kind())
	}

	streams := make([]Stream, 0, len(elems))
	for _, el := range elems {
		pair, ok := el.Array()
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%w: stream must be [key, entries]", ErrMalformedReply)
		}

		key, err := pair[0].Text()
		if err != nil {
			return nil, fmt.Errorf("%w: key: %w", ErrMalformedReply, err)
		}

		entries, err := ParseEntries(pair[1])
		if err != nil {
			return nil, err
		}

		streams = append(streams, Stream{Key: key, Entries: entries})
	}

	return streams, nil
}

// ParseEntries decodes a list of [id, [field, value, ...]] pairs, as returned
// inside XREAD and directly by XRANGE
func ParseEntries(v resp.Value) ([]Entry, error) {
	if v.IsNull() {
		return nil, nil
	}

	elems, ok := v.Array()
	if !ok {
		return nil, fmt.Errorf("%w: entries must be an array, got %s", ErrMalformedReply, v.Kind())
	}

	entries := make([]Entry, 0, len(elems))
	for _, el := range elems {
		pair, ok := el.Array()
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%w: entry must be [id, fields]", ErrMalformedReply)
		}

		id, err := pair[0].Text()
		if err != nil {
			return nil, fmt.Errorf("%w: entry id: %w", ErrMalformedReply, err)
		}

		fields, err := parseFields(pair[1])
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", id, err)
		}

		entries = append(entries, Entry{ID: id, Fields: fields})
	}

	return entries, nil
}

func parseFields(v resp.Value) ([]Field, error) {
	// entries trimmed away while pending come back with null fields
	if v.IsNull() {
		return nil, nil
	}

	flat, ok := v.Array()
	if !ok || len(flat)%2 != 0 {
		return nil, fmt.Errorf("%w: fields must be an even-length array", ErrMalformedReply)
	}

	fields := make([]Field, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		name, err := flat[i].Text()
		if err != nil {
			return nil, fmt.Errorf("%w: field name: %w", ErrMalformedReply, err)
		}
		value, err := flat[i+1].Text()
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %w", ErrMalformedReply, name, err)
		}
		fields = append(fields, Field{Name: name, Value: value})
	}

	return fields, nil
}
