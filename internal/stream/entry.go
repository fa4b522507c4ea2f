package stream

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidID = errors.New("invalid stream entry id")

// EntryID is a stream entry ID of the form <ms>-<seq>
type EntryID struct {
	Ms  uint64
	Seq uint64
}

// ParseEntryID accepts "<ms>-<seq>" and the short form "<ms>"
func ParseEntryID(s string) (EntryID, error) {
	msPart, seqPart, hasSeq := strings.Cut(s, "-")

	ms, err := strconv.ParseUint(msPart, 10, 64)
	if err != nil {
		return EntryID{}, fmt.Errorf("%w %q", ErrInvalidID, s)
	}

	var seq uint64
	if hasSeq {
		if seq, err = strconv.ParseUint(seqPart, 10, 64); err != nil {
			return EntryID{}, fmt.Errorf("%w %q", ErrInvalidID, s)
		}
	}

	return EntryID{Ms: ms, Seq: seq}, nil
}

func (id EntryID) String() string {
	return strconv.FormatUint(id.Ms, 10) + "-" + strconv.FormatUint(id.Seq, 10)
}

// Less reports whether id sorts before o in a stream
func (id EntryID) Less(o EntryID) bool {
	if id.Ms != o.Ms {
		return id.Ms < o.Ms
	}
	return id.Seq < o.Seq
}

// Next returns the smallest ID greater than id, or id itself at the maximum
func (id EntryID) Next() EntryID {
	if id.Seq < math.MaxUint64 {
		id.Seq++
		return id
	}
	if id.Ms < math.MaxUint64 {
		id.Ms++
		id.Seq = 0
	}
	return id
}

// Field is one name/value pair of an entry, in the order the server sent it
type Field struct {
	Name  string
	Value string
}

// Entry is a single stream record
type Entry struct {
	ID     string
	Fields []Field
}

// Get returns the first value stored under name
func (e Entry) Get(name string) (string, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// String renders "<id> name=value name=value"
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.ID)
	for _, f := range e.Fields {
		b.WriteByte(' ')
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return b.String()
}

// Stream groups the entries XREAD returned for one key
type Stream struct {
	Key     string
	Entries []Entry
}
