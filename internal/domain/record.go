package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawRecord is one parsed but not yet validated JSONL line. Numbers are
// kept as json.Number so integer checks can distinguish 3 from 3.0.
type RawRecord map[string]any

// ParseRecord decodes one line into a RawRecord.
func ParseRecord(line string) (RawRecord, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	var rec RawRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// TicketID returns the record's ticket identifier, or "" when absent or
// not a string.
func (r RawRecord) TicketID() string {
	id, _ := r["ticket_id"].(string)
	return id
}

// DedupKey renders the ticket id for seen-set membership as its JSON
// literal, so distinct non-string ids stay distinct and a numeric 5
// never collides with the string "5".
func (r RawRecord) DedupKey() string {
	encoded, err := json.Marshal(r["ticket_id"])
	if err != nil {
		return ""
	}
	return string(encoded)
}

// Has reports whether the key exists in the record.
func (r RawRecord) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// IntField returns the named field as an integer when it is one.
func (r RawRecord) IntField(key string) (int, bool) {
	return IntValue(r[key])
}

// IntValue reports whether a decoded JSON value is an integer, mirroring
// the strictness of an isinstance-style check: 3 is an integer, 3.0 and
// "3" are not.
func IntValue(v any) (int, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	parsed, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return int(parsed), true
}
