package domain

import "fmt"

// RejectionRecord captures one rejected input line. It carries either the
// raw unparsed text (JSON parse failures) or the parsed object, never both.
type RejectionRecord struct {
	Source string    `json:"source"`
	Line   int       `json:"line"`
	Reason []string  `json:"reason"`
	Raw    string    `json:"raw,omitempty"`
	Ticket RawRecord `json:"ticket,omitempty"`
}

// NewParseRejection records a line that failed to parse as JSON.
func NewParseRejection(source string, line int, raw string) *RejectionRecord {
	return &RejectionRecord{
		Source: source,
		Line:   line,
		Reason: []string{CodeJSONParse},
		Raw:    raw,
	}
}

// NewRecordRejection records a parsed but invalid record.
func NewRecordRejection(source string, line int, reason []string, rec RawRecord) *RejectionRecord {
	return &RejectionRecord{
		Source: source,
		Line:   line,
		Reason: reason,
		Ticket: rec,
	}
}

// RowID identifies the rejected row for operator output: the ticket id
// when one is present, otherwise file:line.
func (r *RejectionRecord) RowID() string {
	if r.Ticket != nil {
		if id := r.Ticket.TicketID(); id != "" {
			return id
		}
	}
	return fmt.Sprintf("%s:%d", r.Source, r.Line)
}
