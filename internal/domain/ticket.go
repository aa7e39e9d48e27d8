package domain

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Channel enumerates intake channels for generated tickets.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelPortal  Channel = "portal"
	ChannelChatbot Channel = "chatbot"
	ChannelPhone   Channel = "phone"
)

// Sentiment enumerates requester sentiment labels.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentMixed    Sentiment = "mixed"
)

// AllowedChannels is the closed channel vocabulary.
var AllowedChannels = map[string]struct{}{
	string(ChannelEmail):   {},
	string(ChannelPortal):  {},
	string(ChannelChatbot): {},
	string(ChannelPhone):   {},
}

// AllowedSentiments is the closed sentiment vocabulary.
var AllowedSentiments = map[string]struct{}{
	string(SentimentPositive): {},
	string(SentimentNeutral):  {},
	string(SentimentNegative): {},
	string(SentimentMixed):    {},
}

// RequiredKeys lists every key a ticket record must carry, in reporting order.
var RequiredKeys = []string{
	"ticket_id", "created_at", "updated_at", "channel", "model",
	"dialect", "title_ar", "description_ar",
	"category_level_1", "category_level_2", "category_level_3", "category_path",
	"tags", "labels_json",
	"impact", "urgency", "priority", "sentiment",
}

// KeyPreprocessed is the optional normalized-text column some parts carry.
const KeyPreprocessed = "preprocessed_ar"

// Ticket is the fully-typed record produced after validation. Field values
// are taken verbatim from the source line; only Tags and Priority may be
// rewritten by the pipeline (normalization and auto-repair).
type Ticket struct {
	TicketID       string
	CreatedAt      string
	UpdatedAt      string
	Channel        Channel
	Model          string
	Dialect        string
	TitleAr        string
	DescriptionAr  string
	PreprocessedAr *string
	CategoryLevel1 string
	CategoryLevel2 string
	CategoryLevel3 string
	CategoryPath   string
	Tags           []string
	LabelsJSON     map[string]any
	Impact         int
	Urgency        int
	Priority       int
	Sentiment      Sentiment

	// Extra holds source keys outside the canonical schema, preserved
	// as parsed (numbers stay json.Number).
	Extra map[string]any
}

// TicketFromRaw narrows a validated raw record into its typed form.
// The record must have passed validation; unchecked free-form fields are
// rendered via their JSON literal when they are not strings.
func TicketFromRaw(rec RawRecord) *Ticket {
	impact, _ := IntValue(rec["impact"])
	urgency, _ := IntValue(rec["urgency"])
	priority, _ := IntValue(rec["priority"])

	t := &Ticket{
		TicketID:       stringOf(rec["ticket_id"]),
		CreatedAt:      stringOf(rec["created_at"]),
		UpdatedAt:      stringOf(rec["updated_at"]),
		Channel:        Channel(stringOf(rec["channel"])),
		Model:          stringOf(rec["model"]),
		Dialect:        stringOf(rec["dialect"]),
		TitleAr:        stringOf(rec["title_ar"]),
		DescriptionAr:  stringOf(rec["description_ar"]),
		CategoryLevel1: stringOf(rec["category_level_1"]),
		CategoryLevel2: stringOf(rec["category_level_2"]),
		CategoryLevel3: stringOf(rec["category_level_3"]),
		CategoryPath:   stringOf(rec["category_path"]),
		Impact:         impact,
		Urgency:        urgency,
		Priority:       priority,
		Sentiment:      Sentiment(stringOf(rec["sentiment"])),
	}

	if raw, ok := rec["tags"].([]any); ok {
		tags := make([]string, 0, len(raw))
		for _, v := range raw {
			s, _ := v.(string)
			tags = append(tags, s)
		}
		t.Tags = tags
	}
	if lj, ok := rec["labels_json"].(map[string]any); ok {
		t.LabelsJSON = lj
	}
	if pre, ok := rec[KeyPreprocessed].(string); ok {
		t.PreprocessedAr = &pre
	}

	known := make(map[string]struct{}, len(RequiredKeys)+1)
	for _, k := range RequiredKeys {
		known[k] = struct{}{}
	}
	known[KeyPreprocessed] = struct{}{}
	for k, v := range rec {
		if _, ok := known[k]; ok {
			continue
		}
		if t.Extra == nil {
			t.Extra = map[string]any{}
		}
		t.Extra[k] = v
	}

	return t
}

// NormalizeTags trims each tag and drops empty entries, preserving order.
func (t *Ticket) NormalizeTags() {
	normalized := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	t.Tags = normalized
}

// MarshalJSON emits keys in the canonical column order, then extra keys
// sorted, so reruns over unchanged input produce identical bytes.
func (t *Ticket) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(key)
		buf.WriteString(`":`)
		encoded, err := EncodeJSON(value)
		if err != nil {
			return err
		}
		buf.Write(encoded)
		return nil
	}

	fields := []struct {
		key   string
		value any
	}{
		{"ticket_id", t.TicketID},
		{"created_at", t.CreatedAt},
		{"updated_at", t.UpdatedAt},
		{"channel", t.Channel},
		{"model", t.Model},
		{"dialect", t.Dialect},
		{"title_ar", t.TitleAr},
		{"description_ar", t.DescriptionAr},
	}
	if t.PreprocessedAr != nil {
		fields = append(fields, struct {
			key   string
			value any
		}{KeyPreprocessed, *t.PreprocessedAr})
	}
	fields = append(fields, []struct {
		key   string
		value any
	}{
		{"category_level_1", t.CategoryLevel1},
		{"category_level_2", t.CategoryLevel2},
		{"category_level_3", t.CategoryLevel3},
		{"category_path", t.CategoryPath},
		{"tags", t.Tags},
		{"labels_json", t.LabelsJSON},
		{"impact", t.Impact},
		{"urgency", t.Urgency},
		{"priority", t.Priority},
		{"sentiment", t.Sentiment},
	}...)

	for _, f := range fields {
		if err := writeField(f.key, f.value); err != nil {
			return nil, err
		}
	}

	extraKeys := make([]string, 0, len(t.Extra))
	for k := range t.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		if err := writeField(k, t.Extra[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeJSON marshals without HTML escaping, keeping Arabic and symbol
// characters verbatim in the artifacts.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func stringOf(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
