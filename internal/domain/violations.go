package domain

// Violation codes are a stable contract shared by the validator, the
// rejection artifact, and the auto-repair policy. Never rename them.
const (
	CodeJSONParse            = "bad:json_parse"
	CodeDuplicateTicketID    = "bad:duplicate_ticket_id"
	CodeChannel              = "bad:channel"
	CodeSentiment            = "bad:sentiment"
	CodeTimestamp            = "bad:timestamp"
	CodeUpdatedBeforeCreated = "bad:updated_at<created_at"
	CodeCategoryPathMismatch = "bad:category_path_mismatch"
	CodeCategoryNotAllowed   = "bad:category_not_allowed"
	CodeTags                 = "bad:tags"
	CodeLabelsJSONType       = "bad:labels_json_type"
	CodePriorityRule         = "bad:priority_rule"
)

// MissingKey builds the code for an absent required key.
func MissingKey(key string) string {
	return "missing:" + key
}

// BadType builds the code for a non-integer numeric field.
func BadType(field string) string {
	return "bad:type:" + field
}

// BadRange builds the code for an out-of-range numeric field.
func BadRange(field string) string {
	return "bad:range:" + field
}

// LabelsJSONMissing builds the code for an absent labels_json subkey.
func LabelsJSONMissing(key string) string {
	return "bad:labels_json_missing:" + key
}
