package validate

import (
	"time"

	"github.com/bazokhan/arabic-itsm-dataset/internal/domain"
	"github.com/bazokhan/arabic-itsm-dataset/internal/taxonomy"
)

// parseTimestamp accepts RFC 3339 with offset plus the offset-less ISO
// form, reporting which one matched: comparing an offset-aware stamp
// against an offset-less one is not meaningful, so the pair check needs
// to know. Fractional seconds are accepted by time.Parse either way.
func parseTimestamp(v any) (ts time.Time, aware, ok bool) {
	s, isString := v.(string)
	if !isString {
		return time.Time{}, false, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, false, true
	}
	return time.Time{}, false, false
}

// Record checks one raw record against the full rule set and returns the
// ordered violation codes; empty means the record is admissible.
//
// Missing required keys short-circuit: a partial record is not further
// inspectable. Every other check accumulates so the rejection artifact
// carries the complete picture.
func Record(rec domain.RawRecord, idx *taxonomy.Index) []string {
	var errs []string

	for _, key := range domain.RequiredKeys {
		if !rec.Has(key) {
			errs = append(errs, domain.MissingKey(key))
		}
	}
	if len(errs) > 0 {
		return errs
	}

	if s, ok := rec["channel"].(string); !ok || !isAllowed(domain.AllowedChannels, s) {
		errs = append(errs, domain.CodeChannel)
	}

	if s, ok := rec["sentiment"].(string); !ok || !isAllowed(domain.AllowedSentiments, s) {
		errs = append(errs, domain.CodeSentiment)
	}

	// Range checks only run when the field really is an integer; a
	// non-integer gets the type code alone.
	for _, key := range []string{"impact", "urgency", "priority"} {
		n, ok := rec.IntField(key)
		if !ok {
			errs = append(errs, domain.BadType(key))
			continue
		}
		if n < 1 || n > 5 {
			errs = append(errs, domain.BadRange(key))
		}
	}

	created, createdAware, createdOK := parseTimestamp(rec["created_at"])
	updated, updatedAware, updatedOK := parseTimestamp(rec["updated_at"])
	if !createdOK || !updatedOK || createdAware != updatedAware {
		errs = append(errs, domain.CodeTimestamp)
	} else if updated.Before(created) {
		errs = append(errs, domain.CodeUpdatedBeforeCreated)
	}

	l1, _ := rec["category_level_1"].(string)
	l2, _ := rec["category_level_2"].(string)
	l3, _ := rec["category_level_3"].(string)
	path, _ := rec["category_path"].(string)
	if path != taxonomy.PathOf(l1, l2, l3) {
		errs = append(errs, domain.CodeCategoryPathMismatch)
	}
	if !idx.Allows(path) {
		errs = append(errs, domain.CodeCategoryNotAllowed)
	}

	if !validTags(rec["tags"]) {
		errs = append(errs, domain.CodeTags)
	}

	if lj, ok := rec["labels_json"].(map[string]any); !ok {
		errs = append(errs, domain.CodeLabelsJSONType)
	} else {
		for _, key := range []string{"l1", "l2", "l3", "tags"} {
			if _, present := lj[key]; !present {
				errs = append(errs, domain.LabelsJSONMissing(key))
			}
		}
	}

	impact, impactOK := rec.IntField("impact")
	urgency, urgencyOK := rec.IntField("urgency")
	priority, priorityOK := rec.IntField("priority")
	if impactOK && urgencyOK && priorityOK {
		if priority != ComputePriority(impact, urgency) {
			errs = append(errs, domain.CodePriorityRule)
		}
	}

	return errs
}

func isAllowed(set map[string]struct{}, value string) bool {
	_, ok := set[value]
	return ok
}

func validTags(v any) bool {
	tags, ok := v.([]any)
	if !ok {
		return false
	}
	for _, tag := range tags {
		if _, ok := tag.(string); !ok {
			return false
		}
	}
	return true
}
