package validate

// ComputePriority derives priority from impact and urgency: the mean of
// the two, rounded half up, clamped to [1,5]. The +1 trick gives
// round-half-up under truncating integer division; language-default
// rounding must not be used here because ties would round half to even.
// Single source of truth for the consistency check and for auto-repair.
func ComputePriority(impact, urgency int) int {
	p := (impact + urgency + 1) / 2
	if p < 1 {
		return 1
	}
	if p > 5 {
		return 5
	}
	return p
}
