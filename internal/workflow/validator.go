package workflow

// Validate decides whether an aggregate of the given kind may move from
// current to requested. A nil current means the aggregate has no status
// history yet, in which case only the kind's initial states are legal.
// On rejection the returned error is an *InvalidTransitionError carrying the
// allowed set. Validate must run before any side-effecting write.
func Validate(kind Kind, current *Status, requested Status) error {
	allowed := AllowedFrom(kind, current)
	for _, s := range allowed {
		if s == requested {
			return nil
		}
	}
	return &InvalidTransitionError{Kind: kind, From: current, Requested: requested, Allowed: allowed}
}
