package registry

// Record tracks the onboarding status of a single asset collection. A
// collection must be registered before it can be verified, and only verified
// collections may be listed on the marketplace.
type Record struct {
	Collection [20]byte `json:"collection"`
	Registered bool     `json:"registered"`
	Verified   bool     `json:"verified"`
	AddedAt    int64    `json:"addedAt"`
	VerifiedAt int64    `json:"verifiedAt,omitempty"`
}

// Clone returns a copy of the record so callers can mutate it safely.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}
