package entities

import "time"

// GemSupply is the singleton supply ledger for the capped currency.
// Invariant: Emitted never exceeds Cap.
type GemSupply struct {
	Emitted   int64     `db:"emitted"`
	Burned    int64     `db:"burned"`
	Reserved  int64     `db:"reserved"`
	Cap       int64     `db:"cap"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Remaining returns how much can still be emitted under the cap
func (s *GemSupply) Remaining() int64 {
	return s.Cap - s.Emitted
}

// CanEmit checks whether emitting amount stays within the cap
func (s *GemSupply) CanEmit(amount int64) bool {
	return amount > 0 && s.Emitted+amount <= s.Cap
}

// Circulating returns the supply currently in user hands
func (s *GemSupply) Circulating() int64 {
	return s.Emitted - s.Burned
}
