package storage

import "time"

// Key is the identity of an airdrop row. It never changes after insert.
type Key struct {
	Token string
	Date  string
	Phase int
}

// Airdrop is one stored distribution round
type Airdrop struct {
	ID              int64
	Token           string
	Name            string
	Date            string
	Time            string
	Amount          string
	Points          string
	Phase           int
	Type            string
	Status          string
	ContractAddress string
	ChainID         string

	// Derived every pass from the price feed
	Price      *float64
	TotalValue *float64

	FirstSeen        time.Time
	LastUpdated      time.Time
	NotifiedNew      bool
	NotifiedReminder bool
}

// Key returns the identity tuple of the row
func (a *Airdrop) Key() Key {
	return Key{Token: a.Token, Date: a.Date, Phase: a.Phase}
}

// StatusChange is an append-only audit record of a notified transition
type StatusChange struct {
	ID         int64
	AirdropID  int64 // 0 once the referenced airdrop is deleted
	ChangeType string
	OldValue   string
	NewValue   string
	ChangeTime time.Time
	Notified   bool
}
