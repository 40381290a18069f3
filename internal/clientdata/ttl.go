package clientdata

import "time"

// TTL constants for cached data.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// A period key only ever describes completed months, so its series never
	// changes; the TTL just bounds how long superseded periods are kept.
	TTLMonthlyReturns = 45 * 24 * time.Hour
)
