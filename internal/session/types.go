package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrNoRecord = errors.New("no session record")
)

// DefaultBuyIn is the buy-in the unjoined flow starts from.
const DefaultBuyIn = 1000

// TTL is how long a persisted record stays valid.
const TTL = 24 * time.Hour

// provisionalPrefix marks locally generated, non-authoritative ids.
const provisionalPrefix = "tmp-"

// Record is the persisted session state, one per client profile.
type Record struct {
	PlayerName string    `json:"playerName"`
	BuyIn      int       `json:"buyIn"`
	Joined     bool      `json:"joined"`
	PlayerID   string    `json:"pid"`
	HasLeft    bool      `json:"hasLeft"`
	SavedAt    time.Time `json:"timestamp"`
}

// Fresh reports whether the record is recent enough to restore.
func (r Record) Fresh(now time.Time) bool {
	return !r.SavedAt.IsZero() && now.Sub(r.SavedAt) < TTL
}

// defaultRecord is the unjoined baseline.
func defaultRecord() Record {
	return Record{BuyIn: DefaultBuyIn}
}

// NewProvisionalID generates a local player id used before the server
// confirms membership.
func NewProvisionalID() string {
	return provisionalPrefix + uuid.NewString()
}

// IsProvisionalID reports whether pid was generated locally.
func IsProvisionalID(pid string) bool {
	return strings.HasPrefix(pid, provisionalPrefix)
}

// Store is durable storage for the session record.
type Store interface {
	// Save writes the record, replacing any previous one.
	Save(ctx context.Context, rec Record) error

	// Load returns the stored record or ErrNoRecord.
	Load(ctx context.Context) (Record, error)

	// Clear removes the record. Clearing an absent record is not an error.
	Clear(ctx context.Context) error
}
