package account

import (
	"time"

	"github.com/google/uuid"
)

// HouseExternalID identifies the system account that collects trading fees.
// It is excluded from the leaderboard and never owned by a player.
const HouseExternalID = "system:house"

// Account maps an external identity to an internal account. Accounts are
// created once per external identity and never deleted.
type Account struct {
	ID             uuid.UUID
	ExternalID     string
	DisplayName    string
	LastBonusClaim *time.Time
	CreatedAt      time.Time
}

// IsHouse reports whether the account is the fee-collecting system account.
func (a Account) IsHouse() bool {
	return a.ExternalID == HouseExternalID
}
