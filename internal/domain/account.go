package domain

import "time"

// Account is a custodial wallet account. Balance is never stored on the
// account row: it is always derived from the completed transactions that
// reference it.
type Account struct {
	ID                  string
	PublicAddress       string
	PrivateKeyEncrypted string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
