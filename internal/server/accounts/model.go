package accounts

import "time"

// Account is one login identity in the realm auth database. Username is
// stored uppercased; Salt and Verifier are the only persisted artifacts tied
// to the password.
type Account struct {
	ID       int64
	Username string
	Salt     []byte
	Verifier []byte
	Email    string
	Points   int64
	GMLevel  int
	JoinDate time.Time
}

// IsGM reports whether the account has any GM access level.
func (a *Account) IsGM() bool {
	return a.GMLevel > 0
}
