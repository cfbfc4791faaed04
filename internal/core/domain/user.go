package domain

import "time"

// BirthdateLayout is the only accepted birthdate form on the wire.
const BirthdateLayout = "2006-01-02"

// Recognised gender values. Matching is exact and case-sensitive.
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// User models a registered account. The password is kept as a bcrypt hash;
// plaintext exists only on the wire and is discarded after hashing.
type User struct {
	Username     string
	Name         string
	Surname      string
	Birthdate    time.Time
	Gender       string
	Email        string
	Location     string
	PasswordHash string
	Admin        bool
}
