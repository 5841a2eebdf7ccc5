package model

import "time"

type User struct {
	TelegramID       int64
	Username         string
	FirstName        string
	LastName         string
	PhotoURL         string
	Balance          int
	ReferralCode     string
	ReferredBy       *int64
	ReferralCount    int
	ReferralEarned   int
	IsFirstLogin     bool
	IsAdmin          bool
	RegistrationDate time.Time
	AuthDate         time.Time
}

// DisplayName is what the bot and referrer notifications show for a user.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.FirstName
}

type UserReferral struct {
	TelegramID    int64
	Username      string
	Balance       int
	ReferralCount int
}
