package model

import "github.com/jnst/fb-app-events/internal/hashing"

// UserData carries the customer information used for matching. Email, name, phone,
// gender, date of birth, city, state, zip and country must already be hashed; see
// package hashing. UserData never hashes on its own.
type UserData struct {
	Email                *string
	FirstName            *string
	LastName             *string
	Phone                *string
	Gender               *string
	DateOfBirth          *string
	City                 *string
	State                *string
	ZipCode              *string
	Country              *string
	ExternalID           *string
	ClientIPAddress      *string
	ClientUserAgent      *string
	FacebookClickID      *string
	FacebookBrowserID    *string
	SubscriptionID       *string
	FacebookLoginID      *string
	LeadID               *string
	AdvertiserID         *string
	AndroidAdvertisingID *string
}

// ApplyHashed copies every present value of h onto u.
func (u *UserData) ApplyHashed(h hashing.Hashed) {
	set := func(dst **string, v *string) {
		if v != nil {
			*dst = v
		}
	}

	set(&u.Email, h.Email)
	set(&u.FirstName, h.FirstName)
	set(&u.LastName, h.LastName)
	set(&u.Phone, h.Phone)
	set(&u.Gender, h.Gender)
	set(&u.DateOfBirth, h.DateOfBirth)
	set(&u.City, h.City)
	set(&u.State, h.State)
	set(&u.ZipCode, h.Zip)
	set(&u.Country, h.Country)
	set(&u.ExternalID, h.ExternalID)
}
