package hashing

import "time"

// Identity holds plain-text customer data before hashing.
type Identity struct {
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	Gender      string
	DateOfBirth time.Time
	City        string
	State       string
	Zip         string
	Country     string
	ExternalID  string
}

// Hashed is the hashed form of an Identity. A nil field had no usable input.
type Hashed struct {
	Email       *string
	FirstName   *string
	LastName    *string
	Phone       *string
	Gender      *string
	DateOfBirth *string
	City        *string
	State       *string
	Zip         *string
	Country     *string
	ExternalID  *string
}

// Hash applies the field specific normalization to every identity field.
func (id *Identity) Hash() Hashed {
	return Hashed{
		Email:       Email(id.Email),
		FirstName:   SHA256(id.FirstName),
		LastName:    SHA256(id.LastName),
		Phone:       Phone(id.Phone),
		Gender:      Gender(id.Gender),
		DateOfBirth: DateOfBirth(id.DateOfBirth),
		City:        City(id.City),
		State:       State(id.State),
		Zip:         Zip(id.Zip),
		Country:     Country(id.Country),
		ExternalID:  SHA256(id.ExternalID),
	}
}
