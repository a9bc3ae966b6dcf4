package model

import "time"

// Account represents a registered account in one of the role partitions
// (`users` or `captains`).  Both roles share this shape; the fields that only
// make sense for one role are left empty for the other.
//
// The password hash and the refresh token digest are tagged json:"-" so an
// Account can be written to a response body without leaking either.  Stores
// still persist them through the bson tags.
//
// Fields:
//
//	ID           – uuid assigned on registration, never changed afterwards.
//	Role         – User or Captain, derived from the partition.
//	FullName     – first/last name, each at least three characters.
//	Email        – lower-cased address, unique per partition.
//	Username     – User only, unique in the users partition.
//	Vehicle      – Captain only.
//	Status       – Captain only, active or inactive.
//	PasswordHash – bcrypt hash of the password.
//	RefreshToken – SHA-256 digest of the latest refresh token (nil after logout).
type Account struct {
	ID           string    `json:"_id" bson:"_id"`
	Role         Role      `json:"role" bson:"role"`
	FullName     FullName  `json:"fullname" bson:"fullname"`
	Email        string    `json:"email" bson:"email"`
	Username     string    `json:"username,omitempty" bson:"username,omitempty"`
	Vehicle      *Vehicle  `json:"vehicle,omitempty" bson:"vehicle,omitempty"`
	Status       Status    `json:"status,omitempty" bson:"status,omitempty"`
	SocketID     *string   `json:"socketId" bson:"socketId"`
	PasswordHash string    `json:"-" bson:"password,omitempty"`
	RefreshToken *string   `json:"-" bson:"refreshToken,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// FullName groups the first and last name the way clients send them.
type FullName struct {
	FirstName string `json:"firstname" bson:"firstname"`
	LastName  string `json:"lastname" bson:"lastname"`
}

// Vehicle describes the car a captain drives.
type Vehicle struct {
	Color       string      `json:"color" bson:"color"`
	Plate       string      `json:"plate" bson:"plate"`
	Capacity    int         `json:"capacity" bson:"capacity"`
	VehicleType VehicleType `json:"vehicleType" bson:"vehicleType"`
}

// VehicleType is one of car, moto or auto.
type VehicleType string

const (
	VehicleCar  VehicleType = "car"
	VehicleMoto VehicleType = "moto"
	VehicleAuto VehicleType = "auto"
)

// Valid reports whether t is a known vehicle type.
func (t VehicleType) Valid() bool {
	switch t {
	case VehicleCar, VehicleMoto, VehicleAuto:
		return true
	}
	return false
}

// Status is the availability of a captain.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Sanitized returns a copy of the account without the password hash and the
// refresh token digest.  The vehicle is copied so callers can mutate the
// result freely.
func (a *Account) Sanitized() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.PasswordHash = ""
	out.RefreshToken = nil
	if a.Vehicle != nil {
		v := *a.Vehicle
		out.Vehicle = &v
	}
	return &out
}
