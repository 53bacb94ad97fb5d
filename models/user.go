package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role names the actor kinds in the supply chain. Farmers record harvests,
// processors receive batches, labs run quality tests, admins and regulators
// administer rules and sync.
type Role string

const (
	RoleFarmer       Role = "Farmer"
	RoleLab          Role = "Lab"
	RoleProcessor    Role = "Processor"
	RoleManufacturer Role = "Manufacturer"
	RoleAdmin        Role = "Admin"
	RoleRegulator    Role = "Regulator"
)

// User — one registered actor. Username is the stable public handle referenced
// by batches and alerts; the Mongo _id stays internal.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username"      json:"username"`
	Email        string             `bson:"email"         json:"email"`
	PasswordHash string             `bson:"passwordHash"  json:"-"`
	FullName     string             `bson:"fullName"      json:"fullName"`
	Role         Role               `bson:"role"          json:"role"`
	CreatedAt    time.Time          `bson:"createdAt"     json:"createdAt"`

	// Farmer location, used to derive the validation region.
	LocationDistrict string `bson:"locationDistrict,omitempty" json:"locationDistrict,omitempty"`
	LocationState    string `bson:"locationState,omitempty"    json:"locationState,omitempty"`
}

// Region returns the "<district>, <state>" zone name used to resolve season
// windows, or "Unknown" when the user never provided a location.
func (u *User) Region() string {
	if u.LocationDistrict == "" || u.LocationState == "" {
		return "Unknown"
	}
	return u.LocationDistrict + ", " + u.LocationState
}
