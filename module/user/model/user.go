package model

import "time"

// Account is the identity referenced by the chat core. The directory owning
// accounts is external; the core only reads id, display name and avatar.
type Account struct {
	ID           string    `bson:"_id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	ProfileImage string    `bson:"profile_image,omitempty" json:"profile_image,omitempty"`
	CreateTime   time.Time `bson:"create_time" json:"create_time"`
}
