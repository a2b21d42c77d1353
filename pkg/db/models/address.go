package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is one entry in a user's address book.
type Address struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	FullName  string    `gorm:"column:full_name;not null"`
	Email     string    `gorm:"column:email;not null"`
	Phone     string    `gorm:"column:phone;not null"`
	Country   string    `gorm:"column:country;not null"`
	State     string    `gorm:"column:state;not null"`
	City      string    `gorm:"column:city;not null"`
	Landmark  string    `gorm:"column:landmark"`
	Pincode   string    `gorm:"column:pincode;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
