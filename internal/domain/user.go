package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           int       `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	Pincode      string    `json:"pincode"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserWithParking is the admin listing row: a user plus what they currently occupy.
type UserWithParking struct {
	User
	CurrentSpots []CurrentSpot `json:"current_spots"`
}

type CurrentSpot struct {
	SpotID       int    `json:"spot_id"`
	SpotNumber   int    `json:"spot_number"`
	LotName      string `json:"lot_name"`
	LicensePlate string `json:"license_plate"`
}

type RegisterUserDTO struct {
	FullName string `json:"full_name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=100"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Pincode  string `json:"pincode"`
}

type LoginUserDTO struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponseDTO struct {
	Token string `json:"access_token"`
	User  User   `json:"user"`
}

// UpdateProfileDTO is a partial update; nil fields are left unchanged.
type UpdateProfileDTO struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Pincode  *string `json:"pincode"`
}

type AdminUpdateUserDTO struct {
	UpdateProfileDTO
	Role *Role `json:"role"`
}

func (d UpdateProfileDTO) Apply(u *User) bool {
	changed := false
	if d.FullName != nil {
		u.FullName = *d.FullName
		changed = true
	}
	if d.Phone != nil {
		u.Phone = *d.Phone
		changed = true
	}
	if d.Address != nil {
		u.Address = *d.Address
		changed = true
	}
	if d.Pincode != nil {
		u.Pincode = *d.Pincode
		changed = true
	}
	return changed
}
