package models

import "time"

// UserType distinguishes farmers from buyers
type UserType string

const (
	UserTypeFarmer UserType = "farmer"
	UserTypeBuyer  UserType = "buyer"
)

// User represents a registered user
type User struct {
	ID              string    `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	Phone           string    `json:"phone" db:"phone"`
	FirstName       string    `json:"firstName" db:"first_name"`
	LastName        string    `json:"lastName" db:"last_name"`
	PasswordHash    string    `json:"-" db:"password_hash"`
	UserType        UserType  `json:"userType" db:"user_type"`
	LocationPinCode string    `json:"locationPinCode" db:"location_pin_code"`
	IsActive        bool      `json:"isActive" db:"is_active"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// FullName returns the user's display name
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsFarmer checks whether the user sells produce
func (u *User) IsFarmer() bool {
	return u.UserType == UserTypeFarmer
}

// IsBuyer checks whether the user purchases produce
func (u *User) IsBuyer() bool {
	return u.UserType == UserTypeBuyer
}

// FarmerProfile holds farmer-specific profile data
type FarmerProfile struct {
	UserID        string   `json:"userId" db:"user_id"`
	FarmSizeAcres *float64 `json:"farmSizeAcres,omitempty" db:"farm_size_acres"`
	PrimaryCrops  string   `json:"primaryCrops" db:"primary_crops"`
}

// BuyerProfile holds buyer-specific profile data
type BuyerProfile struct {
	UserID       string `json:"userId" db:"user_id"`
	BusinessName string `json:"businessName" db:"business_name"`
	BusinessType string `json:"businessType" db:"business_type"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email           string   `json:"email" binding:"required,email"`
	Phone           string   `json:"phone" binding:"required"`
	FirstName       string   `json:"firstName" binding:"required"`
	LastName        string   `json:"lastName" binding:"required"`
	Password        string   `json:"password" binding:"required,min=8"`
	UserType        UserType `json:"userType" binding:"required,oneof=farmer buyer"`
	LocationPinCode string   `json:"locationPinCode" binding:"required"`
	FarmSizeAcres   *float64 `json:"farmSizeAcres,omitempty"`
	PrimaryCrops    string   `json:"primaryCrops,omitempty"`
	BusinessName    string   `json:"businessName,omitempty"`
	BusinessType    string   `json:"businessType,omitempty"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	FirstName       *string  `json:"firstName,omitempty"`
	LastName        *string  `json:"lastName,omitempty"`
	Phone           *string  `json:"phone,omitempty"`
	LocationPinCode *string  `json:"locationPinCode,omitempty"`
	FarmSizeAcres   *float64 `json:"farmSizeAcres,omitempty"`
	PrimaryCrops    *string  `json:"primaryCrops,omitempty"`
	BusinessName    *string  `json:"businessName,omitempty"`
	BusinessType    *string  `json:"businessType,omitempty"`
}
