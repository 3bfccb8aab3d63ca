package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/DheeruBhaiAmbani/kisan-ai/internal/models"
)

// UserService handles user-related business logic
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new user service
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// CreateUser registers a new user together with its type-specific profile
func (s *UserService) CreateUser(req *models.RegisterRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	exists, err := s.userExists(req.Email, req.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists {
		return nil, models.NewValidationError("user with this email or phone already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:              uuid.New().String(),
		Email:           req.Email,
		Phone:           req.Phone,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		PasswordHash:    string(hashedPassword),
		UserType:        req.UserType,
		LocationPinCode: req.LocationPinCode,
		IsActive:        true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO users (id, email, phone, first_name, last_name, password_hash,
			user_type, location_pin_code, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Phone, user.FirstName, user.LastName,
		user.PasswordHash, user.UserType, user.LocationPinCode, user.IsActive,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	switch user.UserType {
	case models.UserTypeFarmer:
		_, err = tx.Exec(`
			INSERT INTO farmer_profiles (user_id, farm_size_acres, primary_crops)
			VALUES (?, ?, ?)`,
			user.ID, req.FarmSizeAcres, req.PrimaryCrops)
	case models.UserTypeBuyer:
		_, err = tx.Exec(`
			INSERT INTO buyer_profiles (user_id, business_name, business_type)
			VALUES (?, ?, ?)`,
			user.ID, req.BusinessName, req.BusinessType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// AuthenticateUser verifies credentials and returns the user
func (s *UserService) AuthenticateUser(req *models.LoginRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.getUserByEmail(email)
	if err != nil {
		return nil, models.NewUnauthorizedError("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.NewUnauthorizedError("invalid credentials")
	}

	if !user.IsActive {
		return nil, models.NewUnauthorizedError("account is not active")
	}

	return user, nil
}

const userSelectColumns = `id, email, phone, first_name, last_name, password_hash,
	user_type, location_pin_code, is_active, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.Phone, &user.FirstName,
		&user.LastName, &user.PasswordHash, &user.UserType,
		&user.LocationPinCode, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.NewValidationError("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(userID string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT `+userSelectColumns+` FROM users WHERE id = ?`, userID)
	return scanUser(row)
}

func (s *UserService) getUserByEmail(email string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT `+userSelectColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetFarmerProfile retrieves a farmer's profile, nil if none exists
func (s *UserService) GetFarmerProfile(userID string) (*models.FarmerProfile, error) {
	profile := &models.FarmerProfile{}
	err := s.db.QueryRow(`
		SELECT user_id, farm_size_acres, primary_crops
		FROM farmer_profiles WHERE user_id = ?`, userID).
		Scan(&profile.UserID, &profile.FarmSizeAcres, &profile.PrimaryCrops)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get farmer profile: %w", err)
	}
	return profile, nil
}

// GetBuyerProfile retrieves a buyer's profile, nil if none exists
func (s *UserService) GetBuyerProfile(userID string) (*models.BuyerProfile, error) {
	profile := &models.BuyerProfile{}
	err := s.db.QueryRow(`
		SELECT user_id, business_name, business_type
		FROM buyer_profiles WHERE user_id = ?`, userID).
		Scan(&profile.UserID, &profile.BusinessName, &profile.BusinessType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get buyer profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile applies partial updates to a user and their profile
func (s *UserService) UpdateProfile(userID string, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.LocationPinCode != nil {
		user.LocationPinCode = *req.LocationPinCode
	}
	user.UpdatedAt = time.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE users SET first_name = ?, last_name = ?, phone = ?,
			location_pin_code = ?, updated_at = ?
		WHERE id = ?`,
		user.FirstName, user.LastName, user.Phone, user.LocationPinCode,
		user.UpdatedAt, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if user.IsFarmer() && (req.FarmSizeAcres != nil || req.PrimaryCrops != nil) {
		if err := s.updateFarmerProfile(tx, userID, req); err != nil {
			return nil, err
		}
	}
	if user.IsBuyer() && (req.BusinessName != nil || req.BusinessType != nil) {
		if err := s.updateBuyerProfile(tx, userID, req); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

func (s *UserService) updateFarmerProfile(tx *sql.Tx, userID string, req *models.UpdateProfileRequest) error {
	profile := &models.FarmerProfile{UserID: userID}
	err := tx.QueryRow(`
		SELECT user_id, farm_size_acres, primary_crops
		FROM farmer_profiles WHERE user_id = ?`, userID).
		Scan(&profile.UserID, &profile.FarmSizeAcres, &profile.PrimaryCrops)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to get farmer profile: %w", err)
	}

	if req.FarmSizeAcres != nil {
		profile.FarmSizeAcres = req.FarmSizeAcres
	}
	if req.PrimaryCrops != nil {
		profile.PrimaryCrops = *req.PrimaryCrops
	}

	_, err = tx.Exec(`
		INSERT INTO farmer_profiles (user_id, farm_size_acres, primary_crops)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			farm_size_acres = excluded.farm_size_acres,
			primary_crops = excluded.primary_crops`,
		userID, profile.FarmSizeAcres, profile.PrimaryCrops)
	if err != nil {
		return fmt.Errorf("failed to update farmer profile: %w", err)
	}
	return nil
}

func (s *UserService) updateBuyerProfile(tx *sql.Tx, userID string, req *models.UpdateProfileRequest) error {
	profile := &models.BuyerProfile{UserID: userID}
	err := tx.QueryRow(`
		SELECT user_id, business_name, business_type
		FROM buyer_profiles WHERE user_id = ?`, userID).
		Scan(&profile.UserID, &profile.BusinessName, &profile.BusinessType)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to get buyer profile: %w", err)
	}

	if req.BusinessName != nil {
		profile.BusinessName = *req.BusinessName
	}
	if req.BusinessType != nil {
		profile.BusinessType = *req.BusinessType
	}

	_, err = tx.Exec(`
		INSERT INTO buyer_profiles (user_id, business_name, business_type)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			business_name = excluded.business_name,
			business_type = excluded.business_type`,
		userID, profile.BusinessName, profile.BusinessType)
	if err != nil {
		return fmt.Errorf("failed to update buyer profile: %w", err)
	}
	return nil
}

func (s *UserService) userExists(email, phone string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE email = ? OR phone = ?`, email, phone).
		Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
