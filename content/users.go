package content

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"privateblog/models"
)

// ErrUsernameTaken is returned by CreateUser for a duplicate username.
var ErrUsernameTaken = errors.New("username already taken")

type UserInput struct {
	Username     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
}

// CreateUser registers a member. Usernames are unique ignoring case.
func (s *Store) CreateUser(in UserInput) (*models.User, error) {
	var n int64
	if err := s.db.Model(&models.User{}).Where("LOWER(username) = ?", strings.ToLower(in.Username)).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if n > 0 {
		return nil, ErrUsernameTaken
	}

	user := &models.User{
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// UserByUsername looks a user up by exact username.
func (s *Store) UserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound("user", err)
	}
	return &user, nil
}

// UpdateProfile changes the personal details of a user, never the
// username, password or staff flag.
func (s *Store) UpdateProfile(id uint, firstName, lastName, email string) (*models.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	user.FirstName = firstName
	user.LastName = lastName
	user.Email = email
	if err := s.db.Model(user).Select("first_name", "last_name", "email").Updates(user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// GetUser loads one user or returns ErrNotFound.
func (s *Store) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, notFound("user", err)
	}
	return &user, nil
}

// DeleteUser removes the user with their comments, likes and messages.
func (s *Store) DeleteUser(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return notFound("user", err)
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := tx.Where("liker_id = ?", id).Delete(&models.Favourite{}).Error; err != nil {
			return fmt.Errorf("failed to delete favourites: %w", err)
		}
		if err := tx.Where("interlocutor_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}
