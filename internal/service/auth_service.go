package service

import (
	"context"
	"fmt"
	"strings"

	"managerclass/internal/logger"
	"managerclass/internal/models"
	"managerclass/internal/repository"
	"managerclass/internal/security"
	"managerclass/internal/validation"
)

// StartRequest is the registration form of a learner
type StartRequest struct {
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Email             string `json:"email,omitempty"`
	Region            string `json:"region"`
	ApplicationReason string `json:"applicationReason"`
}

// StartResult is returned to a learner entering the course
type StartResult struct {
	Session models.Session `json:"session"`
	User    *models.User   `json:"user"`
	Resumed bool           `json:"resumed"`
}

// AuthService handles learner registration and session bootstrap
type AuthService struct {
	users repository.UserStore
	log   *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users repository.UserStore, log *logger.Logger) *AuthService {
	return &AuthService{users: users, log: log}
}

// Start finds the learner by phone number or creates one, then issues a
// fresh session token. Completed and blocked users are turned away.
func (s *AuthService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	if err := validation.ValidateName(req.Name); err != nil {
		return nil, err
	}
	phone, err := validation.ValidatePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Region) == "" {
		return nil, validation.NewError("region", "region is required")
	}
	if strings.TrimSpace(req.ApplicationReason) == "" {
		return nil, validation.NewError("applicationReason", "application reason is required")
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return nil, err
	}

	token, err := security.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	user, err := s.users.FindUserByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	resumed := user != nil
	if user != nil {
		switch {
		case user.IsCompleted():
			return nil, ErrAlreadyCompleted
		case user.IsBlocked():
			return nil, ErrUserBlocked
		}
		if err := s.users.UpdateSessionToken(ctx, user.ID, token); err != nil {
			return nil, fmt.Errorf("failed to update session token: %w", err)
		}
		user.SessionToken = token
		s.log.Info("learner resumed", "user_id", user.ID)
	} else {
		user = &models.User{
			Name:              strings.TrimSpace(req.Name),
			Phone:             phone,
			Email:             strings.TrimSpace(req.Email),
			Region:            strings.TrimSpace(req.Region),
			ApplicationReason: strings.TrimSpace(req.ApplicationReason),
			Status:            models.UserStatusInProgress,
			SessionToken:      token,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.log.Info("learner registered", "user_id", user.ID, "region", user.Region)
	}

	return &StartResult{
		Session: models.Session{
			UserID:       user.ID,
			UserName:     user.Name,
			UserPhone:    user.Phone,
			SessionToken: token,
		},
		User:    user,
		Resumed: resumed,
	}, nil
}
