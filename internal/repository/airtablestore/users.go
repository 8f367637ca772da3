package airtablestore

import (
	"context"
	"sort"
	"time"

	"github.com/mehanizm/airtable"

	"managerclass/internal/models"
	"managerclass/internal/repository"
)

type userStore struct{ c *Client }

func toUser(rec *airtable.Record) *models.User {
	f := rec.Fields
	return &models.User{
		ID:                rec.ID,
		Name:              str(f, "Name"),
		Phone:             str(f, "Phone"),
		Email:             str(f, "Email"),
		Region:            str(f, "Region"),
		ApplicationReason: str(f, "Application_Reason"),
		Status:            str(f, "Status"),
		SessionToken:      str(f, "Session_Token"),
		TotalStudyTime:    integer(f, "Total_Study_Time"),
		CreatedAt:         createdTime(rec, f, "Created_At"),
		CompletedAt:       timestamp(f, "Completed_At"),
	}
}

func (s *userStore) FindUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	rec, err := s.c.first(ctx, TableUsers, eq("Phone", phone))
	if err != nil || rec == nil {
		return nil, err
	}
	return toUser(rec), nil
}

func (s *userStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	rec, err := s.c.byID(ctx, TableUsers, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return toUser(rec), nil
}

func (s *userStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Status == "" {
		user.Status = models.UserStatusInProgress
	}

	fields := map[string]interface{}{
		"Name":               user.Name,
		"Phone":              user.Phone,
		"Email":              user.Email,
		"Region":             user.Region,
		"Application_Reason": user.ApplicationReason,
		"Status":             user.Status,
		"Session_Token":      user.SessionToken,
		"Total_Study_Time":   user.TotalStudyTime,
		"Created_At":         formatTime(user.CreatedAt),
	}
	if user.CompletedAt != nil {
		fields["Completed_At"] = formatTime(*user.CompletedAt)
	}

	rec, err := s.c.create(ctx, TableUsers, fields)
	if err != nil {
		return err
	}
	user.ID = rec.ID
	return nil
}

func (s *userStore) UpdateSessionToken(ctx context.Context, id, token string) error {
	return s.c.update(ctx, TableUsers, id, map[string]interface{}{"Session_Token": token})
}

func (s *userStore) UpdateUserStatus(ctx context.Context, id, status string, completedAt *time.Time) error {
	fields := map[string]interface{}{"Status": status, "Completed_At": nil}
	if completedAt != nil {
		fields["Completed_At"] = formatTime(*completedAt)
	}
	return s.c.update(ctx, TableUsers, id, fields)
}

func (s *userStore) AddStudyTime(ctx context.Context, id string, seconds int) error {
	unlock := s.c.locks.lock(TableUsers + "/" + id)
	defer unlock()

	rec, err := s.c.byID(ctx, TableUsers, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return repository.ErrNotFound
	}
	total := integer(rec.Fields, "Total_Study_Time") + seconds
	return s.c.update(ctx, TableUsers, id, map[string]interface{}{"Total_Study_Time": total})
}

func (s *userStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	recs, err := s.c.list(ctx, TableUsers, "")
	if err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, toUser(rec))
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}
