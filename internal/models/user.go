package models

import "time"

// User statuses
const (
	UserStatusInProgress = "In Progress"
	UserStatusCompleted  = "Completed"
	UserStatusBlocked    = "Blocked"
)

// User represents a prospective manager going through onboarding
type User struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Phone             string     `json:"phone"`
	Email             string     `json:"email,omitempty"`
	Region            string     `json:"region,omitempty"`
	ApplicationReason string     `json:"applicationReason,omitempty"`
	Status            string     `json:"status"`
	SessionToken      string     `json:"-"`
	TotalStudyTime    int        `json:"totalStudyTime"`
	CreatedAt         time.Time  `json:"createdAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// IsCompleted reports whether the user has finished every chapter
func (u *User) IsCompleted() bool {
	return u.Status == UserStatusCompleted
}

// IsBlocked reports whether an operator has blocked the user
func (u *User) IsBlocked() bool {
	return u.Status == UserStatusBlocked
}

// Session is handed back to the learner after registration
type Session struct {
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	UserPhone    string `json:"userPhone"`
	SessionToken string `json:"sessionToken"`
}
