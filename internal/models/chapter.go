package models

import "time"

// Record statuses shared by chapters and questions
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// DefaultRequiredWatchPercentage applies when a chapter does not set one
const DefaultRequiredWatchPercentage = 60

// Chapter is an ordered instructional unit: one video followed by a quiz
type Chapter struct {
	ID                      string    `json:"id"`
	Name                    string    `json:"name"`
	Order                   int       `json:"order"`
	VideoURL                string    `json:"videoUrl"`
	VideoDuration           float64   `json:"videoDuration"`
	RequiredWatchPercentage float64   `json:"requiredWatchPercentage"`
	Description             string    `json:"description,omitempty"`
	QuestionsCount          int       `json:"questionsCount"`
	Status                  string    `json:"status"`
	CreatedAt               time.Time `json:"createdAt"`
}

// IsActive reports whether the chapter participates in the learner flow
func (c *Chapter) IsActive() bool {
	return c.Status == StatusActive
}

// WatchThreshold returns the required watch percentage, applying the default
func (c *Chapter) WatchThreshold() float64 {
	if c.RequiredWatchPercentage <= 0 {
		return DefaultRequiredWatchPercentage
	}
	return c.RequiredWatchPercentage
}

// ChapterUpdate holds a partial chapter update; nil fields are left untouched
type ChapterUpdate struct {
	Name                    *string  `json:"name,omitempty"`
	Order                   *int     `json:"order,omitempty" validate:"omitempty,gte=1"`
	VideoURL                *string  `json:"videoUrl,omitempty"`
	VideoDuration           *float64 `json:"videoDuration,omitempty" validate:"omitempty,gte=0"`
	RequiredWatchPercentage *float64 `json:"requiredWatchPercentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	Description             *string  `json:"description,omitempty"`
	QuestionsCount          *int     `json:"questionsCount,omitempty" validate:"omitempty,gte=0"`
	Status                  *string  `json:"status,omitempty" validate:"omitempty,oneof=Active Inactive"`
}

// Apply copies the set fields of the update onto the chapter
func (u ChapterUpdate) Apply(c *Chapter) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Order != nil {
		c.Order = *u.Order
	}
	if u.VideoURL != nil {
		c.VideoURL = *u.VideoURL
	}
	if u.VideoDuration != nil {
		c.VideoDuration = *u.VideoDuration
	}
	if u.RequiredWatchPercentage != nil {
		c.RequiredWatchPercentage = *u.RequiredWatchPercentage
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.QuestionsCount != nil {
		c.QuestionsCount = *u.QuestionsCount
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
}

// IsEmpty reports whether the update changes nothing
func (u ChapterUpdate) IsEmpty() bool {
	return u.Name == nil && u.Order == nil && u.VideoURL == nil && u.VideoDuration == nil &&
		u.RequiredWatchPercentage == nil && u.Description == nil && u.QuestionsCount == nil && u.Status == nil
}
