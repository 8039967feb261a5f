package model

import (
	"strings"
	"time"
)

// Category is the closed set of milestone tags. The storage column is a
// free-form string; ParseCategory coerces unknown values to CategoryNone
// at the store boundary so arbitrary strings never reach the views.
type Category string

const (
	CategoryNone      Category = ""
	CategoryMilestone Category = "milestone"
	CategoryFirst     Category = "first"
	CategoryGrowth    Category = "growth"
	CategoryFun       Category = "fun"
)

func Categories() []Category {
	return []Category{CategoryMilestone, CategoryFirst, CategoryGrowth, CategoryFun}
}

func ParseCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryMilestone:
		return CategoryMilestone
	case CategoryFirst:
		return CategoryFirst
	case CategoryGrowth:
		return CategoryGrowth
	case CategoryFun:
		return CategoryFun
	default:
		return CategoryNone
	}
}

// Milestone is one recorded event in the child's timeline.
// Photo is either a data URI (form upload) or a stored object path
// like /photos/mst-xxxx-1712000000000.jpg.
type Milestone struct {
	ID          string    `json:"id"`
	TimelineID  string    `json:"timelineId"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Photo       string    `json:"photo,omitempty"`
	Category    Category  `json:"category,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Timeline is the singleton aggregate that owns all milestones.
type Timeline struct {
	ID        string      `json:"id"`
	BabyName  string      `json:"babyName"`
	BirthDate string      `json:"birthDate"` // YYYY-MM-DD
	Items     []Milestone `json:"items"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Identity is the authenticated admin. A non-nil *Identity anywhere in
// the app means admin privileges; viewers have no identity at all.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}
