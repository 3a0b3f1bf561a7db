package model

import "time"

// Label is a user-defined group that owns zero or more tasks.
type Label struct {
	ID            string     `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Color         string     `json:"color" db:"color"`
	Category      *string    `json:"category,omitempty" db:"category"`
	OrderPosition int        `json:"order_position" db:"order_position"`
	IsFavorite    bool       `json:"isFavorite" db:"isFavorite"`
	IsDeleted     bool       `json:"isDeleted" db:"isDeleted"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty" db:"deletedAt"`
	CreatedAt     time.Time  `json:"createdAt" db:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updatedAt"`
}

// CategoryName returns the label's category, or "" when it has none.
func (l Label) CategoryName() string {
	if l.Category == nil {
		return ""
	}
	return *l.Category
}
