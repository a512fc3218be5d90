package domain

import "time"

// BlogPost is a markdown post shown on the public site.
type BlogPost struct {
	ID        string     `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	Body      string     `json:"body" db:"body"`
	Author    string     `json:"author" db:"author"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// CreateBlogPostRequest is the request body for creating a post.
type CreateBlogPostRequest struct {
	Title  string `json:"title" validate:"required,max=255"`
	Body   string `json:"body" validate:"required"`
	Author string `json:"author" validate:"max=100"`
}

// UpdateBlogPostRequest is the request body for updating a post.
type UpdateBlogPostRequest struct {
	Title  *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Body   *string `json:"body,omitempty" validate:"omitempty,min=1"`
	Author *string `json:"author,omitempty" validate:"omitempty,max=100"`
}
