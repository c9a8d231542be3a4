package posts

import "strings"

// Post is a stored post row.
type Post struct {
	ID          int64
	Title       string
	Description string
	UserID      int64
}

// PostView is a post as listed to clients, carrying the author's email.
type PostView struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	User        string `json:"user"`
}

// AddPostRequest captures the fields a client may set on a new post.
type AddPostRequest struct {
	Title       string `json:"title" validate:"required,min=5,max=50"`
	Description string `json:"description" validate:"max=150"`
}

func (r AddPostRequest) normalized() AddPostRequest {
	return AddPostRequest{
		Title:       strings.TrimSpace(r.Title),
		Description: strings.TrimSpace(r.Description),
	}
}
