package models

import "time"

// BuildRun records one execution of the static build.
type BuildRun struct {
	ID         string    `json:"id"`
	PostsCount int       `json:"posts_count"`
	NextPage   *string   `json:"next_page,omitempty"`
	OutputDir  string    `json:"output_dir"`
	CreatedAt  time.Time `json:"created_at"`
}
