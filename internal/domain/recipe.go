package domain

import (
	"strings"
	"time"
)

// Recipe owns a cooking room; its ID is the room ID.
// Times are in minutes.
type Recipe struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	ChefID        string    `json:"chef_id"`
	Ingredients   []string  `json:"ingredients"`
	Instructions  []string  `json:"instructions"`
	Servings      int       `json:"servings"`
	PrepTime      int       `json:"prep_time"`
	CookTime      int       `json:"cook_time"`
	TotalTime     int       `json:"total_time"`
	Category      string    `json:"category,omitempty"`
	Tags          []string  `json:"tags"`
	SessionActive bool      `json:"session_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RecipeRequest is the body of POST /recipes and PUT /recipes/:id.
type RecipeRequest struct {
	Title        string   `json:"title" binding:"required,max=200"`
	Description  string   `json:"description" binding:"max=5000"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Servings     int      `json:"servings" binding:"min=0"`
	PrepTime     int      `json:"prep_time" binding:"min=0"`
	CookTime     int      `json:"cook_time" binding:"min=0"`
	Category     string   `json:"category" binding:"max=50"`
	Tags         []string `json:"tags"`
}

// Apply copies the editable content of req onto r. Blank list entries are
// dropped and the total time is recomputed.
func (r *Recipe) Apply(req RecipeRequest) {
	r.Title = strings.TrimSpace(req.Title)
	r.Description = strings.TrimSpace(req.Description)
	r.Ingredients = compact(req.Ingredients)
	r.Instructions = compact(req.Instructions)
	r.Servings = req.Servings
	r.PrepTime = req.PrepTime
	r.CookTime = req.CookTime
	r.TotalTime = req.PrepTime + req.CookTime
	r.Category = strings.TrimSpace(req.Category)
	r.Tags = compact(req.Tags)
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// RecipeLike is unique per (recipe, user).
type RecipeLike struct {
	RecipeID  string    `json:"recipe_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RecipeComment is a comment left on a recipe page.
type RecipeComment struct {
	ID        string    `json:"id"`
	RecipeID  string    `json:"recipe_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentRequest is the body of POST /recipes/:id/comments.
type CommentRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// LikeResult reports the state after a like toggle.
type LikeResult struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// SessionTranscript is the record of a finished cooking session.
type SessionTranscript struct {
	RecipeID string         `json:"recipe_id"`
	Title    string         `json:"title"`
	ChefID   string         `json:"chef_id"`
	EndedAt  time.Time      `json:"ended_at"`
	Steps    []*CookingStep `json:"steps"`
	Chat     []*ChatMessage `json:"chat"`
}

// SessionArchive points at a stored transcript.
type SessionArchive struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
}
