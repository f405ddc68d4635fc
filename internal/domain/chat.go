package domain

import "time"

// ChatMessage is an append-only chat line in a recipe room.
type ChatMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"by"`
	Text      string    `json:"message"`
	CreatedAt time.Time `json:"at"`
}

// Broadcast is the live payload for the message.
func (m *ChatMessage) Broadcast() ChatBroadcast {
	return ChatBroadcast{Message: m.Text, By: m.Author, At: Timestamp(m.CreatedAt)}
}

// CookingStep is an append-only step shared by a chef in a recipe room.
type CookingStep struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"by"`
	Step      string    `json:"step"`
	CreatedAt time.Time `json:"at"`
}

// Update is the live payload for the step.
func (s *CookingStep) Update() StepUpdate {
	return StepUpdate{Step: s.Step, By: s.Author, At: Timestamp(s.CreatedAt)}
}
