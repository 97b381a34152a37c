package model

import "time"

// Question is one entry in a meeting's fixed, ordered question list
type Question struct {
	Position int    `json:"position" bson:"position"`
	Text     string `json:"text" bson:"text"`
}

// Meeting is a scheduled meeting owned by a host. The question list is
// fixed once the meeting goes live.
type Meeting struct {
	ID              string     `json:"id" bson:"_id,omitempty"`
	HostID          string     `json:"hostId" bson:"hostId"`
	Title           string     `json:"title" bson:"title"`
	Description     string     `json:"description" bson:"description"`
	DurationSeconds int        `json:"durationSeconds" bson:"durationSeconds"`
	Questions       []Question `json:"questions" bson:"questions"`
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// QuestionTexts returns the question texts in position order. Questions
// are stored sorted, so this is a plain projection.
func (m *Meeting) QuestionTexts() []string {
	texts := make([]string, len(m.Questions))
	for i, q := range m.Questions {
		texts[i] = q.Text
	}
	return texts
}
