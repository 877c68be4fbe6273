package models

// UserStats summarizes a user's collection
type UserStats struct {
	TotalFlashcards int `json:"total_flashcards"`
	DueFlashcards   int `json:"due_flashcards"`
	ReviewsToday    int `json:"reviews_today"`
	Mastered        int `json:"mastered"`
}
