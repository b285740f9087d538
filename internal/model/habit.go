package model

import "time"

// Habit is the stored habit record. History holds completion dates as
// YYYY-MM-DD strings, unique, stored unordered. Streak and Completion are
// derived but persisted for query efficiency.
type Habit struct {
	ID             string    `json:"id"`
	UserID         int       `json:"userId"`
	Name           string    `json:"name"`
	Streak         int       `json:"streak"`
	History        []string  `json:"history"`
	Completion     int       `json:"completion"`
	CreatedAt      time.Time `json:"createdAt"`
	CompletedToday bool      `json:"completedToday"`
}

// HabitSummary is the per-habit payload sent to the insight generator.
// History never leaves the service.
type HabitSummary struct {
	Name       string `json:"name"`
	Streak     int    `json:"streak"`
	Completion int    `json:"completion"`
}

// Insight is the structured coaching response from the generator.
type Insight struct {
	PositiveReinforcement string `json:"positiveReinforcement"`
	AreasForImprovement   string `json:"areasForImprovement"`
	MotivationalQuote     string `json:"motivationalQuote"`
}

// ProgressPoint is one day of the 7-day completion rollup.
type ProgressPoint struct {
	Date      string `json:"date"`
	Day       string `json:"day"`
	Completed int    `json:"completed"`
}
