package models

import "time"

// User represents an account within the PodWave platform.
type User struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
}

// Podcast is a generated audio episode owned by a user. AudioURL and
// Duration come from the same synthesis run and are written together.
type Podcast struct {
	ID          string
	Title       string
	Description string
	AudioURL    string
	Duration    float64
	OwnerID     string
	OwnerEmail  string
	CreatedAt   time.Time
}

// ListeningSession aggregates listen events for one user, one podcast and
// one calendar day.
type ListeningSession struct {
	ID                   string
	UserID               string
	PodcastID            string
	SessionStart         time.Time
	TotalListenedSeconds float64
	Events               []ListenEvent
}

// ListenEvent is a single reported slice of listening time.
type ListenEvent struct {
	ListenedSeconds float64
	EventAt         time.Time
}

// Process names recorded in timing logs.
const (
	ProcessGeneration = "generation"
	ProcessSynthesis  = "synthesis"
)

// TimingLog is an append-only latency sample for one workflow invocation,
// used only for rolling average queries.
type TimingLog struct {
	ID             string
	ProcessName    string
	DurationMillis float64
	RecordedAt     time.Time
}

// PodcastMetrics aggregates platform-wide and per-user podcast counts and
// durations.
type PodcastMetrics struct {
	TotalUsers                  int64
	TotalPodcasts               int64
	UserPodcasts                int64
	AvgPodcastsPerUser          float64
	AvgPodcastsPerUploadingUser float64
	TotalDurationAllPodcasts    float64
	TotalDurationUserPodcasts   float64
}
