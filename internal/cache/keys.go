package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// Cache key builders. Admin deletions must invalidate the same keys the
// scoring pipeline maintains, so every key lives here.

func KeyUserExists(userID uuid.UUID) string {
	return fmt.Sprintf("user:exists:%s", userID)
}

func KeyChallengeDetails(challengeID uuid.UUID) string {
	return fmt.Sprintf("challenge:details:%s", challengeID)
}

func KeyHasSolved(userID, challengeID uuid.UUID) string {
	return fmt.Sprintf("solved:%s:%s", userID, challengeID)
}

func KeyAttemptCount(userID, challengeID uuid.UUID) string {
	return fmt.Sprintf("attempt_count:%s:%s", userID, challengeID)
}

func KeyRecentSubmissions(userID, challengeID uuid.UUID) string {
	return fmt.Sprintf("recent_submits:%s:%s", userID, challengeID)
}

func KeyHintUsed(userID, hintID uuid.UUID) string {
	return fmt.Sprintf("hint_used:%s:%s", userID, hintID)
}

func KeyUserGraph(userID uuid.UUID) string {
	return fmt.Sprintf("user_graph:%s", userID)
}

const (
	KeyUserRanks          = "user_ranks"
	KeyTopUsersGraph      = "top_users_graph"
	KeySubmissionsAllowed = "config:submissions_allowed"

	// Monotonic counter bumped on every buffered hint usage. The
	// leaderboard maintainer compares it against the version a cached
	// rank list was computed at to decide incremental vs full recompute.
	KeyHintUsageVersion = "hint_usage_version"
)
