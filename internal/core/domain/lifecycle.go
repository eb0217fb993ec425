package domain

import "time"

// CompletedAtFor returns the completedAt value after moving from prev to next.
// Entering COMPLETED stamps now, staying COMPLETED keeps the original stamp,
// leaving COMPLETED clears it.
func CompletedAtFor(prev, next IssueStatus, current *time.Time, now time.Time) *time.Time {
	switch {
	case next == StatusCompleted && prev != StatusCompleted:
		stamp := now
		return &stamp
	case next == StatusCompleted:
		if current == nil {
			stamp := now
			return &stamp
		}
		return current
	default:
		return nil
	}
}

// EffectivePriority forces EMERGENCY for emergency issues
func EffectivePriority(isEmergency bool, requested Priority) Priority {
	if isEmergency {
		return PriorityEmergency
	}
	if requested == "" {
		return PriorityMedium
	}
	return requested
}

// DaysSince returns whole days elapsed between createdAt and now
func DaysSince(createdAt, now time.Time) int {
	if now.Before(createdAt) {
		return 0
	}
	return int(now.Sub(createdAt) / (24 * time.Hour))
}

// IsOverdue reports whether an open issue has exceeded its subcategory's
// estimated resolution window. A nil estimate never makes an issue overdue.
func IsOverdue(status IssueStatus, createdAt time.Time, estimatedDays *int, now time.Time) bool {
	if !status.IsOpen() || estimatedDays == nil {
		return false
	}
	return DaysSince(createdAt, now) > *estimatedDays
}
