package intent

import (
	"strings"
	"time"
)

// #region state

// Confidence grades how sure the operator was when recording intent.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceUnset  Confidence = "unset"
)

// State is the TTL-bound human-intent record carried across evidence
// snapshots. PreservedAt is mandatory; a record without it is dropped during
// normalization. PreservationCount counts implicit carry-forwards only;
// explicit operator input is never incremented.
type State struct {
	PrimaryGoal       *string    `json:"primary_goal"`
	SecondaryGoals    []string   `json:"secondary_goals"`
	NonGoals          []string   `json:"non_goals"`
	Constraints       []string   `json:"constraints"`
	ConfidenceLevel   Confidence `json:"confidence_level"`
	SetBy             *string    `json:"set_by"`
	SetAt             *string    `json:"set_at"`
	ExpiresAt         *string    `json:"expires_at"`
	PreservedAt       string     `json:"preserved_at"`
	PreservationCount int        `json:"preservation_count"`
	Hint              *string    `json:"_hint,omitempty"`
}

// #endregion state

// #region time-helpers

// isoFormat mirrors the persisted evidence timestamp shape.
const isoFormat = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders a wall-clock instant in the evidence timestamp shape.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoFormat)
}

func parseTime(value string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// #endregion time-helpers

// #region normalize

// Normalize trims every string field, deduplicates the string lists while
// preserving first-seen order, re-renders date fields, and clamps the
// preservation count. It is a fixed point: normalizing a normalized state
// returns an equal state. A state without a parseable preserved_at
// normalizes to nil.
func Normalize(s *State) *State {
	if s == nil {
		return nil
	}

	preservedAt := normalizeDate(&s.PreservedAt)
	if preservedAt == nil {
		return nil
	}

	count := s.PreservationCount
	if count < 0 {
		count = 0
	}

	return &State{
		PrimaryGoal:       normalizeText(s.PrimaryGoal),
		SecondaryGoals:    normalizeTextList(s.SecondaryGoals),
		NonGoals:          normalizeTextList(s.NonGoals),
		Constraints:       normalizeTextList(s.Constraints),
		ConfidenceLevel:   normalizeConfidence(s.ConfidenceLevel),
		SetBy:             normalizeText(s.SetBy),
		SetAt:             normalizeDate(s.SetAt),
		ExpiresAt:         normalizeDate(s.ExpiresAt),
		PreservedAt:       *preservedAt,
		PreservationCount: count,
		Hint:              normalizeText(s.Hint),
	}
}

func normalizeText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeTextList(values []string) []string {
	result := []string{}
	seen := map[string]bool{}
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		result = append(result, trimmed)
	}
	return result
}

func normalizeDate(value *string) *string {
	text := normalizeText(value)
	if text == nil {
		return nil
	}
	t, ok := parseTime(*text)
	if !ok {
		return nil
	}
	iso := FormatTime(t)
	return &iso
}

func normalizeConfidence(value Confidence) Confidence {
	switch value {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceUnset:
		return value
	default:
		return ConfidenceUnset
	}
}

// #endregion normalize

// #region resolve

// Resolve produces the intent to carry into the next evidence snapshot.
// Explicit input is authoritative: it is normalized, stamped with now, and
// its preservation count kept verbatim. Otherwise a prior non-expired intent
// is carried forward with its count incremented by exactly one. Expired or
// absent intent resolves to nil.
func Resolve(now time.Time, previous *State, explicit *State, explicitSet bool) *State {
	candidate := previous
	if explicitSet {
		candidate = explicit
	}

	normalized := Normalize(candidate)
	if normalized == nil || expired(normalized, now) {
		return nil
	}

	if !explicitSet {
		normalized.PreservationCount++
	}
	normalized.PreservedAt = FormatTime(now)
	return normalized
}

// expired reports whether the intent's TTL has elapsed. A missing expiry
// never expires; an unparseable one always does.
func expired(s *State, now time.Time) bool {
	if s.ExpiresAt == nil {
		return false
	}
	expiresAt, ok := parseTime(*s.ExpiresAt)
	if !ok {
		return true
	}
	return !expiresAt.After(now)
}

// #endregion resolve
