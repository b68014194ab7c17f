package biz

import (
	"sort"
	"strings"
	"time"

	"github.com/GustavoAl5317/momentusi-sub000/internal/constants"
	"github.com/GustavoAl5317/momentusi-sub000/internal/errors"
)

// Moment is one dated entry on a timeline. The stored order index is the
// source of truth for display sequence; the date is presentational only.
type Moment struct {
	ID          uint64
	TimelineID  string
	Date        time.Time
	Title       string
	Description string
	ImageURLs   []string // at most 3
	MusicURL    string
	OrderIndex  int
}

// ValidateMoments enforces the per-plan moment cap and per-moment limits.
func ValidateMoments(planType string, moments []*Moment) error {
	if planType == constants.PlanEssential && len(moments) > constants.EssentialMomentLimit {
		return errors.BadRequest(errors.ErrCodeMomentLimitExceeded,
			"the essential plan allows at most %d moments, got %d", constants.EssentialMomentLimit, len(moments))
	}
	for _, m := range moments {
		if strings.TrimSpace(m.Title) == "" {
			return errors.BadRequest(errors.ErrCodeInvalidInput, "moment title is required")
		}
		if len(m.ImageURLs) > constants.MaxImagesPerMoment {
			return errors.BadRequest(errors.ErrCodeTooManyImages,
				"a moment allows at most %d images, got %d", constants.MaxImagesPerMoment, len(m.ImageURLs))
		}
	}
	return nil
}

// normalizeMoments stamps ownership, compacts order indexes into a dense
// 0..n-1 sequence preserving the given order, and normalizes music URLs.
func normalizeMoments(timelineID string, moments []*Moment) {
	sort.SliceStable(moments, func(i, j int) bool {
		return moments[i].OrderIndex < moments[j].OrderIndex
	})
	for i, m := range moments {
		m.TimelineID = timelineID
		m.OrderIndex = i
		m.MusicURL = NormalizeMusicURL(m.MusicURL)
	}
}

// NormalizeMusicURL makes a pasted music link usable as an href. Empty
// input stays empty; scheme-less links get https.
func NormalizeMusicURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return "https://" + s
}
