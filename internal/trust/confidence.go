package trust

import (
	"time"

	"github.com/packdim/trust-cli/internal/model"
)

// Scoring constants. baseConfidence is the fixed starting point every
// product begins from; the remaining components adjust it up or down.
const (
	baseConfidence = 85

	likesScoreCap = 10
	viewsScoreCap = 5
	editsScoreCap = 10
	ageScoreCap   = 10

	disputesScoreFloor = -15
	disputesScoreCeil  = 5

	recentEditWindow = 30 * 24 * time.Hour
	sameDayWindow    = 24 * time.Hour
)

// ConfidenceFactors breaks the 0-100 trust score into its components.
// TotalScore is always the clamped sum of the other fields.
type ConfidenceFactors struct {
	BaseConfidence int `json:"base_confidence"`
	LikesScore     int `json:"likes_score"`
	ViewsScore     int `json:"views_score"`
	EditsScore     int `json:"edits_score"`
	DisputesScore  int `json:"disputes_score"`
	AgeScore       int `json:"age_score"`
	TotalScore     int `json:"total_score"`
}

// ComputeConfidence converts a product snapshot and its dispute summary
// into confidence factors. It is pure and total: no I/O, deterministic
// for identical inputs, and it never fails — nonsense inputs (negative
// counters, zero timestamps) are defensively treated as zero.
func ComputeConfidence(p model.Product, summary model.DisputeSummary, now time.Time) ConfidenceFactors {
	f := ConfidenceFactors{
		BaseConfidence: baseConfidence,
		LikesScore:     likesScore(p.Likes),
		ViewsScore:     viewsScore(p.Views),
		EditsScore:     editsScore(p, now),
		DisputesScore:  disputesScore(summary),
		AgeScore:       ageScore(p, now),
	}
	sum := f.BaseConfidence + f.LikesScore + f.ViewsScore + f.EditsScore + f.DisputesScore + f.AgeScore
	f.TotalScore = clamp(sum, 0, 100)
	return f
}

// likesScore rewards community approval on a stepped scale, capped at 10.
func likesScore(likes int) int {
	switch {
	case likes <= 0:
		return 0
	case likes <= 2:
		return 2
	case likes <= 5:
		return 4
	case likes <= 10:
		return 6
	case likes <= 20:
		return 8
	default:
		return likesScoreCap
	}
}

// viewsScore rewards visibility on a stepped scale, capped at 5. High
// view counts matter because unreported errors on a heavily-viewed
// record are less likely.
func viewsScore(views int) int {
	switch {
	case views <= 0:
		return 0
	case views <= 10:
		return 1
	case views <= 50:
		return 2
	case views <= 100:
		return 3
	case views <= 500:
		return 4
	default:
		return viewsScoreCap
	}
}

// editsScore rewards community correction over creator-only activity:
// +5 when someone other than the creator last edited, +3 for an edit
// within the last 30 days, +2 for any edit at all. Capped at 10.
func editsScore(p model.Product, now time.Time) int {
	score := 0
	if p.LastModifiedBy != "" && p.LastModifiedBy != p.CreatedBy {
		score += 5
	}
	if !p.LastModified.IsZero() && now.Sub(p.LastModified) <= recentEditWindow {
		score += 3
	}
	if p.LastModified.After(p.CreatedAt) {
		score += 2
	}
	return min(score, editsScoreCap)
}

// disputesScore penalizes unresolved disputes hardest, resolved ones
// less (the problem was real but addressed), and rewards rejected ones
// as a validation signal. Clamped to [-15, 5].
func disputesScore(s model.DisputeSummary) int {
	open, resolved, rejected := max(s.Open, 0), max(s.Resolved, 0), max(s.Rejected, 0)
	score := -3*open - 2*resolved + rejected
	return clamp(score, disputesScoreFloor, disputesScoreCeil)
}

// ageScore rewards longevity and stability, capped at 10: an age bucket
// since creation, a stability bucket since the last edit, and +3 flat
// when creation and last modification fall within the same 24h window
// (never meaningfully edited).
func ageScore(p model.Product, now time.Time) int {
	score := 0

	if !p.CreatedAt.IsZero() {
		ageDays := int(now.Sub(p.CreatedAt).Hours() / 24)
		switch {
		case ageDays >= 365:
			score += 4
		case ageDays >= 180:
			score += 3
		case ageDays >= 90:
			score += 2
		case ageDays >= 30:
			score += 1
		}
	}

	if !p.LastModified.IsZero() {
		stableDays := int(now.Sub(p.LastModified).Hours() / 24)
		switch {
		case stableDays >= 90:
			score += 3
		case stableDays >= 30:
			score += 2
		case stableDays >= 7:
			score += 1
		}
	}

	if !p.CreatedAt.IsZero() && !p.LastModified.IsZero() {
		gap := p.LastModified.Sub(p.CreatedAt)
		if gap < 0 {
			gap = -gap
		}
		if gap <= sameDayWindow {
			score += 3
		}
	}

	return min(score, ageScoreCap)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
