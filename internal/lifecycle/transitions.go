package lifecycle

import (
	apperrors "docverify/internal/common/errors"
	"docverify/internal/models"
)

var allowed = map[models.CaseStatus][]models.CaseStatus{
	models.StatusPending: {
		models.StatusUnderReview, models.StatusPendingIrembo,
		models.StatusApproved, models.StatusSent, models.StatusRejected,
	},
	models.StatusReview: {
		models.StatusUnderReview, models.StatusPendingIrembo,
		models.StatusApproved, models.StatusSent, models.StatusRejected,
	},
	models.StatusUnderReview: {
		models.StatusPendingIrembo, models.StatusApproved, models.StatusSent, models.StatusRejected,
	},
	models.StatusPendingIrembo: {
		models.StatusUnderReview, models.StatusApproved, models.StatusSent, models.StatusRejected,
	},
}

// CanTransition reports whether a case may move from one status to another.
// Issued and rejected cases are final.
func CanTransition(from, to models.CaseStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transition(c *models.Case, to models.CaseStatus) error {
	if !CanTransition(c.Status, to) {
		return apperrors.NewInvalidTransitionError(string(c.Status), string(to))
	}
	c.Status = to
	return nil
}
