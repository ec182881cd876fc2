package assessment

import "grc-backoffice/internal/models"

// canChangeStatus is the assessment lifecycle per role. Admins may move freely.
func canChangeStatus(role models.UserRole, current, next models.AssessmentStatus) bool {
	if current == next {
		return false
	}

	switch role {

	case models.RoleAdmin:
		return true

	case models.RoleComplianceManager:
		switch current {
		case models.AssessmentNotStarted:
			return next == models.AssessmentInProgress || next == models.AssessmentCancelled
		case models.AssessmentInProgress:
			return next == models.AssessmentUnderReview || next == models.AssessmentCancelled
		case models.AssessmentUnderReview:
			return next == models.AssessmentInProgress || next == models.AssessmentCompleted || next == models.AssessmentCancelled
		}
		return false

	case models.RoleAuditor:
		return current == models.AssessmentInProgress && next == models.AssessmentUnderReview

	default:
		return false
	}
}
