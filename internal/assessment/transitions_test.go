package assessment

import (
	"testing"

	"grc-backoffice/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanChangeStatus(t *testing.T) {
	cases := []struct {
		role     models.UserRole
		from, to models.AssessmentStatus
		want     bool
	}{
		{models.RoleAdmin, models.AssessmentCompleted, models.AssessmentInProgress, true},
		{models.RoleAdmin, models.AssessmentCompleted, models.AssessmentCompleted, false},
		{models.RoleComplianceManager, models.AssessmentNotStarted, models.AssessmentInProgress, true},
		{models.RoleComplianceManager, models.AssessmentNotStarted, models.AssessmentCompleted, false},
		{models.RoleComplianceManager, models.AssessmentUnderReview, models.AssessmentCompleted, true},
		{models.RoleComplianceManager, models.AssessmentCompleted, models.AssessmentInProgress, false},
		{models.RoleAuditor, models.AssessmentInProgress, models.AssessmentUnderReview, true},
		{models.RoleAuditor, models.AssessmentUnderReview, models.AssessmentCompleted, false},
		{models.RoleViewer, models.AssessmentNotStarted, models.AssessmentInProgress, false},
	}

	for _, tc := range cases {
		got := canChangeStatus(tc.role, tc.from, tc.to)
		assert.Equal(t, tc.want, got, "%s: %s -> %s", tc.role, tc.from, tc.to)
	}
}
