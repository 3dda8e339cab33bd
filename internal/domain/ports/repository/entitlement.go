package repository

import (
	"context"
	"time"

	"membership-checkout/internal/domain/model"
)

// EntitlementRepository grants access. Every call is idempotent on (user, target).
type EntitlementRepository interface {
	JoinGroup(ctx context.Context, tx Tx, userID, groupID string) (bool, error)
	// GrantCourse inserts the enrollment or extends its expiry; nil expiry never shortens access.
	GrantCourse(ctx context.Context, tx Tx, userID, courseID string, expiresAt *time.Time) error
	GrantProduct(ctx context.Context, tx Tx, p *model.UserProduct) (bool, error)
	ListCourseEnrollments(ctx context.Context, tx Tx, userID string) ([]*model.CourseEnrollment, error)
}
