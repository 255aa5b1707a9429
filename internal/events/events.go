// Package events defines the messages the catalog emits after a commit and
// the publishers that deliver them.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	KeyAccessGranted    = "course.access.granted"
	KeyAccessRevoked    = "course.access.revoked"
	KeyVersionActivated = "course.version.activated"
)

type AccessGranted struct {
	UserID          uuid.UUID  `json:"userId"`
	CourseVersionID uuid.UUID  `json:"courseVersionId"`
	PurchaseID      *uuid.UUID `json:"purchaseId,omitempty"`
	GrantedAt       time.Time  `json:"grantedAt"`
}

type AccessRevoked struct {
	UserID          uuid.UUID  `json:"userId"`
	CourseVersionID uuid.UUID  `json:"courseVersionId"`
	PurchaseID      *uuid.UUID `json:"purchaseId,omitempty"`
	RevokedAt       time.Time  `json:"revokedAt"`
}

type VersionActivated struct {
	CourseID    uuid.UUID `json:"courseId"`
	VersionID   uuid.UUID `json:"versionId"`
	Version     int       `json:"version"`
	ActivatedAt time.Time `json:"activatedAt"`
}
