package service

import "github.com/E10-Naganiom/backOFraud/internal/models"

// authorizeOwner permits access only when the caller owns the resource.
// Callers load the resource first so a missing id is reported as not found
// before ownership is considered.
func authorizeOwner(identity models.UserProfile, ownerID int64) error {
	if identity.ID != ownerID {
		return ErrForbidden
	}
	return nil
}
