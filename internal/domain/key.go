package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UndefinedAgencySegment prefixes keys uploaded by callers without an
// agency, so such objects remain parseable and never match a real tenant.
const UndefinedAgencySegment = "undefined_agency"

// ObjectKey builds the storage key for one photo:
//
//	agency_<agencyID>/<entityType>_<entityID>/<access>/<uuid>.jpg
//
// The random basename makes keys unique per item; the prefix keeps them
// human-parseable for the ownership guard.
func ObjectKey(agencyID, entityType, entityID, access string) string {
	tenant := UndefinedAgencySegment
	if agencyID != "" {
		tenant = "agency_" + agencyID
	}
	return fmt.Sprintf("%s/%s_%s/%s/%s.jpg", tenant, entityType, entityID, access, uuid.New().String())
}

// KeyOwnedBy reports whether the key belongs to the given agency. Keys of
// callers without an agency never pass, so such callers cannot delete
// anything without the admin role.
func KeyOwnedBy(key, agencyID string) bool {
	if agencyID == "" {
		return false
	}
	return strings.Contains(key, "agency_"+agencyID)
}
