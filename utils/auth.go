package utils

import "slices"

// Permission levels
const (
	DeveloperPermission = "developer"
	AdminPermission     = "admin"
	ModPermission       = "mod"
	GuestPermission     = "guest"
)

// CheckPermission returns the highest permission level of a member. Admin is granted by the
// Discord administrator permission bit, mod by the guild's configured mod role.
func CheckPermission(userID string, memberRoleIDs []string, isAdministrator bool, modRoleID string, developerUserIDs []string) string {
	if userID != "" && slices.Contains(developerUserIDs, userID) {
		return DeveloperPermission
	}
	if isAdministrator {
		return AdminPermission
	}
	if modRoleID != "" && slices.Contains(memberRoleIDs, modRoleID) {
		return ModPermission
	}
	return GuestPermission
}

// IsModerator reports whether level allows mod commands.
func IsModerator(level string) bool {
	return level != GuestPermission
}
