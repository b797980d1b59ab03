package common

// IsOwner reports whether userID is the configured bot owner. With no owner
// configured nobody is.
func IsOwner(userID, ownerID string) bool {
	return ownerID != "" && userID == ownerID
}
