// Package access holds the visibility rules for documents and chunks.
// The rules are pure predicates so authorization stays side-effect-free
// and trivially testable.
package access

// CanView reports whether a requester may read a document or chunk.
// Public records are visible to everyone, including anonymous requesters;
// private records only to their owner.
func CanView(ownerID string, public bool, requesterID string) bool {
	if public {
		return true
	}
	return requesterID != "" && requesterID == ownerID
}

// CanModify reports whether a requester may mutate a document.
// Only the owner may; an empty requester never matches.
func CanModify(ownerID, requesterID string) bool {
	return requesterID != "" && requesterID == ownerID
}
