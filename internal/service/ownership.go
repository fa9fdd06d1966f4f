// Package service contains the business rules: credential flows, the
// session lifecycle, and post/comment/like operations with their ownership
// checks. Handlers parse HTTP and delegate here; repositories persist.
package service

// CanMutate is the single authorization rule for mutations: a resource may
// be edited or deleted only by the user who created it. Applied uniformly to
// posts and comments; like toggling is scoped to the actor's own row by
// construction.
func CanMutate(actorID, ownerID string) bool {
	return actorID != "" && actorID == ownerID
}
