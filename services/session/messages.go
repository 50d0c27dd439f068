package session

import (
	"courtwise/models"
	"courtwise/services/quota"
)

// Messages handled by the synchronizer loop. Nothing else mutates State.

type initialResult struct {
	gen     uint64
	session *models.IdentitySession
	err     error
}

type profileResult struct {
	gen     uint64
	profile *models.Profile
	err     error
}

type usageResult struct {
	gen       uint64
	remaining quota.Remaining
}

type roleChange struct {
	gen   uint64
	role  models.Role
	reply chan State
}

type decrementCmd struct {
	reply chan decrementReply
}

type decrementReply struct {
	remaining quota.Remaining
	consumed  bool
	err       error
}

// profileReload restarts the profile and usage load of the current identity.
type profileReload struct {
	reply chan error
}

// identityQuery reads loop-owned fields that are not part of State.
type identityQuery struct {
	reply chan identityView
}

type identityView struct {
	gen     uint64
	session *models.IdentitySession
	role    models.Role
}
