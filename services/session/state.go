package session

import (
	"courtwise/models"
	"courtwise/services/quota"
)

// State is the entitlement view of one client session.
//
// Loading is true until the first identity check has fully resolved and is
// never true again. Syncing is true while the profile or usage of the
// current identity is being (re)loaded. Role and RemainingCases are not
// meaningful while either is set.
type State struct {
	IsLoggedIn     bool             `json:"is_logged_in"`
	User           *models.Identity `json:"user"`
	Profile        *models.Profile  `json:"profile"`
	Role           models.Role      `json:"role"`
	UserName       string           `json:"user_name"`
	RemainingCases quota.Remaining  `json:"remaining_cases"`
	Loading        bool             `json:"loading"`
	Syncing        bool             `json:"syncing"`
}

// guestState is the state of a session nobody is signed in to.
func guestState(allowance quota.Remaining) State {
	return State{
		Role:           models.RoleFree,
		UserName:       models.GuestDisplayName,
		RemainingCases: allowance,
	}
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	if s.Profile != nil {
		p := *s.Profile
		s.Profile = &p
	}
	return s
}
