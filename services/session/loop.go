package session

import (
	"context"
	"errors"

	"courtwise/models"
	"courtwise/services/identity"
	"courtwise/services/quota"

	"go.uber.org/zap"
)

// loop is the state owned by the run goroutine.
type loop struct {
	s *Synchronizer

	state   State
	session *models.IdentitySession

	// gen identifies the identity chain in flight. Async results carrying an
	// older gen belong to a previous identity and are dropped.
	gen       uint64
	chainDone bool
	settled   bool
	// pending holds decrements and role changes that arrived mid-chain.
	pending []interface{}
}

func (s *Synchronizer) run(events <-chan models.IdentityEvent, unsubscribe func()) {
	defer close(s.done)
	defer unsubscribe()

	l := &loop{s: s, state: s.Snapshot()}
	go l.checkCurrentSession(l.gen)

	for {
		select {
		case <-s.stop:
			l.flushPending(ErrClosed)
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			l.onIdentityChange(ev.Kind, ev.Session)
		case msg := <-s.inbox:
			l.handle(msg)
		}
	}
}

func (l *loop) handle(msg interface{}) {
	switch m := msg.(type) {
	case initialResult:
		if m.gen != l.gen {
			return
		}
		if m.err != nil {
			l.s.log.Warn("Failed to read current identity session", zap.Error(m.err))
		}
		l.onIdentityChange(models.IdentityInitialSession, m.session)
	case profileResult:
		if m.gen == l.gen {
			l.onProfile(m.profile, m.err)
		}
	case usageResult:
		if m.gen == l.gen {
			l.state.RemainingCases = m.remaining
			l.completeChain()
		}
	case roleChange:
		if m.gen != l.gen || !l.state.IsLoggedIn {
			m.reply <- l.state.clone()
			return
		}
		if !l.chainDone {
			l.pending = append(l.pending, m)
			return
		}
		l.onRoleChange(m.role)
		m.reply <- l.state.clone()
	case decrementCmd:
		l.onDecrement(m)
	case profileReload:
		if !l.state.IsLoggedIn {
			m.reply <- identity.ErrNotLoggedIn
			return
		}
		l.gen++
		l.chainDone = false
		l.state.Syncing = true
		l.s.publish(l.state)
		go l.loadProfile(l.gen, l.state.User.ID)
		m.reply <- nil
	case identityQuery:
		m.reply <- identityView{gen: l.gen, session: l.session, role: l.state.Role}
	}
}

// onIdentityChange applies an identity transition. A present identity keeps
// the loaded profile only when it is the same identity as before; anything
// else starts from guest values so nothing of the previous identity leaks.
func (l *loop) onIdentityChange(kind models.IdentityEventKind, session *models.IdentitySession) {
	if m := l.s.deps.Metrics; m != nil {
		m.IdentityEvents.WithLabelValues(string(kind)).Inc()
	}
	l.gen++
	gen := l.gen

	if session == nil {
		l.flushPending(identity.ErrNotLoggedIn)
		l.session = nil
		l.state = guestState(l.s.deps.Ledger.Allowance())
		l.state.Loading = !l.settled
		l.chainDone = false
		l.completeChain()
		return
	}

	sameIdentity := l.state.User != nil && l.state.User.ID == session.Identity.ID
	if !sameIdentity {
		if l.state.User != nil {
			l.flushPending(ErrIdentityChanged)
		}
		l.state = guestState(l.s.deps.Ledger.Allowance())
		l.state.UserName = models.DefaultDisplayName
		l.state.Loading = !l.settled
	}
	user := session.Identity
	l.session = session
	l.state.IsLoggedIn = true
	l.state.User = &user
	l.state.Syncing = true
	l.chainDone = false
	l.s.publish(l.state)

	go l.loadProfile(gen, user.ID)
}

// onProfile applies a profile load. A missing row or a failed read leaves
// the identity on the free role.
func (l *loop) onProfile(profile *models.Profile, err error) {
	userID := l.state.User.ID
	switch {
	case err != nil:
		l.s.log.Warn("Failed to load profile, defaulting to free role", zap.String("userID", userID), zap.Error(err))
		profile = nil
	case profile == nil:
		l.s.log.Info("No profile found, defaulting to free role", zap.String("userID", userID))
	}

	if profile == nil {
		l.state.Profile = nil
		l.state.Role = models.RoleFree
		l.state.UserName = models.DefaultDisplayName
	} else {
		l.state.Profile = profile
		l.state.Role = models.ParseRole(string(profile.Role))
		l.state.UserName = profile.DisplayName()
	}

	if !l.state.Role.Metered() {
		l.state.RemainingCases = quota.Unlimited
		l.completeChain()
		return
	}
	l.s.publish(l.state)
	go l.loadUsage(l.gen, userID, l.state.Role)
}

func (l *loop) onRoleChange(role models.Role) {
	if l.state.Role == models.RoleAdmin {
		role = models.RoleAdmin
	}
	l.state.Role = role
	if l.state.Profile != nil {
		l.state.Profile.Role = role
	}
	if !role.Metered() {
		l.state.RemainingCases = quota.Unlimited
		l.s.publish(l.state)
		return
	}
	// Downgraded to free: recount today's usage before serving more views.
	l.gen++
	l.chainDone = false
	l.state.Syncing = true
	l.s.publish(l.state)
	go l.loadUsage(l.gen, l.state.User.ID, role)
}

func (l *loop) onDecrement(cmd decrementCmd) {
	if !l.state.IsLoggedIn {
		if l.chainDone {
			cmd.reply <- decrementReply{remaining: l.state.RemainingCases, err: identity.ErrNotLoggedIn}
			return
		}
		// Still resolving the initial session.
		l.pending = append(l.pending, cmd)
		return
	}
	if !l.chainDone {
		l.pending = append(l.pending, cmd)
		return
	}

	remaining, consumed := l.s.deps.Ledger.Decrement(l.state.Role, l.state.RemainingCases)
	l.state.RemainingCases = remaining
	if consumed {
		l.persist(l.state.User.ID)
		l.s.publish(l.state)
	}
	cmd.reply <- decrementReply{remaining: remaining, consumed: consumed}
}

// completeChain marks the current identity as fully loaded, settles Loading
// the first time and serves decrements that were waiting for it.
func (l *loop) completeChain() {
	l.chainDone = true
	l.state.Syncing = false
	if !l.settled {
		l.settled = true
		l.state.Loading = false
		l.s.publish(l.state)
		close(l.s.ready)
	} else {
		l.s.publish(l.state)
	}

	pending := l.pending
	l.pending = nil
	for _, msg := range pending {
		l.handle(msg)
	}
}

func (l *loop) flushPending(err error) {
	for _, msg := range l.pending {
		switch m := msg.(type) {
		case decrementCmd:
			m.reply <- decrementReply{remaining: l.state.RemainingCases, err: err}
		case roleChange:
			m.reply <- l.state.clone()
		}
	}
	l.pending = nil
}

// persist writes the consumed view outside the loop. Close waits for it.
func (l *loop) persist(userID string) {
	l.s.persists.Add(1)
	go func() {
		defer l.s.persists.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		l.s.deps.Ledger.Persist(ctx, userID)
	}()
}

func (l *loop) checkCurrentSession(gen uint64) {
	ctx, cancel := context.WithTimeout(l.s.ctx, loadTimeout)
	defer cancel()
	session, err := l.s.deps.Provider.CurrentSession(ctx, l.s.key)
	l.s.post(initialResult{gen: gen, session: session, err: err})
}

func (l *loop) loadProfile(gen uint64, userID string) {
	ctx, cancel := context.WithTimeout(l.s.ctx, loadTimeout)
	defer cancel()
	profile, err := l.safeGetProfile(ctx, userID)
	l.s.post(profileResult{gen: gen, profile: profile, err: err})
}

// safeGetProfile turns a panicking store into an ordinary load failure.
func (l *loop) safeGetProfile(ctx context.Context, userID string) (profile *models.Profile, err error) {
	defer func() {
		if r := recover(); r != nil {
			profile, err = nil, errors.New("profile store panicked")
		}
	}()
	return l.s.deps.Profiles.GetByID(ctx, userID)
}

func (l *loop) loadUsage(gen uint64, userID string, role models.Role) {
	ctx, cancel := context.WithTimeout(l.s.ctx, loadTimeout)
	defer cancel()
	remaining := l.s.deps.Ledger.Load(ctx, userID, role)
	l.s.post(usageResult{gen: gen, remaining: remaining})
}
