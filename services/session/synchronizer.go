// Package session keeps, for every client session key, the reconciled view of
// who is signed in and what they are entitled to.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	profileRepo "courtwise/database/repository/profile"
	"courtwise/models"
	"courtwise/services/cases"
	"courtwise/services/identity"
	"courtwise/services/quota"
	"courtwise/utils"

	"go.uber.org/zap"
)

var (
	ErrClosed          = errors.New("session closed")
	ErrIdentityChanged = errors.New("identity changed before the request was served")
	ErrNoChecker       = errors.New("subscription checks are not configured")
)

const (
	loadTimeout    = 10 * time.Second
	persistTimeout = 10 * time.Second
)

// SubscriptionChecker resolves the role an identity's payment status entitles it to.
type SubscriptionChecker interface {
	Check(ctx context.Context, session *models.IdentitySession) (*models.SubscriptionStatus, error)
}

// Deps are the collaborators shared by every synchronizer.
type Deps struct {
	Provider identity.Provider
	Profiles profileRepo.ProfileRepository
	Ledger   *quota.Ledger
	Checker  SubscriptionChecker
	Metrics  *utils.Metrics
	Logger   *zap.Logger
}

// Synchronizer owns the State of one client session. A single goroutine
// started by Start applies every change; other methods send it messages.
type Synchronizer struct {
	key  string
	deps Deps
	log  *zap.Logger

	inbox chan interface{}
	stop  chan struct{}
	done  chan struct{}
	ready chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	closeOnce sync.Once
	started   bool
	persists  sync.WaitGroup

	mu       sync.RWMutex
	snapshot State

	subsMu  sync.Mutex
	subs    map[int]chan State
	nextSub int
}

func NewSynchronizer(key string, deps Deps) *Synchronizer {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer{
		key:    key,
		deps:   deps,
		log:    logger.With(zap.String("session", shortKey(key))),
		inbox:  make(chan interface{}),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		ready:  make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[int]chan State),
	}
	s.snapshot = guestState(deps.Ledger.Allowance())
	s.snapshot.Loading = true
	return s
}

// Start subscribes to the identity stream and launches the loop. Later calls do nothing.
func (s *Synchronizer) Start() {
	s.startOnce.Do(func() {
		events, unsubscribe := s.deps.Provider.Subscribe(s.key)
		s.started = true
		go s.run(events, unsubscribe)
	})
}

// Close stops the loop and waits for in-flight usage writes.
func (s *Synchronizer) Close() {
	s.closeOnce.Do(func() {
		s.startOnce.Do(func() {})
		close(s.stop)
		if s.started {
			<-s.done
		}
		s.cancel()
		s.persists.Wait()

		s.subsMu.Lock()
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
		s.subsMu.Unlock()
	})
}

// Key is the client session key the synchronizer serves.
func (s *Synchronizer) Key() string {
	return s.key
}

// Snapshot returns a copy of the current State.
func (s *Synchronizer) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.clone()
}

// RemainingCases is the current remaining allowance.
func (s *Synchronizer) RemainingCases() quota.Remaining {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.RemainingCases
}

// ViewGrant is the identity, role and usage day a case view is charged to.
func (s *Synchronizer) ViewGrant() (cases.Grant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.snapshot.IsLoggedIn || s.snapshot.User == nil {
		return cases.Grant{}, false
	}
	return cases.Grant{
		UserID: s.snapshot.User.ID,
		Role:   s.snapshot.Role,
		Date:   s.deps.Ledger.Today(),
	}, true
}

// Ready is closed once Loading has turned false.
func (s *Synchronizer) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until Loading is false.
func (s *Synchronizer) WaitReady(ctx context.Context) (State, error) {
	select {
	case <-s.ready:
		return s.Snapshot(), nil
	case <-s.stop:
		return s.Snapshot(), ErrClosed
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// Subscribe streams State snapshots. The channel holds only the latest state;
// intermediate states may be skipped by slow readers.
func (s *Synchronizer) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	offer(ch, s.Snapshot())
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
			s.subsMu.Unlock()
		})
	}
}

// WaitFor blocks until cond holds for the current State.
func (s *Synchronizer) WaitFor(ctx context.Context, cond func(State) bool) (State, error) {
	updates, cancel := s.Subscribe()
	defer cancel()
	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return s.Snapshot(), ErrClosed
			}
			if cond(st) {
				return st, nil
			}
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
}

// Login signs in through the identity provider. State changes only when the
// resulting SIGNED_IN event reaches the loop.
func (s *Synchronizer) Login(ctx context.Context, creds models.Credentials) (*models.Identity, error) {
	session, err := s.deps.Provider.SignInWithPassword(ctx, s.key, creds)
	if err != nil {
		return nil, err
	}
	return &session.Identity, nil
}

// Signup creates an account and signs it in.
func (s *Synchronizer) Signup(ctx context.Context, creds models.Credentials, meta models.SignUpMetadata) (*models.Identity, error) {
	session, err := s.deps.Provider.SignUp(ctx, s.key, creds, meta)
	if err != nil {
		return nil, err
	}
	return &session.Identity, nil
}

func (s *Synchronizer) Logout(ctx context.Context) error {
	return s.deps.Provider.SignOut(ctx, s.key)
}

// RefreshToken renews the identity's access token.
func (s *Synchronizer) RefreshToken(ctx context.Context) error {
	_, err := s.deps.Provider.Refresh(ctx, s.key)
	return err
}

// DecrementRemainingCases consumes one protected view. The in-memory count
// changes at once; the usage record is written in the background. Requests
// made while the profile or usage is loading are served once it has loaded.
func (s *Synchronizer) DecrementRemainingCases(ctx context.Context) (quota.Remaining, bool, error) {
	cmd := decrementCmd{reply: make(chan decrementReply, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return 0, false, err
	}
	select {
	case r := <-cmd.reply:
		return r.remaining, r.consumed, r.err
	case <-ctx.Done():
		return 0, false, ctx.Err()
	case <-s.done:
		return 0, false, ErrClosed
	}
}

// RefreshSubscription asks the payment provider for the identity's status,
// stores the resolved role on the profile and applies it. Admins keep their role.
func (s *Synchronizer) RefreshSubscription(ctx context.Context) (*models.SubscriptionStatus, State, error) {
	if s.deps.Checker == nil {
		return nil, s.Snapshot(), ErrNoChecker
	}
	view, err := s.currentIdentity(ctx)
	if err != nil {
		return nil, s.Snapshot(), err
	}
	if view.session == nil {
		return nil, s.Snapshot(), identity.ErrNotLoggedIn
	}

	status, err := s.deps.Checker.Check(ctx, view.session)
	if err != nil {
		return nil, s.Snapshot(), err
	}

	role := models.ParseRole(string(status.Role))
	if view.role == models.RoleAdmin {
		role = models.RoleAdmin
	} else if err := s.deps.Profiles.UpdateRole(ctx, view.session.Identity.ID, role); err != nil {
		s.log.Warn("Failed to store subscription role", zap.String("role", string(role)), zap.Error(err))
	}
	status.Role = role

	change := roleChange{gen: view.gen, role: role, reply: make(chan State, 1)}
	if err := s.send(ctx, change); err != nil {
		return status, s.Snapshot(), err
	}
	select {
	case st := <-change.reply:
		return status, st, nil
	case <-ctx.Done():
		return status, s.Snapshot(), ctx.Err()
	case <-s.done:
		return status, s.Snapshot(), ErrClosed
	}
}

// ReloadProfile reads the profile again, after an edit, and returns the
// state once it has been applied.
func (s *Synchronizer) ReloadProfile(ctx context.Context) (State, error) {
	cmd := profileReload{reply: make(chan error, 1)}
	if err := s.send(ctx, cmd); err != nil {
		return s.Snapshot(), err
	}
	select {
	case err := <-cmd.reply:
		if err != nil {
			return s.Snapshot(), err
		}
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	case <-s.done:
		return s.Snapshot(), ErrClosed
	}
	return s.WaitFor(ctx, func(st State) bool { return !st.Syncing })
}

// AccessToken returns the identity provider token of the signed-in identity.
func (s *Synchronizer) AccessToken(ctx context.Context) (string, error) {
	view, err := s.currentIdentity(ctx)
	if err != nil {
		return "", err
	}
	if view.session == nil {
		return "", identity.ErrNotLoggedIn
	}
	return view.session.AccessToken, nil
}

func (s *Synchronizer) currentIdentity(ctx context.Context) (identityView, error) {
	q := identityQuery{reply: make(chan identityView, 1)}
	if err := s.send(ctx, q); err != nil {
		return identityView{}, err
	}
	select {
	case v := <-q.reply:
		return v, nil
	case <-ctx.Done():
		return identityView{}, ctx.Err()
	case <-s.done:
		return identityView{}, ErrClosed
	}
}

func (s *Synchronizer) send(ctx context.Context, msg interface{}) error {
	s.Start()
	select {
	case s.inbox <- msg:
		return nil
	case <-s.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post delivers an async result to the loop unless it has stopped.
func (s *Synchronizer) post(msg interface{}) {
	select {
	case s.inbox <- msg:
	case <-s.stop:
	}
}

func (s *Synchronizer) publish(st State) {
	st = st.clone()
	s.mu.Lock()
	s.snapshot = st
	s.mu.Unlock()

	s.subsMu.Lock()
	for _, ch := range s.subs {
		offer(ch, st.clone())
	}
	s.subsMu.Unlock()
}

// offer replaces whatever is buffered in ch with st.
func offer(ch chan State, st State) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
