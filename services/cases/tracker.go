package cases

import (
	"context"
	"sync"

	"courtwise/models"
	"courtwise/services/quota"
)

// Grant names who a case view was charged to. A recorded view carries over
// only while the viewer still presents the same grant.
type Grant struct {
	UserID string
	Role   models.Role
	Date   string
}

// openCase is the view a session last paid for.
type openCase struct {
	mu     sync.Mutex
	caseID string
	grant  Grant
}

// ViewTracker remembers, per client session, the case the session last
// opened. Reloading that case is the same navigation and does not consume
// again; opening any other case does, and so does the same case once the
// signed-in identity, its role or the usage day has changed.
type ViewTracker struct {
	mu   sync.Mutex
	open map[string]*openCase
}

func NewViewTracker() *ViewTracker {
	return &ViewTracker{open: make(map[string]*openCase)}
}

func (t *ViewTracker) entry(key string) *openCase {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.open[key]
	if !ok {
		e = &openCase{}
		t.open[key] = e
	}
	return e
}

func (t *ViewTracker) lookup(key string) *openCase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open[key]
}

// Consume charges one view for caseID unless it is the viewer's current case
// under the viewer's current grant. Concurrent opens on one session are
// serialized so a navigation is charged once.
func (t *ViewTracker) Consume(ctx context.Context, viewer Viewer, caseID string) (quota.Remaining, error) {
	grant, signedIn := viewer.ViewGrant()
	e := t.entry(viewer.Key())
	e.mu.Lock()
	defer e.mu.Unlock()

	if signedIn && e.caseID == caseID && e.grant == grant {
		return viewer.RemainingCases(), nil
	}

	remaining, consumed, err := viewer.DecrementRemainingCases(ctx)
	if err != nil {
		return remaining, err
	}
	if !consumed && !remaining.IsUnlimited() {
		e.caseID, e.grant = "", Grant{}
		return remaining, quota.ErrQuotaExhausted
	}

	if grant, signedIn = viewer.ViewGrant(); !signedIn {
		e.caseID, e.grant = "", Grant{}
		return remaining, nil
	}
	e.caseID, e.grant = caseID, grant
	return remaining, nil
}

// Covers reports whether the viewer's current grant still covers caseID.
func (t *ViewTracker) Covers(viewer Viewer, caseID string) bool {
	grant, signedIn := viewer.ViewGrant()
	if !signedIn {
		return false
	}
	e := t.lookup(viewer.Key())
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.caseID == caseID && e.grant == grant
}

// Granted reports whether caseID is the case recorded as open for the
// session, whoever it was granted to.
func (t *ViewTracker) Granted(key, caseID string) bool {
	e := t.lookup(key)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.caseID != "" && e.caseID == caseID
}

// Forget drops what the tracker knows about a session.
func (t *ViewTracker) Forget(key string) {
	t.mu.Lock()
	delete(t.open, key)
	t.mu.Unlock()
}
