package borrowing

import (
	"sync"
	"sync/atomic"
	"time"
)

// IssueForm is one librarian's issue form. The in-flight flag is claimed with
// compare-and-swap before any remote call.
type IssueForm struct {
	inFlight atomic.Bool
	// gen changes on every reset so a settling request cannot clear a newer claim.
	gen atomic.Uint64

	mu    sync.Mutex
	draft *IssueRequest
}

// tryBegin claims the form. It returns false while another submit is in flight.
func (f *IssueForm) tryBegin() (uint64, bool) {
	if !f.inFlight.CompareAndSwap(false, true) {
		return 0, false
	}
	return f.gen.Load(), true
}

// settle releases the claim taken at generation g.
func (f *IssueForm) settle(g uint64) {
	if f.gen.Load() == g {
		f.inFlight.Store(false)
	}
}

func (f *IssueForm) InFlight() bool { return f.inFlight.Load() }

func (f *IssueForm) keep(in IssueRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = &in
}

// Draft returns the last submitted input that has not been cleared.
func (f *IssueForm) Draft() (IssueRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draft == nil {
		return IssueRequest{}, false
	}
	return *f.draft, true
}

// Reset clears the input and releases the guard unconditionally.
func (f *IssueForm) Reset() {
	f.mu.Lock()
	f.draft = nil
	f.mu.Unlock()
	f.gen.Add(1)
	f.inFlight.Store(false)
}

func (f *IssueForm) clearIfGen(g uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen.Load() == g {
		f.draft = nil
	}
}

// Forms keeps one IssueForm per session. A form unused for longer than the
// session lifetime is dropped on a later Get unless it is in flight.
type Forms struct {
	mu    sync.Mutex
	forms map[string]*formEntry
	ttl   time.Duration
	now   func() time.Time
}

type formEntry struct {
	form *IssueForm
	seen time.Time
}

// NewForms keeps forms for ttl after their last use. ttl <= 0 keeps them
// until Drop.
func NewForms(ttl time.Duration) *Forms {
	return &Forms{forms: map[string]*formEntry{}, ttl: ttl, now: time.Now}
}

func (fs *Forms) Get(sessionID string) *IssueForm {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	now := fs.now()
	fs.sweep(now)
	e, ok := fs.forms[sessionID]
	if !ok {
		e = &formEntry{form: &IssueForm{}}
		fs.forms[sessionID] = e
	}
	e.seen = now
	return e.form
}

// 期限切れセッションのフォームを掃除する
func (fs *Forms) sweep(now time.Time) {
	if fs.ttl <= 0 {
		return
	}
	for id, e := range fs.forms {
		if now.Sub(e.seen) > fs.ttl && !e.form.InFlight() {
			delete(fs.forms, id)
		}
	}
}

// Drop forgets a session's form, used on logout.
func (fs *Forms) Drop(sessionID string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.forms, sessionID)
}
