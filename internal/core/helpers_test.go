package core

import (
	"context"
	"errors"
	"time"
)

// t0 is the session epoch used by the scenario tests
var t0 = time.UnixMilli(0).UTC()

func at(ms int64) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

type recordingSink struct {
	events []Event
	fail   bool
}

func (r *recordingSink) Emit(ctx context.Context, e Event) error {
	r.events = append(r.events, e)
	if r.fail {
		return errors.New("sink down")
	}
	return nil
}

func (r *recordingSink) ofType(t EventType) []Event {
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeDeadline struct {
	scheduledID string
	scheduledAt *time.Time
	schedules   int
	cancels     int
}

func (f *fakeDeadline) Schedule(sessionID string, when time.Time) {
	f.schedules++
	f.scheduledID = sessionID
	f.scheduledAt = &when
}

func (f *fakeDeadline) Cancel() {
	f.cancels++
	f.scheduledAt = nil
}

type fixture struct {
	grants   *AccessGrantStore
	deadline *fakeDeadline
	sink     *recordingSink
	sessions *SessionManager
	gate     *NavigationGate
}

func testCatalog() Catalog {
	return Catalog{
		{ID: CategorySocial, Domains: []string{"facebook.com", "twitter.com"}, Keywords: []string{"instagram"}, Loaded: true},
		{ID: CategoryShopping, Domains: []string{"amazon.com"}, Keywords: []string{"shop"}, Loaded: true},
		{ID: CategoryNews, Domains: []string{"cnn.com"}, Keywords: []string{"news"}, Loaded: true},
	}
}

func newFixture(settings Settings) *fixture {
	f := &fixture{
		grants:   NewAccessGrantStore(),
		deadline: &fakeDeadline{},
		sink:     &recordingSink{},
	}
	ids := 0
	f.sessions = NewSessionManager(SessionManagerConfig{
		Grants:     f.grants,
		Deadline:   f.deadline,
		Sink:       f.sink,
		Milestones: DefaultMilestones,
		NewID: func() string {
			ids++
			return "sess_" + string(rune('0'+ids))
		},
	})
	f.gate = NewNavigationGate(GateConfig{
		Sessions: f.sessions,
		Grants:   f.grants,
		Policy:   NewPolicyStore(testCatalog(), settings),
		Sink:     f.sink,
	})
	return f
}
