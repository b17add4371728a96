package app

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"promo_rotation_bot/internal/domain/destination"
	"promo_rotation_bot/internal/domain/participant"
	domainTelegram "promo_rotation_bot/internal/domain/telegram"
	idb "promo_rotation_bot/internal/infra/database"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// memParticipants is an in-memory participant.Repository that records writes.
type memParticipants struct {
	mu          sync.Mutex
	rows        map[int64]*participant.Participant
	updates     map[int64]int
	resets      int
	enabledSets int
	getCounters int
	failUpdate  map[int64]error
	failEnable  error
	listErr     error
}

func newMemParticipants(ps ...*participant.Participant) *memParticipants {
	m := &memParticipants{
		rows:       make(map[int64]*participant.Participant),
		updates:    make(map[int64]int),
		failUpdate: make(map[int64]error),
	}
	for _, p := range ps {
		cp := *p
		m.rows[p.CommunityID] = &cp
	}
	return m
}

func (m *memParticipants) GetIdentity(_ context.Context, id int64) (*participant.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, idb.ErrParticipantNotFound
	}
	return &participant.Identity{CommunityID: p.CommunityID, Name: p.Name, Enabled: p.Enabled}, nil
}

func (m *memParticipants) GetCounters(_ context.Context, id int64) (participant.Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCounters++
	p, ok := m.rows[id]
	if !ok {
		return participant.Counters{}, idb.ErrParticipantNotFound
	}
	return p.Counters, nil
}

func (m *memParticipants) ListEnabled(context.Context) ([]*participant.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*participant.Participant, 0, len(m.rows))
	for _, p := range m.rows {
		if p.Enabled {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommunityID < out[j].CommunityID })
	return out, nil
}

func (m *memParticipants) UpdateCounters(_ context.Context, id int64, c participant.Counters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpdate[id]; err != nil {
		return err
	}
	p, ok := m.rows[id]
	if !ok {
		return idb.ErrParticipantNotFound
	}
	m.updates[id]++
	p.Counters = c
	return nil
}

func (m *memParticipants) ResetDailyCounters(_ context.Context, id int64, day participant.Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return idb.ErrParticipantNotFound
	}
	if p.Counters.Date == day {
		return nil
	}
	m.resets++
	lb := p.Counters.LastBroadcastAt
	p.Counters = p.Counters.ResetFor(day)
	p.Counters.LastBroadcastAt = lb
	return nil
}

func (m *memParticipants) SetEnabled(_ context.Context, id int64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return idb.ErrParticipantNotFound
	}
	m.enabledSets++
	p.Enabled = enabled
	return nil
}

func (m *memParticipants) EnableWithReset(_ context.Context, id int64, day participant.Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEnable != nil {
		return m.failEnable
	}
	p, ok := m.rows[id]
	if !ok {
		return idb.ErrParticipantNotFound
	}
	m.enabledSets++
	p.Enabled = true
	p.Counters = p.Counters.ResetFor(day)
	return nil
}

func (m *memParticipants) row(id int64) participant.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

func (m *memParticipants) totalWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.resets + m.enabledSets
	for _, c := range m.updates {
		n += c
	}
	return n
}

type memDestinations struct {
	mu      sync.Mutex
	rows    map[int64]int64
	upserts int
	lookups int
}

func newMemDestinations(pairs ...[2]int64) *memDestinations {
	m := &memDestinations{rows: make(map[int64]int64)}
	for _, p := range pairs {
		m.rows[p[0]] = p[1]
	}
	return m
}

func (m *memDestinations) ListAll(context.Context) ([]*destination.Destination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*destination.Destination, 0, len(m.rows))
	for c, ch := range m.rows {
		out = append(out, &destination.Destination{CommunityID: c, ChannelID: ch})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommunityID < out[j].CommunityID })
	return out, nil
}

func (m *memDestinations) GetChannel(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	ch, ok := m.rows[id]
	if !ok {
		return 0, idb.ErrDestinationNotFound
	}
	return ch, nil
}

func (m *memDestinations) Upsert(_ context.Context, d *destination.Destination) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	m.rows[d.CommunityID] = d.ChannelID
	return nil
}

// fakeClient is a messaging client with per-channel behavior.
type fakeClient struct {
	mu         sync.Mutex
	missing    map[int64]bool
	resolveErr map[int64]error
	denied     map[int64]bool
	sendErr    map[int64]error
	panicOn    map[int64]bool
	sent       []sentPromo
}

type sentPromo struct {
	SenderID  int64
	ChannelID int64
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		missing:    map[int64]bool{},
		resolveErr: map[int64]error{},
		denied:     map[int64]bool{},
		sendErr:    map[int64]error{},
		panicOn:    map[int64]bool{},
	}
}

func (f *fakeClient) ResolveChannel(_ context.Context, id int64) (*domainTelegram.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.resolveErr[id]; err != nil {
		return nil, err
	}
	if f.missing[id] {
		return nil, nil
	}
	return &domainTelegram.Channel{ID: id, Type: "channel"}, nil
}

func (f *fakeClient) CanPost(_ context.Context, ch *domainTelegram.Channel) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.denied[ch.ID], nil
}

func (f *fakeClient) SendPromotion(_ context.Context, ch *domainTelegram.Channel, senderID int64, _ participant.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn[ch.ID] {
		panic("boom")
	}
	if err := f.sendErr[ch.ID]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentPromo{SenderID: senderID, ChannelID: ch.ID})
	return nil
}

func (f *fakeClient) sends() []sentPromo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentPromo, len(f.sent))
	copy(out, f.sent)
	return out
}
