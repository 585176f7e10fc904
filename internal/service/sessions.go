package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/db"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/observe"
)

type SessionState int

const (
	SessionNotActive SessionState = iota
	SessionActive
)

func (s SessionState) String() string {
	if s == SessionActive {
		return "active"
	}
	return "not_active"
}

// SessionEvent carries the session it concerns. NotActive events name the
// session that ended, or nil when the user has none.
type SessionEvent struct {
	State   SessionState
	Session *db.Session
}

// StateFor reports what ev means for the session with the given id. A newer
// session of the same user means this one is over. ok is false when ev only
// concerns an earlier session.
func (ev SessionEvent) StateFor(sessionID string) (state SessionState, ok bool) {
	if ev.Session == nil || ev.Session.SessionID == sessionID {
		return ev.State, true
	}
	if ev.State == SessionActive {
		return SessionNotActive, true
	}
	return SessionNotActive, false
}

type SessionStore interface {
	Save(ctx context.Context, session *db.Session) error
	Get(ctx context.Context, sessionID string) (*db.Session, error)
	GetForUser(ctx context.Context, userID uint64) (*db.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionManager persists sessions and tells observers when a user signs in
// or out.
type SessionManager struct {
	store  SessionStore
	logger *zap.SugaredLogger

	mu       sync.Mutex
	channels map[uint64]*observe.Broadcaster[SessionEvent]
	onEnd    []func(sessionID string)
}

func NewSessionManager(sessions *db.Sessions, l *zap.SugaredLogger) *SessionManager {
	return newSessionManager(sessions, l)
}

func newSessionManager(store SessionStore, l *zap.SugaredLogger) *SessionManager {
	return &SessionManager{
		store:    store,
		logger:   l,
		channels: make(map[uint64]*observe.Broadcaster[SessionEvent]),
	}
}

// NewSessionID returns a random id suffixed with the current unix millis.
func NewSessionID() string {
	return uuid.New().String() + "-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// OnEnd registers fn to run with the id of every session that is cleared or
// replaced by a newer login.
func (m *SessionManager) OnEnd(fn func(sessionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnd = append(m.onEnd, fn)
}

// Save starts a new session for user. Any earlier session of the user stops
// being valid and its observers see it end.
func (m *SessionManager) Save(ctx context.Context, user *db.User) (*db.Session, error) {
	prev, err := m.store.GetForUser(ctx, user.ID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	session := &db.Session{
		SessionID: NewSessionID(),
		UserID:    user.ID,
		UserName:  user.Email,
	}
	if err := m.store.Save(ctx, session); err != nil {
		return nil, err
	}

	if prev != nil {
		m.end(prev)
	}
	m.publish(user.ID, SessionEvent{State: SessionActive, Session: session})
	return session, nil
}

// Clear ends the session with the given id.
func (m *SessionManager) Clear(ctx context.Context, sessionID string) error {
	session, err := m.Current(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return err
	}

	m.end(session)
	return nil
}

func (m *SessionManager) end(session *db.Session) {
	m.publish(session.UserID, SessionEvent{State: SessionNotActive, Session: session})

	m.mu.Lock()
	hooks := append([]func(string){}, m.onEnd...)
	m.mu.Unlock()
	for _, fn := range hooks {
		fn(session.SessionID)
	}
}

func (m *SessionManager) Current(ctx context.Context, sessionID string) (*db.Session, error) {
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// Observe streams the session state of a user, starting with the current
// one. The channel is closed when ctx is done.
func (m *SessionManager) Observe(ctx context.Context, userID uint64) (<-chan SessionEvent, error) {
	sub, unsubscribe := m.subscribe(userID)

	initial := SessionEvent{State: SessionNotActive}
	session, err := m.store.GetForUser(ctx, userID)
	switch {
	case err == nil:
		initial = SessionEvent{State: SessionActive, Session: session}
	case !errors.Is(err, db.ErrNotFound):
		unsubscribe()
		return nil, err
	}

	out := make(chan SessionEvent, 4)
	out <- initial
	go func() {
		defer close(out)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (m *SessionManager) subscribe(userID uint64) (<-chan SessionEvent, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.channels[userID]
	if !ok {
		b = observe.NewBroadcaster[SessionEvent]()
		m.channels[userID] = b
	}
	sub, unsubscribe := b.Subscribe(4)

	return sub, func() {
		unsubscribe()

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.channels[userID] == b && b.Len() == 0 {
			delete(m.channels, userID)
		}
	}
}

// observers reports how many users have a live broadcaster.
func (m *SessionManager) observers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels)
}

func (m *SessionManager) publish(userID uint64, ev SessionEvent) {
	m.mu.Lock()
	b := m.channels[userID]
	m.mu.Unlock()

	n := 0
	if b != nil {
		n = b.Publish(ev)
	}
	m.logger.Debugw("Session state changed.", "user_id", userID, "state", ev.State.String(), "observers", n)
}
