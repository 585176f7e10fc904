package viewmodel

import (
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/db"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/service"
)

var Module = fx.Provide(NewRegistry)

// Registry keeps one Dashboard per session id. A dashboard is dropped when
// its session ends.
type Registry struct {
	svc    *service.Dashboard
	logger *zap.SugaredLogger

	mu         sync.Mutex
	dashboards map[string]*Dashboard
}

func NewRegistry(svc *service.Dashboard, sessions *service.SessionManager, l *zap.SugaredLogger) *Registry {
	r := &Registry{
		svc:        svc,
		logger:     l,
		dashboards: make(map[string]*Dashboard),
	}
	sessions.OnEnd(r.Drop)
	return r
}

func (r *Registry) Get(session *db.Session) *Dashboard {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.dashboards[session.SessionID]
	if !ok {
		d = NewDashboard(r.svc, session.UserID, r.logger)
		r.dashboards[session.SessionID] = d
	}
	return d
}

// Drop forgets the dashboard of a session and closes its subscribers.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	d, ok := r.dashboards[sessionID]
	delete(r.dashboards, sessionID)
	r.mu.Unlock()

	if ok {
		d.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dashboards)
}
