package viewmodel

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/network"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/observe"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/service"
)

var ErrNotListed = errors.New("book is not in the visible list")

type Tab string

const (
	TabHome      Tab = "home"
	TabFavorites Tab = "favorites"
)

type EventKind string

const (
	EventLoading EventKind = "loading"
	EventError   EventKind = "error"
	EventBooks   EventKind = "books"
	EventYears   EventKind = "years"
)

type Event struct {
	Kind    EventKind
	Loading bool
	Failure *network.APIFailure
	Tab     Tab
	Books   []service.BookWithMetadata
	Years   []int
}

// State is what the dashboard screen shows. Year is 0 when no year filter
// is applied.
type State struct {
	Tab     Tab
	Query   string
	Year    int
	Books   []service.BookWithMetadata
	Years   []int
	Loading bool
	Failure *network.APIFailure
}

// Dashboard holds the screen state of one signed-in session.
type Dashboard struct {
	svc    *service.Dashboard
	userID uint64
	logger *zap.SugaredLogger
	events *observe.Broadcaster[Event]

	mu    sync.Mutex
	state State
}

func NewDashboard(svc *service.Dashboard, userID uint64, l *zap.SugaredLogger) *Dashboard {
	return &Dashboard{
		svc:    svc,
		userID: userID,
		logger: l,
		events: observe.NewBroadcaster[Event](),
		state: State{
			Tab:   TabHome,
			Books: []service.BookWithMetadata{},
			Years: []int{},
		},
	}
}

// Load fills the local catalog on first use, then shows the home tab and
// the year picker.
func (d *Dashboard) Load(ctx context.Context) error {
	count, err := d.svc.BooksCount(ctx)
	if err != nil {
		return err
	}

	if count == 0 {
		if err := d.fetch(ctx); err != nil {
			return err
		}
	}

	years, err := d.svc.Years(ctx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.state.Years = years
	d.mu.Unlock()
	d.events.Publish(Event{Kind: EventYears, Years: years})

	return d.ShowHome(ctx)
}

func (d *Dashboard) fetch(ctx context.Context) error {
	var failure *network.APIFailure
	for r := range d.svc.FetchBooks(ctx) {
		switch r.Kind {
		case network.KindLoading:
			d.mu.Lock()
			d.state.Loading = r.Loading
			d.mu.Unlock()
			d.events.Publish(Event{Kind: EventLoading, Loading: r.Loading})
		case network.KindError:
			failure = r.Failure
			d.mu.Lock()
			d.state.Failure = failure
			d.mu.Unlock()
			d.events.Publish(Event{Kind: EventError, Failure: failure})
		case network.KindSuccess:
			if err := d.svc.CacheBooks(ctx, r.Data); err != nil {
				return err
			}
		}
	}
	if failure != nil {
		d.logger.Warnw("Books fetch failed.", "user_id", d.userID, "message", failure.Message, "code", failure.Code)
		return failure
	}

	d.mu.Lock()
	d.state.Failure = nil
	d.mu.Unlock()
	return nil
}

func (d *Dashboard) ShowHome(ctx context.Context) error {
	books, err := d.svc.AllBooks(ctx, d.userID)
	if err != nil {
		return err
	}
	d.show(TabHome, "", 0, books)
	return nil
}

func (d *Dashboard) ShowFavorites(ctx context.Context) error {
	books, err := d.svc.Favorites(ctx, d.userID)
	if err != nil {
		return err
	}
	d.show(TabFavorites, "", 0, books)
	return nil
}

func (d *Dashboard) Search(ctx context.Context, query string) error {
	books, err := d.svc.Search(ctx, d.userID, query)
	if err != nil {
		return err
	}
	d.show(TabHome, query, 0, books)
	return nil
}

// FilterByYear narrows the home tab to one year; year 0 lifts the filter.
func (d *Dashboard) FilterByYear(ctx context.Context, year int) error {
	if year == 0 {
		return d.ShowHome(ctx)
	}
	books, err := d.svc.FilterByYear(ctx, d.userID, year)
	if err != nil {
		return err
	}
	d.show(TabHome, "", year, books)
	return nil
}

// ToggleFavorite flips the flag of a visible book and returns the new value.
// On the favorites tab an unfavorited book leaves the list.
func (d *Dashboard) ToggleFavorite(ctx context.Context, uid string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.indexOf(uid)
	if idx < 0 {
		return false, ErrNotListed
	}

	favourite := !d.state.Books[idx].IsFavourite()
	m, err := d.svc.SetFavorite(ctx, d.userID, uid, favourite)
	if err != nil {
		return false, err
	}

	books := append([]service.BookWithMetadata{}, d.state.Books...)
	if d.state.Tab == TabFavorites && !favourite {
		books = append(books[:idx], books[idx+1:]...)
	} else {
		books[idx].Metadata = m
	}
	d.state.Books = books
	d.events.Publish(Event{Kind: EventBooks, Tab: d.state.Tab, Books: books})

	return favourite, nil
}

func (d *Dashboard) SaveTags(ctx context.Context, uid, tags string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.svc.UpdateTags(ctx, d.userID, uid, tags)
	if err != nil {
		return err
	}

	if idx := d.indexOf(uid); idx >= 0 {
		books := append([]service.BookWithMetadata{}, d.state.Books...)
		books[idx].Metadata = m
		d.state.Books = books
		d.events.Publish(Event{Kind: EventBooks, Tab: d.state.Tab, Books: books})
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (d *Dashboard) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.state
	s.Books = append([]service.BookWithMetadata{}, d.state.Books...)
	s.Years = append([]int{}, d.state.Years...)
	return s
}

func (d *Dashboard) Subscribe(buffer int) (<-chan Event, func()) {
	return d.events.Subscribe(buffer)
}

func (d *Dashboard) Close() {
	d.events.Close()
}

func (d *Dashboard) show(tab Tab, query string, year int, books []service.BookWithMetadata) {
	d.mu.Lock()
	d.state.Tab = tab
	d.state.Query = query
	d.state.Year = year
	d.state.Books = books
	d.mu.Unlock()

	d.events.Publish(Event{Kind: EventBooks, Tab: tab, Books: books})
}

// indexOf expects d.mu to be held.
func (d *Dashboard) indexOf(uid string) int {
	for i := range d.state.Books {
		if d.state.Books[i].Book.UID == uid {
			return i
		}
	}
	return -1
}
