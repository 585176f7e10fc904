package service

import (
	"context"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/db"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/db/dbtest"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/network"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/remote"
)

var noRetry = network.RetryPolicy{}

func strPtr(s string) *string { return &s }

func stamp(year int) *int64 {
	ts := time.Date(year, time.March, 1, 0, 0, 0, 0, time.UTC).Unix()
	return &ts
}

type fakeCountries struct {
	calls int32
	resp  *remote.CountryResponse
	ip    *remote.IPInfo
	err   error
}

func (f *fakeCountries) CountryList(ctx context.Context) <-chan network.Response[*remote.CountryResponse] {
	atomic.AddInt32(&f.calls, 1)
	return network.Stream(ctx, noRetry, func(context.Context) (*remote.CountryResponse, error) {
		return f.resp, f.err
	})
}

func (f *fakeCountries) IPInfo(ctx context.Context) <-chan network.Response[*remote.IPInfo] {
	return network.Stream(ctx, noRetry, func(context.Context) (*remote.IPInfo, error) {
		return f.ip, f.err
	})
}

type fakeBooks struct {
	items []remote.BookItem
	err   error
}

func (f *fakeBooks) BooksInfo(ctx context.Context, opts ...network.StreamOption) <-chan network.Response[[]remote.BookItem] {
	return network.Stream(ctx, noRetry, func(context.Context) ([]remote.BookItem, error) {
		return f.items, f.err
	}, opts...)
}

func newTestRegistration(t *testing.T, source CountrySource) (*Registration, *SessionManager) {
	gdb := dbtest.New(t)
	l := zap.NewNop().Sugar()
	sessions := newSessionManager(db.NewSessions(gdb), l)
	return newRegistration(bcrypt.MinCost, db.NewUsers(gdb), db.NewCountries(gdb), source, sessions, l), sessions
}

func TestMergeAndSort(t *testing.T) {
	books := []db.Book{
		{UID: "old", PublishedChapterDate: stamp(1999)},
		{UID: "undated"},
		{UID: "new-1", PublishedChapterDate: stamp(2010)},
		{UID: "new-2", PublishedChapterDate: stamp(2010)},
		{UID: "mid", PublishedChapterDate: stamp(2005)},
	}
	metadata := []db.BookMetadata{
		{UID: "mid", UserID: 1, IsFavourite: true},
		{UID: "old", UserID: 2, IsFavourite: true},
		{UID: "gone", UserID: 1, IsFavourite: true},
	}

	got := MergeAndSort(books, metadata, 1)

	uids := make([]string, len(got))
	for i := range got {
		uids[i] = got[i].Book.UID
	}
	assert.Equal(t, []string{"new-1", "new-2", "mid", "old", "undated"}, uids)
	assert.True(t, got[2].IsFavourite())
	assert.Nil(t, got[3].Metadata, "rows of other users are not attached")
	assert.Len(t, got, len(books), "dangling metadata adds nothing")
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"sci-fi", "classic"}, SplitTags("sci-fi, classic"))
	assert.Equal(t, []string{"a"}, SplitTags(" a ,, "))
	assert.Empty(t, SplitTags(""))

	b := BookWithMetadata{Metadata: &db.BookMetadata{Tags: strPtr("x, y")}}
	assert.Equal(t, []string{"x", "y"}, b.Tags())
	assert.Empty(t, BookWithMetadata{}.Tags())
}

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}-\d{13}$`), id)
	assert.NotEqual(t, id, NewSessionID())
}

func receive(t *testing.T, ch <-chan SessionEvent) SessionEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no session event")
		return SessionEvent{}
	}
}

func TestSessionManager(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := newSessionManager(db.NewSessions(dbtest.New(t)), zap.NewNop().Sugar())
	user := &db.User{GormForkedModel: db.GormForkedModel{ID: 7}, Email: "a@b.com"}

	events, err := m.Observe(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionNotActive, receive(t, events).State)

	session, err := m.Save(ctx, user)
	require.NoError(t, err)
	ev := receive(t, events)
	assert.Equal(t, SessionActive, ev.State)
	assert.Equal(t, session.SessionID, ev.Session.SessionID)

	current, err := m.Current(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.UserID)

	require.NoError(t, m.Clear(ctx, session.SessionID))
	assert.Equal(t, SessionNotActive, receive(t, events).State)

	_, err = m.Current(ctx, session.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Clear(ctx, session.SessionID), ErrSessionNotFound)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestSessionManager_ObserveActive(t *testing.T) {
	ctx := context.Background()
	m := newSessionManager(db.NewSessions(dbtest.New(t)), zap.NewNop().Sugar())

	session, err := m.Save(ctx, &db.User{GormForkedModel: db.GormForkedModel{ID: 3}, Email: "c@d.com"})
	require.NoError(t, err)

	obsCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := m.Observe(obsCtx, 3)
	require.NoError(t, err)

	ev := receive(t, events)
	assert.Equal(t, SessionActive, ev.State)
	assert.Equal(t, session.SessionID, ev.Session.SessionID)
}

func TestSessionManager_ReplacedSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := newSessionManager(db.NewSessions(dbtest.New(t)), zap.NewNop().Sugar())
	ended := make([]string, 0)
	m.OnEnd(func(id string) { ended = append(ended, id) })
	user := &db.User{GormForkedModel: db.GormForkedModel{ID: 5}, Email: "e@f.com"}

	first, err := m.Save(ctx, user)
	require.NoError(t, err)

	events, err := m.Observe(ctx, user.ID)
	require.NoError(t, err)
	ev := receive(t, events)
	state, ok := ev.StateFor(first.SessionID)
	require.True(t, ok)
	assert.Equal(t, SessionActive, state)

	second, err := m.Save(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{first.SessionID}, ended)

	ev = receive(t, events)
	assert.Equal(t, SessionNotActive, ev.State)
	assert.Equal(t, first.SessionID, ev.Session.SessionID)
	state, ok = ev.StateFor(first.SessionID)
	require.True(t, ok)
	assert.Equal(t, SessionNotActive, state)
	_, ok = ev.StateFor(second.SessionID)
	assert.False(t, ok, "the end of an earlier session is not news to the new one")

	ev = receive(t, events)
	assert.Equal(t, SessionActive, ev.State)
	state, _ = ev.StateFor(first.SessionID)
	assert.Equal(t, SessionNotActive, state)
	state, _ = ev.StateFor(second.SessionID)
	assert.Equal(t, SessionActive, state)

	require.NoError(t, m.Clear(ctx, second.SessionID))
	assert.Equal(t, []string{first.SessionID, second.SessionID}, ended)
}

func TestSessionManager_ReleasesObservers(t *testing.T) {
	m := newSessionManager(db.NewSessions(dbtest.New(t)), zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	events, err := m.Observe(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, m.observers())

	cancel()
	for range events {
	}
	require.Eventually(t, func() bool { return m.observers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestRegistration_Signup(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistration(t, &fakeCountries{})

	user, err := r.Signup(ctx, SignupParams{Username: "raj", Email: "raj@mail.com", Password: "Passw0rd!", Country: "India"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "Passw0rd!", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Passw0rd!")))

	t.Run("email taken", func(t *testing.T) {
		_, err := r.Signup(ctx, SignupParams{Username: "other", Email: "raj@mail.com", Password: "Passw0rd!"})
		assert.ErrorIs(t, err, ErrUserTaken)
	})

	t.Run("username taken", func(t *testing.T) {
		_, err := r.Signup(ctx, SignupParams{Username: "raj", Email: "new@mail.com", Password: "Passw0rd!"})
		assert.ErrorIs(t, err, ErrUserTaken)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := r.Signup(ctx, SignupParams{Email: "x@mail.com", Password: "password"})
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("bad email", func(t *testing.T) {
		_, err := r.Signup(ctx, SignupParams{Email: "x@mail", Password: "Passw0rd!"})
		assert.ErrorIs(t, err, ErrInvalidEmail)
	})
}

// lookupMisses hides existing users from the pre-insert check, as a
// concurrent signup that passed the check first would see them.
type lookupMisses struct {
	*db.Users
}

func (lookupMisses) GetByEmailOrUsername(context.Context, string, string) (*db.User, error) {
	return nil, db.ErrNotFound
}

func TestRegistration_SignupRace(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	l := zap.NewNop().Sugar()
	users := lookupMisses{Users: db.NewUsers(gdb)}
	r := newRegistration(bcrypt.MinCost, users, db.NewCountries(gdb), &fakeCountries{}, newSessionManager(db.NewSessions(gdb), l), l)

	_, err := r.Signup(ctx, SignupParams{Username: "raj", Email: "raj@mail.com", Password: "Passw0rd!"})
	require.NoError(t, err)

	_, err = r.Signup(ctx, SignupParams{Username: "raj", Email: "raj@mail.com", Password: "Passw0rd!"})
	assert.ErrorIs(t, err, ErrUserTaken)
}

func TestRegistration_Login(t *testing.T) {
	ctx := context.Background()
	r, sessions := newTestRegistration(t, &fakeCountries{})

	_, err := r.Signup(ctx, SignupParams{Email: "raj@mail.com", Password: "Passw0rd!"})
	require.NoError(t, err)

	_, _, err = r.Login(ctx, "nobody@mail.com", "Passw0rd!")
	assert.ErrorIs(t, err, ErrLoginUserNotFound)

	_, _, err = r.Login(ctx, "raj@mail.com", "Passw0rd?")
	assert.ErrorIs(t, err, ErrLoginPasswordDoesNotMatch)

	user, first, err := r.Login(ctx, "raj@mail.com", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, "raj@mail.com", user.Username)
	assert.Equal(t, user.ID, first.UserID)

	_, second, err := r.Login(ctx, "raj@mail.com", "Passw0rd!")
	require.NoError(t, err)
	_, err = sessions.Current(ctx, first.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound, "a new login replaces the old session")

	require.NoError(t, r.Logout(ctx, second.SessionID))
	_, err = sessions.Current(ctx, second.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRegistration_LoginByUsername(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistration(t, &fakeCountries{})

	created, err := r.Signup(ctx, SignupParams{Username: "raj", Email: "raj@mail.com", Password: "Passw0rd!"})
	require.NoError(t, err)

	user, session, err := r.Login(ctx, "raj", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Equal(t, created.ID, session.UserID)

	user, _, err = r.Login(ctx, " raj@mail.com ", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, _, err = r.Login(ctx, "raj", "Passw0rd?")
	assert.ErrorIs(t, err, ErrLoginPasswordDoesNotMatch)

	_, _, err = r.Login(ctx, "rajesh", "Passw0rd!")
	assert.ErrorIs(t, err, ErrLoginUserNotFound)
}

func TestRegistration_Countries(t *testing.T) {
	ctx := context.Background()
	source := &fakeCountries{
		resp: &remote.CountryResponse{Data: map[string]remote.Country{
			"IN": {Country: "India", Region: "Asia"},
			"DZ": {Country: "Algeria", Region: "Africa"},
			"XX": {},
		}},
		ip: &remote.IPInfo{Country: "India"},
	}
	r, _ := newTestRegistration(t, source)

	countries, err := r.Countries(ctx)
	require.NoError(t, err)
	require.Len(t, countries, 2)
	assert.Equal(t, "Algeria", countries[0].Name)

	countries, err = r.Countries(ctx)
	require.NoError(t, err)
	assert.Len(t, countries, 2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&source.calls), "second call is served locally")

	country, err := r.DefaultCountry(ctx)
	require.NoError(t, err)
	assert.Equal(t, "India", country)
}

func TestRegistration_CountriesFailure(t *testing.T) {
	r, _ := newTestRegistration(t, &fakeCountries{err: network.ErrNoNetwork})

	_, err := r.Countries(context.Background())
	var failure *network.APIFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, network.NoInternetErrorCode, failure.Code)
}

func newTestDashboard(t *testing.T, source BooksSource) *Dashboard {
	gdb := dbtest.New(t)
	return newDashboard(db.NewBooks(gdb), db.NewMetadata(gdb), source, zap.NewNop().Sugar())
}

func catalog() []remote.BookItem {
	return []remote.BookItem{
		{ID: "a", Title: strPtr("Old Tales"), PublishedChapterDate: stamp(1999)},
		{ID: "b", Title: strPtr("New Tales"), PublishedChapterDate: stamp(2020)},
		{ID: "c", Title: strPtr("Middle"), PublishedChapterDate: stamp(2010)},
		{ID: "", Title: strPtr("no id")},
		{ID: "b", Title: strPtr("duplicate")},
	}
}

func TestDashboard_Sync(t *testing.T) {
	ctx := context.Background()
	s := newTestDashboard(t, &fakeBooks{items: catalog()})

	n, err := s.SyncBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	count, err := s.BooksCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	t.Run("failure", func(t *testing.T) {
		failing := newTestDashboard(t, &fakeBooks{err: network.ErrNoNetwork})
		_, err := failing.SyncBooks(ctx, network.WithoutLoading())
		assert.Error(t, err)
	})
}

func TestDashboard_Listing(t *testing.T) {
	ctx := context.Background()
	s := newTestDashboard(t, &fakeBooks{items: catalog()})
	_, err := s.SyncBooks(ctx)
	require.NoError(t, err)

	all, err := s.AllBooks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "b", all[0].Book.UID)
	assert.Equal(t, "c", all[1].Book.UID)
	assert.Equal(t, "a", all[2].Book.UID)

	found, err := s.Search(ctx, 1, "tales")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "b", found[0].Book.UID)

	found, err = s.Search(ctx, 1, "  ")
	require.NoError(t, err)
	assert.Len(t, found, 3)

	byYear, err := s.FilterByYear(ctx, 1, 2010)
	require.NoError(t, err)
	require.Len(t, byYear, 1)
	assert.Equal(t, "c", byYear[0].Book.UID)

	years, err := s.Years(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2020, 2010, 1999}, years)
}

func TestDashboard_Favorites(t *testing.T) {
	ctx := context.Background()
	s := newTestDashboard(t, &fakeBooks{items: catalog()})
	_, err := s.SyncBooks(ctx)
	require.NoError(t, err)

	require.NoError(t, s.MarkFavorite(ctx, 1, "a"))
	require.NoError(t, s.MarkFavorite(ctx, 1, "b"))
	require.NoError(t, s.MarkFavorite(ctx, 2, "c"))

	favs, err := s.Favorites(ctx, 1)
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, "b", favs[0].Book.UID)
	assert.Equal(t, "a", favs[1].Book.UID)

	_, err = s.UpdateTags(ctx, 1, "a", " classic, short ")
	require.NoError(t, err)
	require.NoError(t, s.UnmarkFavorite(ctx, 1, "a"))

	all, err := s.AllBooks(ctx, 1)
	require.NoError(t, err)
	a := all[2]
	assert.False(t, a.IsFavourite())
	assert.Equal(t, []string{"classic", "short"}, a.Tags(), "unfavoriting keeps tags")

	m, err := s.UpdateTags(ctx, 1, "b", "")
	require.NoError(t, err)
	assert.True(t, m.IsFavourite, "tag edits keep the flag")
	assert.Nil(t, m.Tags)

	require.NoError(t, s.UnmarkFavorite(ctx, 1, "c"), "untouched book is a no-op")

	_, err = s.SetFavorite(ctx, 1, "missing", true)
	assert.ErrorIs(t, err, ErrBookNotFound)
	_, err = s.UpdateTags(ctx, 1, "missing", "x")
	assert.ErrorIs(t, err, ErrBookNotFound)
}
