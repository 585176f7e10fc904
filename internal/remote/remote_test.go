package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/config"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/network"
)

func newUpstream(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/books", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"b1","title":"Dune","score":4.5,"popularity":10,"publishedChapterDate":1000000000,"image":"http://img/1"},
			{"id":"b2","title":null}
		]`))
	})
	mux.HandleFunc("/countries", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","data":{"IN":{"country":"India","region":"Asia"},"DZ":{"country":"Algeria","region":"Africa"}}}`))
	})
	mux.HandleFunc("/ip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","country":"India","countryCode":"IN"}`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	mux.HandleFunc("/denied", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"forbidden"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(base string) *config.Config {
	return &config.Config{
		BooksURL:     base + "/books",
		CountriesURL: base + "/countries",
		IPInfoURL:    base + "/ip",
		HTTPTimeout:  5 * time.Second,
		RemoteRPS:    100,
		RemoteBurst:  10,
	}
}

func TestBooksSource(t *testing.T) {
	srv := newUpstream(t)
	cfg := testConfig(srv.URL)
	src := NewBooksSource(NewClient(cfg, zap.NewNop().Sugar()), cfg)

	books, err := src.GetBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "b1", books[0].ID)
	assert.Equal(t, "Dune", *books[0].Title)
	assert.EqualValues(t, 1000000000, *books[0].PublishedChapterDate)
	assert.Nil(t, books[1].Title)
}

func TestRegistrationSource(t *testing.T) {
	srv := newUpstream(t)
	cfg := testConfig(srv.URL)
	src := NewRegistrationSource(NewClient(cfg, zap.NewNop().Sugar()), cfg)

	countries, err := src.GetCountries(context.Background())
	require.NoError(t, err)
	assert.Len(t, countries.Data, 2)
	assert.Equal(t, Country{Country: "India", Region: "Asia"}, countries.Data["IN"])

	info, err := src.GetIPInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "India", info.Country)
}

func TestClientErrors(t *testing.T) {
	srv := newUpstream(t)
	cfg := testConfig(srv.URL)
	c := NewClient(cfg, zap.NewNop().Sugar())

	t.Run("non 2xx", func(t *testing.T) {
		var out map[string]interface{}
		err := c.getJSON(context.Background(), srv.URL+"/denied", &out)
		var httpErr *network.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusForbidden, httpErr.Status)

		failure := network.HandleError(err)
		assert.Equal(t, "forbidden", failure.Message)
		assert.Equal(t, http.StatusForbidden, failure.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		var out map[string]interface{}
		err := c.getJSON(context.Background(), srv.URL+"/broken", &out)
		require.Error(t, err)
		assert.Equal(t, network.ParsingError, network.HandleError(err).Message)
	})

	t.Run("connection refused", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		addr := dead.URL
		dead.Close()

		var out map[string]interface{}
		err := c.getJSON(context.Background(), addr, &out)
		require.Error(t, err)
		assert.True(t, network.IsIOError(err))
		assert.Equal(t, network.ServerErrorCode, network.HandleError(err).Code)
	})
}

func TestHostLimiter(t *testing.T) {
	l := newHostLimiter(1, 1)
	assert.Same(t, l.get("a"), l.get("a"))
	assert.NotSame(t, l.get("a"), l.get("b"))

	require.NoError(t, l.Wait(context.Background(), "a"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "a"), "second token is a second away")
}
