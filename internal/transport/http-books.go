package transport

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/service"
)

func (s *HTTPServer) BookSync(c echo.Context) error {
	n, err := s.dashboard.SyncBooks(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	resp := struct {
		Received int `json:"received"`
	}{
		Received: n,
	}
	return c.JSON(http.StatusOK, &resp)
}

// BookList lists cached books for the caller. Query params: query, year,
// favorites=true; they are applied in that order of precedence.
func (s *HTTPServer) BookList(c echo.Context) error {
	session, err := GetSessionFromContext(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var books []service.BookWithMetadata
	switch {
	case c.QueryParam("query") != "":
		books, err = s.dashboard.Search(ctx, session.UserID, c.QueryParam("query"))
	case c.QueryParam("year") != "":
		year, perr := strconv.Atoi(c.QueryParam("year"))
		if perr != nil || year < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid query param 'year'")
		}
		books, err = s.dashboard.FilterByYear(ctx, session.UserID, year)
	case c.QueryParam("favorites") == "true":
		books, err = s.dashboard.Favorites(ctx, session.UserID)
	default:
		books, err = s.dashboard.AllBooks(ctx, session.UserID)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newBookResps(books))
}

func (s *HTTPServer) BookYears(c echo.Context) error {
	years, err := s.dashboard.Years(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, years)
}

func (s *HTTPServer) BookFavorite(c echo.Context) error {
	return s.setFavorite(c, true)
}

func (s *HTTPServer) BookUnfavorite(c echo.Context) error {
	return s.setFavorite(c, false)
}

func (s *HTTPServer) setFavorite(c echo.Context, favourite bool) error {
	uid, err := GetParam(c, "uid")
	if err != nil {
		return err
	}
	session, err := GetSessionFromContext(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if favourite {
		err = s.dashboard.MarkFavorite(ctx, session.UserID, uid)
	} else {
		err = s.dashboard.UnmarkFavorite(ctx, session.UserID, uid)
	}
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) BookTags(c echo.Context) error {
	uid, err := GetParam(c, "uid")
	if err != nil {
		return err
	}
	session, err := GetSessionFromContext(c)
	if err != nil {
		return err
	}

	req := TagsReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	m, err := s.dashboard.UpdateTags(c.Request().Context(), session.UserID, uid, req.Tags)
	if err != nil {
		return httpError(err)
	}

	tags := []string{}
	if m.Tags != nil {
		tags = service.SplitTags(*m.Tags)
	}
	resp := struct {
		UID       string   `json:"uid"`
		Favourite bool     `json:"favourite"`
		Tags      []string `json:"tags"`
	}{
		UID:       uid,
		Favourite: m.IsFavourite,
		Tags:      tags,
	}
	return c.JSON(http.StatusOK, &resp)
}
