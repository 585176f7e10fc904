package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/network"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/viewmodel"
)

func (s *HTTPServer) dashboardFor(c echo.Context) (*viewmodel.Dashboard, error) {
	session, err := GetSessionFromContext(c)
	if err != nil {
		return nil, err
	}
	return s.registry.Get(session), nil
}

func (s *HTTPServer) DashboardGet(c echo.Context) error {
	d, err := s.dashboardFor(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newDashboardResp(d.Snapshot()))
}

// DashboardLoad answers with the dashboard state even when the catalog fetch
// failed; the failure is part of the state.
func (s *HTTPServer) DashboardLoad(c echo.Context) error {
	d, err := s.dashboardFor(c)
	if err != nil {
		return err
	}
	if err := d.Load(c.Request().Context()); err != nil {
		var failure *network.APIFailure
		if !errors.As(err, &failure) {
			return httpError(err)
		}
	}
	return c.JSON(http.StatusOK, newDashboardResp(d.Snapshot()))
}

func (s *HTTPServer) DashboardTab(c echo.Context) error {
	d, err := s.dashboardFor(c)
	if err != nil {
		return err
	}
	req := TabReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if viewmodel.Tab(req.Tab) == viewmodel.TabFavorites {
		err = d.ShowFavorites(ctx)
	} else {
		err = d.ShowHome(ctx)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newDashboardResp(d.Snapshot()))
}

func (s *HTTPServer) DashboardSearch(c echo.Context) error {
	d, err := s.dashboardFor(c)
	if err != nil {
		return err
	}
	req := SearchReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	if err := d.Search(c.Request().Context(), req.Query); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newDashboardResp(d.Snapshot()))
}

func (s *HTTPServer) DashboardYear(c echo.Context) error {
	d, err := s.dashboardFor(c)
	if err != nil {
		return err
	}
	req := YearReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	if err := d.FilterByYear(c.Request().Context(), req.Year); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newDashboardResp(d.Snapshot()))
}

func (s *HTTPServer) DashboardToggleFavorite(c echo.Context) error {
	uid, err := GetParam(c, "uid")
	if err != nil {
		return err
	}
	d, err := s.dashboardFor(c)
	if err != nil {
		return err
	}

	if _, err := d.ToggleFavorite(c.Request().Context(), uid); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newDashboardResp(d.Snapshot()))
}

func (s *HTTPServer) DashboardTags(c echo.Context) error {
	uid, err := GetParam(c, "uid")
	if err != nil {
		return err
	}
	d, err := s.dashboardFor(c)
	if err != nil {
		return err
	}
	req := TagsReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	if err := d.SaveTags(c.Request().Context(), uid, req.Tags); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newDashboardResp(d.Snapshot()))
}

func (s *HTTPServer) DashboardEvents(c echo.Context) error {
	d, err := s.dashboardFor(c)
	if err != nil {
		return err
	}

	events, unsubscribe := d.Subscribe(16)
	defer unsubscribe()

	w := newEventWriter(c)
	if err := w.Send("state", newDashboardResp(d.Snapshot())); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := w.Send(string(ev.Kind), newEventResp(ev)); err != nil {
				return nil
			}
		}
	}
}
