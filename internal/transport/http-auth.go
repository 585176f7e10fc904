package transport

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/service"
)

func (s *HTTPServer) Signup(c echo.Context) error {
	req := SignupReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := s.registration.Signup(c.Request().Context(), service.SignupParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Country:  req.Country,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, newUserResp(user))
}

func (s *HTTPServer) Login(c echo.Context) error {
	req := LoginReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	user, session, err := s.registration.Login(c.Request().Context(), req.Identifier(), req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, LoginResp{
		Token: session.SessionID,
		User:  newUserResp(user),
	})
}

func (s *HTTPServer) Logout(c echo.Context) error {
	session, err := GetSessionFromContext(c)
	if err != nil {
		return err
	}

	if err := s.registration.Logout(c.Request().Context(), session.SessionID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) Countries(c echo.Context) error {
	countries, err := s.registration.Countries(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	resp := make([]CountryResp, len(countries))
	for i := range countries {
		resp[i] = CountryResp{
			Name:   countries[i].Name,
			Region: countries[i].Region,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) DefaultCountry(c echo.Context) error {
	country, err := s.registration.DefaultCountry(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	resp := struct {
		Country string `json:"country"`
	}{
		Country: country,
	}
	return c.JSON(http.StatusOK, &resp)
}

// SessionEvents streams the caller's session state until it becomes
// not active or the client goes away.
func (s *HTTPServer) SessionEvents(c echo.Context) error {
	session, err := GetSessionFromContext(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	events, err := s.sessions.Observe(ctx, session.UserID)
	if err != nil {
		return err
	}

	w := newEventWriter(c)
	for ev := range events {
		state, ok := ev.StateFor(session.SessionID)
		if !ok {
			continue
		}
		if err := w.Send("session", SessionEventResp{State: state.String()}); err != nil {
			return nil
		}
		if state == service.SessionNotActive {
			return nil
		}
	}
	return nil
}
