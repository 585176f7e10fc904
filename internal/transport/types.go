package transport

import (
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/db"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/network"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/service"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/viewmodel"
)

type (
	SignupReq struct {
		Username string `json:"username"`
		Email    string `json:"email" validate:"required,accountemail"`
		Password string `json:"password" validate:"required,strongpassword"`
		Country  string `json:"country"`
	}

	// LoginReq takes the email or the username in login; email is still
	// accepted for older clients.
	LoginReq struct {
		Login    string `json:"login" validate:"required_without=Email"`
		Email    string `json:"email" validate:"required_without=Login"`
		Password string `json:"password" validate:"required"`
	}

	UserResp struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Country  string `json:"country,omitempty"`
	}

	LoginResp struct {
		Token string   `json:"token"`
		User  UserResp `json:"user"`
	}

	CountryResp struct {
		Name   string `json:"name"`
		Region string `json:"region"`
	}

	TagsReq struct {
		Tags string `json:"tags"`
	}

	TabReq struct {
		Tab string `json:"tab" validate:"required,oneof=home favorites"`
	}

	SearchReq struct {
		Query string `json:"query"`
	}

	YearReq struct {
		Year int `json:"year" validate:"min=0"`
	}

	BookResp struct {
		UID                  string   `json:"uid"`
		Title                *string  `json:"title,omitempty"`
		Image                *string  `json:"image,omitempty"`
		Score                *float64 `json:"score,omitempty"`
		Popularity           *int     `json:"popularity,omitempty"`
		PublishedChapterDate *int64   `json:"publishedChapterDate,omitempty"`
		Year                 int      `json:"year,omitempty"`
		Favourite            bool     `json:"favourite"`
		Tags                 []string `json:"tags"`
	}

	FailureResp struct {
		Message string `json:"message"`
		Code    int    `json:"code,omitempty"`
	}

	DashboardResp struct {
		Tab     string       `json:"tab"`
		Query   string       `json:"query,omitempty"`
		Year    int          `json:"year,omitempty"`
		Loading bool         `json:"loading"`
		Books   []BookResp   `json:"books"`
		Years   []int        `json:"years"`
		Error   *FailureResp `json:"error,omitempty"`
	}

	EventResp struct {
		Loading *bool        `json:"loading,omitempty"`
		Error   *FailureResp `json:"error,omitempty"`
		Tab     string       `json:"tab,omitempty"`
		Books   []BookResp   `json:"books,omitempty"`
		Years   []int        `json:"years,omitempty"`
	}

	SessionEventResp struct {
		State string `json:"state"`
	}
)

func (r LoginReq) Identifier() string {
	if r.Login != "" {
		return r.Login
	}
	return r.Email
}

func newUserResp(u *db.User) UserResp {
	return UserResp{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Country:  u.Country,
	}
}

func newFailureResp(f *network.APIFailure) *FailureResp {
	if f == nil {
		return nil
	}
	return &FailureResp{Message: f.Message, Code: f.Code}
}

func newBookResp(b service.BookWithMetadata) BookResp {
	return BookResp{
		UID:                  b.Book.UID,
		Title:                b.Book.Title,
		Image:                b.Book.Image,
		Score:                b.Book.Score,
		Popularity:           b.Book.Popularity,
		PublishedChapterDate: b.Book.PublishedChapterDate,
		Year:                 b.Book.PublishedYear(),
		Favourite:            b.IsFavourite(),
		Tags:                 b.Tags(),
	}
}

func newBookResps(books []service.BookWithMetadata) []BookResp {
	resp := make([]BookResp, len(books))
	for i := range books {
		resp[i] = newBookResp(books[i])
	}
	return resp
}

func newDashboardResp(s viewmodel.State) DashboardResp {
	return DashboardResp{
		Tab:     string(s.Tab),
		Query:   s.Query,
		Year:    s.Year,
		Loading: s.Loading,
		Books:   newBookResps(s.Books),
		Years:   s.Years,
		Error:   newFailureResp(s.Failure),
	}
}

func newEventResp(ev viewmodel.Event) EventResp {
	resp := EventResp{Tab: string(ev.Tab)}
	switch ev.Kind {
	case viewmodel.EventLoading:
		loading := ev.Loading
		resp.Loading = &loading
	case viewmodel.EventError:
		resp.Error = newFailureResp(ev.Failure)
	case viewmodel.EventBooks:
		resp.Books = newBookResps(ev.Books)
	case viewmodel.EventYears:
		resp.Years = ev.Years
	}
	return resp
}
