package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// eventWriter writes server-sent events to an echo response.
type eventWriter struct {
	res *echo.Response
}

func newEventWriter(c echo.Context) *eventWriter {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()
	return &eventWriter{res: res}
}

func (w *eventWriter) Send(event string, data interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	if _, err := fmt.Fprintf(w.res, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return errors.Wrap(err, "write event")
	}
	w.res.Flush()
	return nil
}
