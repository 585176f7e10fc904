package network

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

const (
	MaxChars            = 150
	NoInternetErrorCode = 1
	ServerErrorCode     = http.StatusServiceUnavailable

	NetworkErrorMessage    = "No internet connection, Please check your mobile data or Wi-Fi"
	PleaseTryAgain         = "Failed to connect to the server, Please try after some time"
	SomethingWrongTryAgain = "Something went wrong. Please try again later!"
	ParsingError           = "PARSING_ERROR"
)

// ErrNoNetwork reports that no route to the network exists at all.
var ErrNoNetwork = errors.New("no internet connection")

// APIFailure is the user-facing form of a failed remote call. Code is zero
// when no HTTP-like code applies.
type APIFailure struct {
	Message string
	Code    int
	Cause   error
}

func (f *APIFailure) Error() string {
	if f.Code != 0 {
		return fmt.Sprintf("%s (code %d)", f.Message, f.Code)
	}
	return f.Message
}

func (f *APIFailure) Unwrap() error {
	return f.Cause
}

// HTTPError is returned by remote sources for a non-2xx response.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// baseModel is the error envelope upstream services answer with.
type baseModel struct {
	Message      string `json:"message"`
	ErrorMessage string `json:"error_message"`
}

// HandleError maps err to one of the fixed user-facing failures.
func HandleError(err error) *APIFailure {
	var failure *APIFailure
	if errors.As(err, &failure) {
		return failure
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return ParseError(httpErr.Body, httpErr.Status)
	}

	switch {
	case isNoNetwork(err):
		return &APIFailure{Message: NetworkErrorMessage, Code: NoInternetErrorCode, Cause: err}
	case isConnectFailure(err):
		return &APIFailure{Message: PleaseTryAgain, Code: ServerErrorCode, Cause: err}
	case isParseFailure(err):
		return &APIFailure{Message: ParsingError, Cause: err}
	default:
		return &APIFailure{Message: err.Error(), Cause: err}
	}
}

// ParseError turns an upstream error body into a failure carrying status.
func ParseError(body []byte, status int) *APIFailure {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return &APIFailure{Message: SomethingWrongTryAgain, Code: status}
	}

	resp := baseModel{}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return &APIFailure{Message: truncate(text, MaxChars), Code: status}
	}

	message := resp.Message
	if message == "" {
		message = resp.ErrorMessage
	}
	if message == "" {
		message = truncate(text, MaxChars)
	}
	return &APIFailure{Message: message, Code: status}
}

// IsIOError reports whether err is a transport failure worth retrying.
func IsIOError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoNetwork) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isNoNetwork(err error) bool {
	if errors.Is(err, ErrNoNetwork) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectFailure(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func isParseFailure(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
