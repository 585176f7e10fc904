package network

import (
	"context"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindLoading Kind = iota
	KindSuccess
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Response is one element of a remote call stream.
type Response[T any] struct {
	Kind    Kind
	Loading bool
	Data    T
	Failure *APIFailure
}

func Loading[T any](loading bool) Response[T] {
	return Response[T]{Kind: KindLoading, Loading: loading}
}

func Success[T any](data T) Response[T] {
	return Response[T]{Kind: KindSuccess, Data: data}
}

func Failure[T any](f *APIFailure) Response[T] {
	return Response[T]{Kind: KindError, Failure: f}
}

type streamOptions struct {
	loading bool
}

type StreamOption func(*streamOptions)

// WithoutLoading suppresses the Loading(true)/Loading(false) bracket, for
// calls that page data in behind an already visible list.
func WithoutLoading() StreamOption {
	return func(o *streamOptions) {
		o.loading = false
	}
}

// Stream runs call under the retry policy in its own goroutine. The returned
// channel yields Loading(true), then exactly one Success or Error, then
// Loading(false), and is closed afterwards.
func Stream[T any](ctx context.Context, p RetryPolicy, call func(context.Context) (T, error), opts ...StreamOption) <-chan Response[T] {
	o := streamOptions{loading: true}
	for _, opt := range opts {
		opt(&o)
	}

	// sized for every element so the producer never blocks on a gone consumer
	ch := make(chan Response[T], 3)
	go func() {
		defer close(ch)

		if o.loading {
			ch <- Loading[T](true)
		}

		data, err := Retry(ctx, p, call)
		if err != nil {
			ch <- Failure[T](HandleError(err))
		} else {
			ch <- Success(data)
		}

		if o.loading {
			ch <- Loading[T](false)
		}
	}()
	return ch
}

// Await drains a stream and returns its result. The failure, if any, is
// returned as an *APIFailure.
func Await[T any](ch <-chan Response[T]) (T, error) {
	var (
		data T
		err  error
		seen bool
	)
	for r := range ch {
		switch r.Kind {
		case KindSuccess:
			data, seen = r.Data, true
		case KindError:
			err, seen = r.Failure, true
		}
	}
	if !seen {
		return data, errors.New("stream closed without a result")
	}
	return data, err
}
