package tmdb

import "fmt"

type (
	tmdbError struct {
		StatusCode    int    `json:"status_code"`
		StatusMessage string `json:"status_message"`
	}

	// FailedRequestError is returned for any non-2xx response.
	FailedRequestError struct {
		HTTPCode int
		TMDBCode int
		Message  string
		URL      string
	}

	// DecodeError is returned when a 2xx response body is not the JSON
	// document the endpoint promises.
	DecodeError struct {
		URL  string
		Body string
		Err  error
	}

	UnknownRequestError struct{ reason string }
)

func (err *FailedRequestError) Error() string {
	return fmt.Sprintf("tmdb: request to %s failed (HTTP %d, code %d): %s", err.URL, err.HTTPCode, err.TMDBCode, err.Message)
}

func (err *DecodeError) Error() string {
	return fmt.Sprintf("tmdb: malformed response from %s: %s body=%q", err.URL, err.Err, err.Body)
}

func (err *DecodeError) Unwrap() error { return err.Err }

func (err *UnknownRequestError) Error() string {
	return fmt.Sprintf("tmdb: unknown error occurred while communicating with TMDB: %s", err.reason)
}
