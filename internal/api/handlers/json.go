package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jeremytraini/auscal/internal/api/problem"
	"github.com/jeremytraini/auscal/internal/domain/events"
)

const payloadMessage = "Input payload validation failed"

var errEmptyBody = errors.New("request body is empty")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// queryValues parses the raw query keeping a literal '+' as a plus sign, so
// order=+id means ascending rather than " id".
func queryValues(r *http.Request) url.Values {
	values, err := url.ParseQuery(strings.ReplaceAll(r.URL.RawQuery, "+", "%2B"))
	if err != nil {
		return r.URL.Query()
	}
	return values
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	err := json.NewDecoder(r.Body).Decode(out)
	if errors.Is(err, io.EOF) {
		return errEmptyBody
	}
	return err
}

// writeDecodeError answers a body that could not be decoded.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error, env string) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Payload Too Large", err, env,
			problem.WithMessage("Request body too large"))
		return
	}
	problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Bad Request", err, env,
		problem.WithMessage(payloadMessage))
}

// writeServiceError maps domain errors onto status codes. Anything the
// domain does not explain is a 500 with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, env string) {
	switch {
	case errors.Is(err, events.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not Found", err, env,
			problem.WithMessage(events.Message(err)))
	case events.IsValidation(err):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Bad Request", err, env,
			problem.WithMessage(events.Message(err)))
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Internal Server Error", err, env,
			problem.WithMessage("Internal server error"))
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, message, env string) {
	problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Bad Request", nil, env,
		problem.WithMessage(message))
}

func notFound(w http.ResponseWriter, r *http.Request, message, env string) {
	problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not Found", nil, env,
		problem.WithMessage(message))
}
