package httprouter

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.anonvote.io/avote/log"
)

// ContentType is the content type of every response.
const ContentType = "application/json"

// ErrAlreadySent is returned by a second Send on the same request.
var ErrAlreadySent = errors.New("response already sent")

// Message is a request decoded by its Namespace. Data holds whatever the
// Namespace produced; the reply goes through Context.
type Message struct {
	Data    any
	Context *HTTPContext
}

// HTTPContext carries one HTTP request and its response writer.
type HTTPContext struct {
	Writer  http.ResponseWriter
	Request *http.Request

	once sync.Once
	sent chan struct{}
}

// URLParam returns the path parameter declared as {key} in the pattern.
func (h *HTTPContext) URLParam(key string) string {
	return chi.URLParam(h.Request, key)
}

// Send writes msg followed by a newline with the given status. A 204 is
// written without body. Only the first call replies.
func (h *HTTPContext) Send(msg []byte, status int) error {
	err := ErrAlreadySent
	h.once.Do(func() {
		defer close(h.sent)
		err = h.write(msg, status)
	})
	return err
}

func (h *HTTPContext) write(msg []byte, status int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("http send panic: %v", r)
			log.Warn(err)
		}
	}()
	if status < 100 || status >= 600 {
		h.Writer.WriteHeader(http.StatusInternalServerError)
		return fmt.Errorf("http status code %d not supported", status)
	}
	if err := h.Request.Context().Err(); err != nil {
		return fmt.Errorf("connection is closed: %w", err)
	}
	h.Writer.Header().Set("Content-Type", ContentType)
	if status == http.StatusNoContent {
		h.Writer.WriteHeader(status)
		return nil
	}
	h.Writer.Header().Set("Content-Length", strconv.Itoa(len(msg)+1))
	h.Writer.WriteHeader(status)
	log.Debugw("http response", "status", status, "size", len(msg))
	if _, err := h.Writer.Write(msg); err != nil {
		return err
	}
	_, err = h.Writer.Write([]byte{'\n'})
	return err
}
