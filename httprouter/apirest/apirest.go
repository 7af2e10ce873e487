package apirest

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"go.anonvote.io/avote/httprouter"
	"go.anonvote.io/avote/log"
)

const (
	// MethodAccessTypePublic for public requests
	MethodAccessTypePublic = "public"
	// MethodAccessTypeAdmin for admin requests
	MethodAccessTypeAdmin = "admin"

	namespace    = "bearerStd"
	bearerPrefix = "Bearer "
	// MaxRequestBodySize is the largest request body read.
	MaxRequestBodySize = 1 << 20
)

// HTTPstatus* equal http.Status*, simple sugar to avoid importing http everywhere
const (
	HTTPstatusOK                 = http.StatusOK
	HTTPstatusNoContent          = http.StatusNoContent
	HTTPstatusBadRequest         = http.StatusBadRequest
	HTTPstatusUnauthorized       = http.StatusUnauthorized
	HTTPstatusNotFound           = http.StatusNotFound
	HTTPstatusConflict           = http.StatusConflict
	HTTPstatusInternalErr        = http.StatusInternalServerError
	HTTPstatusServiceUnavailable = http.StatusServiceUnavailable
)

// API is a namespace handler for the httpRouter with Bearer authorization.
// Request bodies carry passwords, so they are never logged.
type API struct {
	router         *httprouter.HTTProuter
	basePath       string
	adminToken     string
	adminTokenLock sync.RWMutex
}

// APIdata is the data type used by the API.
// On handler functions Message.Data can be cast safely to this type.
type APIdata struct {
	Data      []byte
	AuthToken string
}

// APIhandler is the handler function used by the bearer std API httprouter implementation
type APIhandler = func(*APIdata, *httprouter.HTTPContext) error

// APIerror is used by handler functions to wrap errors, assigning a unique error code
// and also specifying which HTTP Status should be used.
type APIerror struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON returns a JSON containing Err.Error() and Code. Field HTTPstatus is ignored.
//
// Example output: {"error":"election not found","code":4003}
func (e APIerror) MarshalJSON() ([]byte, error) {
	// json.Marshal doesn't call Err.Error()
	return json.Marshal(
		struct {
			Err  string `json:"error"`
			Code int    `json:"code"`
		}{
			Err:  e.Err.Error(),
			Code: e.Code,
		})
}

// Error returns the Message contained inside the APIerror
func (e APIerror) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e APIerror) Unwrap() error {
	return e.Err
}

// Send serializes a JSON msg using APIerror.Message and APIerror.Code
// and passes that to ctx.Send()
func (e APIerror) Send(ctx *httprouter.HTTPContext) error {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		return ctx.Send([]byte("marshal failed"), HTTPstatusInternalErr)
	}
	return ctx.Send(msg, e.HTTPstatus)
}

// Withf returns a copy of APIerror with the Sprintf formatted string appended at the end of e.Err
func (e APIerror) Withf(format string, args ...any) APIerror {
	return APIerror{
		Err:        fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// With returns a copy of APIerror with the string appended at the end of e.Err
func (e APIerror) With(s string) APIerror {
	return APIerror{
		Err:        fmt.Errorf("%w: %v", e.Err, s),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of APIerror with err.Error() appended at the end of e.Err
func (e APIerror) WithErr(err error) APIerror {
	return APIerror{
		Err:        fmt.Errorf("%w: %v", e.Err, err.Error()),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// NewAPI returns an API initialized type
func NewAPI(router *httprouter.HTTProuter, baseRoute string) (*API, error) {
	if router == nil {
		return nil, errors.New("httprouter is nil")
	}
	if len(baseRoute) == 0 || baseRoute[0] != '/' {
		return nil, fmt.Errorf("invalid base route (%s), it must start with /", baseRoute)
	}
	// Remove trailing slash
	if len(baseRoute) > 1 {
		baseRoute = strings.TrimSuffix(baseRoute, "/")
	}
	bsa := API{router: router, basePath: baseRoute}
	router.AddNamespace(namespace, &bsa)
	return &bsa, nil
}

// AuthorizeRequest implements httprouter.Namespace.
// Admin handlers require the admin bearer token; an unset token denies
// every admin request.
func (a *API) AuthorizeRequest(data any, access httprouter.Access) (bool, error) {
	msg, ok := data.(*APIdata)
	if !ok {
		return false, fmt.Errorf("unexpected request data %T", data)
	}
	switch access {
	case httprouter.Admin:
		a.adminTokenLock.RLock()
		defer a.adminTokenLock.RUnlock()
		if a.adminToken == "" ||
			subtle.ConstantTimeCompare([]byte(msg.AuthToken), []byte(a.adminToken)) != 1 {
			return false, fmt.Errorf("admin token not valid")
		}
		return true, nil
	default:
		return true, nil
	}
}

// ProcessData implements httprouter.Namespace. It processes the HTTP request and returns structured data.
// The body of the http requests and the bearer auth token are read.
func (a *API) ProcessData(req *http.Request) (any, error) {
	reqBody, err := io.ReadAll(io.LimitReader(req.Body, MaxRequestBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading request body: %v", err)
	}
	if len(reqBody) > MaxRequestBodySize {
		return nil, fmt.Errorf("request body too large")
	}
	token := ""
	if authHeader := req.Header.Get("Authorization"); authHeader != "" {
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			return nil, errors.New("authorization header is not a Bearer token")
		}
		token = strings.TrimPrefix(authHeader, bearerPrefix)
	}
	return &APIdata{
		Data:      reqBody,
		AuthToken: token,
	}, nil
}

// RegisterMethod adds a new method under the URL pattern.
// The pattern URL can contain variable names by using braces, such as /send/{name}/hello
// The pattern can also contain wildcard at the end of the path, such as /send/{name}/hello/*
// The accessType can be of type public or admin.
func (a *API) RegisterMethod(pattern, HTTPmethod string, accessType string, handler APIhandler) error {
	if len(pattern) == 0 || pattern[0] != '/' {
		return fmt.Errorf("pattern must start with /: %q", pattern)
	}
	routerHandler := func(msg httprouter.Message) {
		bsaMsg := msg.Data.(*APIdata)
		if err := handler(bsaMsg, msg.Context); err != nil {
			var apierror APIerror
			if errors.As(err, &apierror) {
				if err := apierror.Send(msg.Context); err != nil {
					log.Warnf("couldn't send apierror: %v", err)
				}
				return
			}
			// a plain error is a bug in the handler
			log.Warnw("handler returned a plain error", "pattern", pattern, "error", err.Error())
			if err := msg.Context.Send([]byte(err.Error()), HTTPstatusInternalErr); err != nil {
				log.Warn(err)
			}
		}
	}

	var access httprouter.Access
	switch accessType {
	case MethodAccessTypePublic:
		access = httprouter.Public
	case MethodAccessTypeAdmin:
		access = httprouter.Admin
	default:
		return fmt.Errorf("method access type not implemented: %s", accessType)
	}
	a.router.AddHandler(namespace, access, path.Join(a.basePath, pattern), HTTPmethod, routerHandler)
	return nil
}

// SetAdminToken sets the bearer admin token capable to execute admin handlers
func (a *API) SetAdminToken(bearerToken string) {
	a.adminTokenLock.Lock()
	defer a.adminTokenLock.Unlock()
	a.adminToken = bearerToken
}
