// Package api exposes the commission operations as a REST API.
package api

import (
	"fmt"
	"strings"

	"go.anonvote.io/avote/commission"
	"go.anonvote.io/avote/httprouter"
	"go.anonvote.io/avote/httprouter/apirest"
)

var (
	ErrMissingModulesForHandler = fmt.Errorf("missing modules attached for enabling handler")
	ErrHandlerUnknown           = fmt.Errorf("handler unknown")
	ErrHTTPRouterIsNil          = fmt.Errorf("httprouter is nil")
	ErrBaseRouteInvalid         = fmt.Errorf("base route must start with /")
)

// API is the URL based REST API. Commission operations are admin methods
// protected by a bearer token; voter and read operations are public.
type API struct {
	endpoint   *apirest.API
	commission *commission.Commission
}

// NewAPI creates a new instance of the API. Attach must be called next.
func NewAPI(router *httprouter.HTTProuter, baseRoute, adminToken string) (*API, error) {
	if router == nil {
		return nil, ErrHTTPRouterIsNil
	}
	if len(baseRoute) == 0 || baseRoute[0] != '/' {
		return nil, fmt.Errorf("%w (invalid given: %s)", ErrBaseRouteInvalid, baseRoute)
	}
	if len(baseRoute) > 1 {
		baseRoute = strings.TrimSuffix(baseRoute, "/")
	}
	endpoint, err := apirest.NewAPI(router, baseRoute)
	if err != nil {
		return nil, err
	}
	endpoint.SetAdminToken(adminToken)
	return &API{endpoint: endpoint}, nil
}

// Attach sets the commission used by the handlers. It must be called before
// EnableHandlers.
func (a *API) Attach(com *commission.Commission) {
	a.commission = com
}

// EnableHandlers enables the list of handlers. Attach must be called before.
func (a *API) EnableHandlers(handlers ...string) error {
	for _, h := range handlers {
		if a.commission == nil {
			return fmt.Errorf("%w %s", ErrMissingModulesForHandler, h)
		}
		switch h {
		case ElectionHandler:
			if err := a.enableElectionHandlers(); err != nil {
				return err
			}
		case VoterHandler:
			if err := a.enableVoterHandlers(); err != nil {
				return err
			}
		case TallyHandler:
			if err := a.enableTallyHandlers(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s", ErrHandlerUnknown, h)
		}
	}
	return nil
}
