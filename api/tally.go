package api

import (
	"go.anonvote.io/avote/httprouter"
	"go.anonvote.io/avote/httprouter/apirest"
)

const TallyHandler = "tally"

func (a *API) enableTallyHandlers() error {
	if err := a.endpoint.RegisterMethod(
		"/elections/{electionID}/tally",
		"POST",
		apirest.MethodAccessTypeAdmin,
		a.tallyHandler,
	); err != nil {
		return err
	}
	if err := a.endpoint.RegisterMethod(
		"/elections/{electionID}/results",
		"GET",
		apirest.MethodAccessTypePublic,
		a.resultsHandler,
	); err != nil {
		return err
	}
	return a.endpoint.RegisterMethod(
		"/elections/{electionID}/reset",
		"POST",
		apirest.MethodAccessTypeAdmin,
		a.resetHandler,
	)
}

// tallyHandler recounts a finished election and returns the full report.
func (a *API) tallyHandler(msg *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	id, err := electionIDParam(ctx)
	if err != nil {
		return err
	}
	var req TallyRequest
	if err := decode(msg, &req); err != nil {
		return err
	}
	if req.Password == "" {
		return ErrParamPasswordMissing
	}
	report, err := a.commission.Tally(ctx.Request.Context(), id, req.Password)
	if err != nil {
		return toAPIerror(err)
	}
	return sendJSON(ctx, report)
}

// resultsHandler returns the stored counts without recounting.
func (a *API) resultsHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	id, err := electionIDParam(ctx)
	if err != nil {
		return err
	}
	rk, err := a.commission.Results(ctx.Request.Context(), id)
	if err != nil {
		return toAPIerror(err)
	}
	return sendJSON(ctx, rk)
}

func (a *API) resetHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	id, err := electionIDParam(ctx)
	if err != nil {
		return err
	}
	if err := a.commission.Reset(ctx.Request.Context(), id); err != nil {
		return toAPIerror(err)
	}
	return ctx.Send(nil, apirest.HTTPstatusOK)
}
