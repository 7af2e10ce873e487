package api

import (
	"go.anonvote.io/avote/election"
	"go.anonvote.io/avote/httprouter"
	"go.anonvote.io/avote/httprouter/apirest"
	"go.anonvote.io/avote/types"
)

const ElectionHandler = "elections"

func (a *API) enableElectionHandlers() error {
	if err := a.endpoint.RegisterMethod(
		"/elections",
		"GET",
		apirest.MethodAccessTypePublic,
		a.electionListHandler,
	); err != nil {
		return err
	}
	if err := a.endpoint.RegisterMethod(
		"/elections",
		"POST",
		apirest.MethodAccessTypeAdmin,
		a.electionCreateHandler,
	); err != nil {
		return err
	}
	if err := a.endpoint.RegisterMethod(
		"/elections/{electionID}",
		"GET",
		apirest.MethodAccessTypePublic,
		a.electionHandler,
	); err != nil {
		return err
	}
	return a.endpoint.RegisterMethod(
		"/elections/{electionID}/status",
		"PUT",
		apirest.MethodAccessTypeAdmin,
		a.electionStatusHandler,
	)
}

func electionInfo(e *election.Election, candidates []*election.Candidate) *Election {
	info := &Election{
		ElectionID: e.ID,
		Name:       e.Name,
		Status:     e.Status,
		CreatedAt:  e.CreatedAt,
	}
	if e.Keys != nil {
		info.PublicKey = string(e.Keys.PublicKey)
	}
	for _, c := range candidates {
		info.Candidates = append(info.Candidates, Candidate{
			CandidateID: c.ID,
			Name:        c.Name,
			Votes:       c.Votes,
		})
	}
	return info
}

// electionListHandler lists every election, without candidates.
func (a *API) electionListHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	elections, err := a.commission.Elections(ctx.Request.Context())
	if err != nil {
		return toAPIerror(err)
	}
	list := make([]*Election, 0, len(elections))
	for _, e := range elections {
		list = append(list, electionInfo(e, nil))
	}
	return sendJSON(ctx, struct {
		Elections []*Election `json:"elections"`
	}{list})
}

// electionCreateHandler creates an election with its candidates. The
// password seals the commission key and is needed to tally.
func (a *API) electionCreateHandler(msg *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	var req ElectionCreate
	if err := decode(msg, &req); err != nil {
		return err
	}
	if req.Password == "" {
		return ErrParamPasswordMissing
	}
	e, candidates, err := a.commission.CreateElection(ctx.Request.Context(),
		req.Name, req.Password, req.Candidates)
	if err != nil {
		return toAPIerror(err)
	}
	return sendJSON(ctx, electionInfo(e, candidates))
}

// electionHandler returns an election with its candidates and stored
// counts.
func (a *API) electionHandler(_ *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	id, err := electionIDParam(ctx)
	if err != nil {
		return err
	}
	e, err := a.commission.Election(ctx.Request.Context(), id)
	if err != nil {
		return toAPIerror(err)
	}
	candidates, err := a.commission.Candidates(ctx.Request.Context(), id)
	if err != nil {
		return toAPIerror(err)
	}
	return sendJSON(ctx, electionInfo(e, candidates))
}

func (a *API) electionStatusHandler(msg *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	id, err := electionIDParam(ctx)
	if err != nil {
		return err
	}
	var req ElectionStatus
	if err := decode(msg, &req); err != nil {
		return err
	}
	status, err := types.ParseElectionStatus(req.Status)
	if err != nil {
		return ErrParamStatusMissing.WithErr(err)
	}
	if err := a.commission.SetStatus(ctx.Request.Context(), id, status); err != nil {
		return toAPIerror(err)
	}
	return ctx.Send(nil, apirest.HTTPstatusOK)
}
