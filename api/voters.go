package api

import (
	"strings"

	"github.com/google/uuid"
	"go.anonvote.io/avote/httprouter"
	"go.anonvote.io/avote/httprouter/apirest"
)

const VoterHandler = "voters"

func (a *API) enableVoterHandlers() error {
	if err := a.endpoint.RegisterMethod(
		"/elections/{electionID}/voters",
		"POST",
		apirest.MethodAccessTypePublic,
		a.voterRegisterHandler,
	); err != nil {
		return err
	}
	return a.endpoint.RegisterMethod(
		"/elections/{electionID}/ballots",
		"POST",
		apirest.MethodAccessTypePublic,
		a.ballotCastHandler,
	)
}

func voterRequest(msg *apirest.APIdata) (*VoterRequest, error) {
	var req VoterRequest
	if err := decode(msg, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.VoterID) == "" {
		return nil, ErrParamVoterIDMissing
	}
	if req.Password == "" {
		return nil, ErrParamPasswordMissing
	}
	return &req, nil
}

// voterRegisterHandler issues a voter credential sealed under the given
// password. The answer only carries the anonymous registration.
func (a *API) voterRegisterHandler(msg *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	id, err := electionIDParam(ctx)
	if err != nil {
		return err
	}
	req, err := voterRequest(msg)
	if err != nil {
		return err
	}
	reg, uri, err := a.commission.RegisterVoter(ctx.Request.Context(), id, req.VoterID, req.Password)
	if err != nil {
		return toAPIerror(err)
	}
	return sendJSON(ctx, &Registration{
		URI:           uri,
		TokenHash:     reg.TokenHash,
		PublicKeyHash: reg.PublicKeyHash,
	})
}

// ballotCastHandler casts the ballot of a registered voter.
func (a *API) ballotCastHandler(msg *apirest.APIdata, ctx *httprouter.HTTPContext) error {
	id, err := electionIDParam(ctx)
	if err != nil {
		return err
	}
	req, err := voterRequest(msg)
	if err != nil {
		return err
	}
	if req.CandidateID == uuid.Nil {
		return ErrCantParseCandidateID.With("missing candidateId")
	}
	uri, err := a.commission.CastBallot(ctx.Request.Context(), id, req.VoterID, req.Password, req.CandidateID)
	if err != nil {
		return toAPIerror(err)
	}
	return sendJSON(ctx, &BallotReceipt{URI: uri})
}
