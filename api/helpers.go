package api

import (
	"encoding/json"

	"github.com/google/uuid"
	"go.anonvote.io/avote/httprouter"
	"go.anonvote.io/avote/httprouter/apirest"
)

func electionIDParam(ctx *httprouter.HTTPContext) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.URLParam("electionID"))
	if err != nil {
		return uuid.Nil, ErrCantParseElectionID.WithErr(err)
	}
	return id, nil
}

func decode(msg *apirest.APIdata, v any) error {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return ErrCantParseDataAsJSON.WithErr(err)
	}
	return nil
}

func sendJSON(ctx *httprouter.HTTPContext, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrMarshalingServerJSONFailed.WithErr(err)
	}
	return ctx.Send(data, apirest.HTTPstatusOK)
}
