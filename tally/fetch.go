package tally

import (
	"context"

	recorddb "go.anonvote.io/avote/recordstore/db"
	"golang.org/x/sync/errgroup"
)

// fetched is the content of one published object, or the error that kept it
// from being read.
type fetched struct {
	data []byte
	err  error
}

// fetch reads every registration and ballot concurrently. Per object
// failures are kept in the result; only cancellation of ctx fails the call.
func (e *Engine) fetch(ctx context.Context, regRows []recorddb.Registration,
	ballotRows []recorddb.Ballot,
) ([]fetched, []fetched, error) {
	regs := make([]fetched, len(regRows))
	ballots := make([]fetched, len(ballotRows))

	g, gctx := errgroup.WithContext(ctx)
	limit := e.FetchConcurrency
	if limit <= 0 {
		limit = DefaultFetchConcurrency
	}
	g.SetLimit(limit)
	timeout := e.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	get := func(uri string, dst *fetched) {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			dst.data, dst.err = e.storage.Retrieve(fctx, uri, e.MaxObjectSize)
			return nil
		})
	}
	for i := range regRows {
		get(regRows[i].Uri, &regs[i])
	}
	for i := range ballotRows {
		get(ballotRows[i].Uri, &ballots[i])
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return regs, ballots, nil
}
