package studyapi

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Dashboard loads the projects and the model catalog concurrently. When both
// requests hit an expired credential, the client refreshes it once.
func (c *Client) Dashboard(ctx context.Context) (Dashboard, error) {
	var dash Dashboard

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		projects, err := c.ListProjects(gctx)
		dash.Projects = projects
		return err
	})
	g.Go(func() error {
		models, err := c.ListAIModels(gctx)
		dash.Models = models
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}
