package cmd

import (
	"context"

	"github.com/kilianp07/fleetsched/auth"
	"github.com/kilianp07/fleetsched/config"
	"github.com/kilianp07/fleetsched/core/logger"
	"github.com/kilianp07/fleetsched/core/scheduler"
	"github.com/kilianp07/fleetsched/internal/instance"
)

// loadInstance reads a local instance file or fetches it from the
// planning API with the configured credentials.
func loadInstance(ctx context.Context, cfg *config.Config, src string, log logger.Logger) (scheduler.Instance, error) {
	if instance.IsRemote(src) {
		cli := auth.HTTPClient(ctx, cfg.Source.Auth, cfg.Source.Timeout())
		return instance.Fetch(ctx, cli, src, log)
	}
	return instance.Load(src, log)
}
