package cli

import (
	"fmt"

	"github.com/kumasuke/infraprobe/internal/awsclient"
	"github.com/kumasuke/infraprobe/internal/cacheprobe"
	"github.com/kumasuke/infraprobe/internal/report"
	"github.com/kumasuke/infraprobe/internal/target"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command.
func NewCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache [environment]",
		Short: "Verify the Valkey cache cluster of an environment",
		Long: "Fetch the cache connection info from {project}/{environment}/{role}/connection " +
			"in Secrets Manager, then check liveness and scalar, list and hash round trips. " +
			"The environment defaults to dev.",
		Args: cobra.MaximumNArgs(1),
		RunE: runCache,
	}
}

func runCache(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	awsCfg, err := awsclient.Load(ctx, cfg)
	if err != nil {
		return err
	}

	rep := report.New(cmd.OutOrStdout())
	rep.Banner(fmt.Sprintf("Valkey connection test - %s environment", cfg.Environment))
	rep.Step("📋 Fetching connection info from Secrets Manager...")
	rep.Detail("Secret: %s", target.SecretName(cfg))

	secrets := awsclient.NewSecretsManager(awsCfg, cfg.Secrets.EndpointURL)
	ep, err := target.ResolveCache(ctx, secrets, cfg)
	if err != nil {
		rep.Fail("Failed to fetch connection info: %v", err)
		return err
	}
	rep.OK("Connection info retrieved")
	rep.Blank()

	rdb := cacheprobe.NewClient(ep, cfg.Cache)
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Debug().Err(err).Msg("Failed to close cache client")
		}
	}()

	return cacheprobe.Run(ctx, rdb, ep, cfg.Cache, rep)
}
