package cli

import (
	"github.com/kumasuke/infraprobe/internal/awsclient"
	"github.com/kumasuke/infraprobe/internal/report"
	"github.com/kumasuke/infraprobe/internal/storageprobe"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewStorageCmd creates the storage command.
func NewStorageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "storage [environment]",
		Short: "Verify the S3 buckets of an environment",
		Long: "Check existence, settings and a write/read/delete round trip for every " +
			"{project}-{environment}-{role} bucket. The environment defaults to dev.",
		Args: cobra.MaximumNArgs(1),
		RunE: runStorage,
	}
}

func runStorage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	awsCfg, err := awsclient.Load(ctx, cfg)
	if err != nil {
		return err
	}

	log.Debug().
		Str("project", cfg.Project).
		Str("environment", cfg.Environment).
		Strs("roles", cfg.Storage.Roles).
		Msg("Starting storage probe")

	client := awsclient.NewS3(awsCfg, cfg.Storage.EndpointURL)
	return storageprobe.Run(ctx, client, cfg, report.New(cmd.OutOrStdout()))
}
