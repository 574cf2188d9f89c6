// Command migrate applies migrations/ to the configured database with Atlas.
// The atlas binary must be on PATH.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"tutor-booking/internal/pkg/config"

	"ariga.io/atlas-go-sdk/atlasexec"
	"github.com/kelseyhightower/envconfig"
)

type migrateConfig struct {
	Dir    string `envconfig:"MIGRATE_DIR" default:"file://migrations"`
	DevURL string `envconfig:"MIGRATE_DEV_URL" default:"docker://postgres/17/dev"`
	DryRun bool   `envconfig:"MIGRATE_DRY_RUN" default:"false"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var mc migrateConfig
	if err := envconfig.Process("", &mc); err != nil {
		logger.Error("failed to load migrate config", "error", err)
		os.Exit(1)
	}
	var dbc config.DBConfig
	if err := envconfig.Process("", &dbc); err != nil {
		logger.Error("failed to load database config", "error", err)
		os.Exit(1)
	}

	client, err := atlasexec.NewClient(".", "atlas")
	if err != nil {
		logger.Error("failed to create atlas client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := client.SchemaApply(ctx, &atlasexec.SchemaApplyParams{
		URL:         dbc.BuildDSN(),
		To:          mc.Dir,
		DevURL:      mc.DevURL,
		DryRun:      mc.DryRun,
		AutoApprove: true,
	})
	if err != nil {
		logger.Error("schema apply failed", "error", err)
		os.Exit(1)
	}

	logger.Info("schema applied",
		"applied", len(res.Changes.Applied),
		"pending", len(res.Changes.Pending),
		"dry_run", mc.DryRun,
	)
}
