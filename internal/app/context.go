package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giglane/internal/config"
	"giglane/internal/domain"
	"giglane/internal/repo"
)

// ResolveWorkspaceAndConfig picks the active workspace and ensures a
// workspace + config exist in the DB, seeding defaults if missing. It
// prefers the override, then a single-workspace DB. If the workspace
// does not exist, it is created on the fly.
func ResolveWorkspaceAndConfig(ctx context.Context, workspaceOverride, actorID string, r repo.Repo) (string, *config.Config, error) {
	workspaceID := workspaceOverride
	if workspaceID == "" {
		if w, err := r.SingleWorkspace(ctx); err == nil {
			workspaceID = w.ID
		} else {
			return "", nil, fmt.Errorf("workspace not specified; use --workspace-id")
		}
	}
	seedCfg := config.Default(workspaceID)

	if _, err := r.GetWorkspace(ctx, workspaceID); err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return "", nil, err
		}
		if err := createWorkspace(ctx, r, workspaceID, seedCfg); err != nil {
			return "", nil, err
		}
	}
	cfg, err := r.GetWorkspaceConfig(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			if err := r.UpsertWorkspaceConfig(ctx, workspaceID, seedCfg); err != nil {
				return "", nil, fmt.Errorf("seed workspace config: %w", err)
			}
			cfg = seedCfg
		} else {
			return "", nil, err
		}
	}
	cfg.Workspace.ID = workspaceID
	return workspaceID, cfg, nil
}

func createWorkspace(ctx context.Context, r repo.Repo, workspaceID string, seedCfg *config.Config) error {
	if seedCfg == nil {
		seedCfg = config.Default(workspaceID)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	w := domain.Workspace{
		ID:        workspaceID,
		Name:      workspaceID,
		Status:    "active",
		CreatedAt: now,
	}
	if err := r.InsertWorkspace(ctx, tx, w); err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}
	if err := r.UpsertWorkspaceConfigTx(ctx, tx, workspaceID, seedCfg); err != nil {
		return fmt.Errorf("insert workspace config: %w", err)
	}
	return tx.Commit()
}
