package ui

import (
	"context"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/services"
	"github.com/desertthunder/crossfade/internal/tasks"
)

// Source is where the watcher reads job snapshots from and sends cancellations to.
type Source interface {
	Job(ctx context.Context, id string) (models.TransferJob, error)
	Cancel(ctx context.Context, id string) error
}

// EngineSource watches jobs of an in-process [tasks.Engine].
type EngineSource struct {
	Engine *tasks.Engine
}

func (s EngineSource) Job(ctx context.Context, id string) (models.TransferJob, error) {
	return s.Engine.Job(id)
}

func (s EngineSource) Cancel(ctx context.Context, id string) error {
	return s.Engine.Cancel(id)
}

// RemoteSource watches jobs of a running server through [services.APIService].
type RemoteSource struct {
	API *services.APIService
}

func (s RemoteSource) Job(ctx context.Context, id string) (models.TransferJob, error) {
	job, err := s.API.Job(ctx, id)
	if err != nil {
		return models.TransferJob{}, err
	}
	return *job, nil
}

func (s RemoteSource) Cancel(ctx context.Context, id string) error {
	return s.API.Cancel(ctx, id)
}
