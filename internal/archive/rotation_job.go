package archive

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RotationJob prunes reports past their retention period
type RotationJob struct {
	archiver      *Archiver
	retentionDays int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewRotationJob creates a new report rotation job
func NewRotationJob(archiver *Archiver, retentionDays int, log zerolog.Logger) *RotationJob {
	return &RotationJob{
		archiver:      archiver,
		retentionDays: retentionDays,
		timeout:       5 * time.Minute,
		log:           log.With().Str("job", "archive_rotation").Logger(),
	}
}

// Run executes the rotation
func (j *RotationJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	deleted, err := j.archiver.Rotate(ctx, j.retentionDays)
	if err != nil {
		return err
	}
	if deleted > 0 {
		j.log.Info().Int("deleted", deleted).Msg("Pruned archived reports")
	}
	return nil
}

// Name returns the job name
func (j *RotationJob) Name() string {
	return "archive_rotation"
}
