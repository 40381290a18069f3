package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// BasketWarmer fetches every basket series into the cache.
type BasketWarmer interface {
	Warm(ctx context.Context) (int, error)
}

// WarmBasketJob refreshes the style index series once a new month closes.
type WarmBasketJob struct {
	warmer  BasketWarmer
	timeout time.Duration
	log     zerolog.Logger
}

// NewWarmBasketJob creates a basket warm-up job.
func NewWarmBasketJob(warmer BasketWarmer, log zerolog.Logger) *WarmBasketJob {
	return &WarmBasketJob{
		warmer:  warmer,
		timeout: 5 * time.Minute,
		log:     log.With().Str("job", "warm_basket").Logger(),
	}
}

// Run executes the warm-up. Series that failed are reported together after
// the rest were fetched.
func (j *WarmBasketJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	warmed, err := j.warmer.Warm(ctx)
	if err != nil {
		j.log.Warn().Err(err).Int("warmed", warmed).Msg("Basket warm-up incomplete")
		return err
	}
	j.log.Info().Int("warmed", warmed).Msg("Basket warm-up completed")
	return nil
}

// Name returns the job name
func (j *WarmBasketJob) Name() string {
	return "warm_basket"
}
