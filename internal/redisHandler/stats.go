package redishandler

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/saxenaaman628/krathong-voting/internal/models"
)

func (s *Store) Stats(ctx context.Context) (models.VotingStats, error) {
	var stats models.VotingStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ranked, err := s.rdb.ZRangeWithScores(gctx, s.keys.scores(), 0, -1).Result()
		if err != nil {
			return fmt.Errorf("read scores: %w", err)
		}
		stats.TotalTeams = int64(len(ranked))
		for _, z := range ranked {
			stats.TotalScore += int64(z.Score)
		}
		return nil
	})
	g.Go(func() error {
		counts, err := s.rdb.HVals(gctx, s.keys.votes()).Result()
		if err != nil {
			return fmt.Errorf("read vote counts: %w", err)
		}
		for _, c := range counts {
			n, _ := strconv.ParseInt(c, 10, 64)
			stats.TotalVotes += n
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.VotingStats{}, err
	}

	stats.AverageVotes = average(stats.TotalVotes, stats.TotalTeams)
	stats.AverageScore = average(stats.TotalScore, stats.TotalTeams)
	return stats, nil
}

// Status is the admin dashboard summary. A Redis outage is reported in the
// result rather than as an error.
func (s *Store) Status(ctx context.Context) models.SystemStatus {
	status := models.SystemStatus{
		ServerTime:   s.now().UTC(),
		SystemStatus: models.StatusOnline,
	}
	if err := s.Ping(ctx); err != nil {
		s.log.Error().Err(err).Msg("status: redis unreachable")
		status.SystemStatus = models.StatusOffline
		return status
	}

	var cfg models.AppConfig
	var stats models.VotingStats
	var users int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cfg, err = s.GetSettings(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats, err = s.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		users, err = s.rdb.SCard(gctx, s.keys.voters()).Result()
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Msg("status: partial read")
		status.SystemStatus = models.StatusError
		return status
	}
	status.Config = cfg
	status.Stats = stats
	status.TotalUsers = users
	return status
}

func average(total, n int64) string {
	if n == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(total)/float64(n))
}
