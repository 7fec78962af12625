package redishandler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/saxenaaman628/krathong-voting/internal/models"
)

func (s *Store) GetSettings(ctx context.Context) (models.AppConfig, error) {
	data, err := s.rdb.HGetAll(ctx, s.keys.settings()).Result()
	if err != nil {
		return models.AppConfig{}, fmt.Errorf("read settings: %w", err)
	}
	return decodeSettings(data), nil
}

// UpdateSettings applies patch and stamps who changed it.
func (s *Store) UpdateSettings(ctx context.Context, patch models.SettingsPatch, updatedBy string) (models.AppConfig, error) {
	fields := map[string]interface{}{
		"last_updated": s.now().UTC().Format(time.RFC3339Nano),
		"updated_by":   updatedBy,
	}
	if patch.RegistrationEnabled != nil {
		fields["registration_enabled"] = strconv.FormatBool(*patch.RegistrationEnabled)
	}
	if patch.VotingEnabled != nil {
		fields["voting_enabled"] = strconv.FormatBool(*patch.VotingEnabled)
	}
	if err := s.rdb.HSet(ctx, s.keys.settings(), fields).Err(); err != nil {
		return models.AppConfig{}, fmt.Errorf("write settings: %w", err)
	}
	s.log.Info().Str("updated_by", updatedBy).Interface("patch", patch).Msg("settings updated")
	return s.GetSettings(ctx)
}

// decodeSettings treats absent flags as enabled.
func decodeSettings(data map[string]string) models.AppConfig {
	cfg := models.AppConfig{
		RegistrationEnabled: parseFlag(data["registration_enabled"]),
		VotingEnabled:       parseFlag(data["voting_enabled"]),
		UpdatedBy:           data["updated_by"],
	}
	if t := parseTime(data["last_updated"]); t != nil {
		cfg.LastUpdated = *t
	}
	return cfg
}

func parseFlag(raw string) bool {
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	return err != nil || v
}
