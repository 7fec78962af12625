package models

import "time"

type AppConfig struct {
	RegistrationEnabled bool      `json:"registrationEnabled"`
	VotingEnabled       bool      `json:"votingEnabled"`
	LastUpdated         time.Time `json:"lastUpdated"`
	UpdatedBy           string    `json:"updatedBy"`
}

// SettingsPatch carries the flags an admin wants to change; nil leaves a flag
// as it is.
type SettingsPatch struct {
	RegistrationEnabled *bool `json:"registrationEnabled"`
	VotingEnabled       *bool `json:"votingEnabled"`
}

type VotingStats struct {
	TotalVotes   int64  `json:"totalVotes"`
	TotalTeams   int64  `json:"totalTeams"`
	TotalScore   int64  `json:"totalScore"`
	AverageVotes string `json:"averageVotes"`
	AverageScore string `json:"averageScore"`
}

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusError   = "error"
)

type SystemStatus struct {
	Config       AppConfig   `json:"config"`
	Stats        VotingStats `json:"stats"`
	ServerTime   time.Time   `json:"serverTime"`
	TotalUsers   int64       `json:"totalUsers"`
	SystemStatus string      `json:"systemStatus"`
}
