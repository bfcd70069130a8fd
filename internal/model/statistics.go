package model

import "github.com/google/uuid"

// VersionStatusCount is one row of the versions-by-status breakdown.
type VersionStatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// EntityCounts aggregates the size of one version's staging tree.
type EntityCounts struct {
	Brands       int64 `json:"brands"`
	VehicleLines int64 `json:"vehicle_lines"`
	Models       int64 `json:"models"`
	Trims        int64 `json:"trims"`
	Options      int64 `json:"options"`
}

// PolicyTypeCount is one row of the active-policies-by-type breakdown.
type PolicyTypeCount struct {
	PolicyType string `json:"policy_type"`
	Count      int64  `json:"count"`
}

// StatisticsResponse is the dashboard aggregate payload.
type StatisticsResponse struct {
	VersionsByStatus []VersionStatusCount `json:"versions_by_status"`
	LatestVersionID  *uuid.UUID           `json:"latest_version_id"`
	StagingCounts    EntityCounts         `json:"staging_counts"` // latest PENDING version
	MainCounts       EntityCounts         `json:"main_counts"`
	ActivePolicies   []PolicyTypeCount    `json:"active_policies"`
	RecentJobs       []ImportJob          `json:"recent_jobs"`
	TotalUsers       int64                `json:"total_users"`
}
