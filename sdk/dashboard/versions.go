package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Version approval statuses.
const (
	VersionPending  = "PENDING"
	VersionApproved = "APPROVED"
	VersionRejected = "REJECTED"
	VersionMigrated = "MIGRATED"
)

// Version is one catalog version as the server reports it.
type Version struct {
	ID              string `json:"id"`
	VersionName     string `json:"version_name"`
	Description     string `json:"description"`
	ApprovalStatus  string `json:"approval_status"`
	MainSyncStatus  string `json:"main_sync_status"`
	RejectionReason string `json:"rejection_reason"`
	CreatorName     string `json:"creator_name"`
	ApproverName    string `json:"approver_name"`
	ApprovedAt      string `json:"approved_at"`
	MigrationDate   string `json:"migration_date"`
	CreatedAt       string `json:"created_at"`

	// PushFailed marks an approval whose main-DB push failed. The approval
	// stands; the push must be retried manually via UploadToMain.
	PushFailed bool `json:"push_failed"`
}

// EntityCounts sizes one version's staging tree.
type EntityCounts struct {
	Brands       int64 `json:"brands"`
	VehicleLines int64 `json:"vehicle_lines"`
	Models       int64 `json:"models"`
	Trims        int64 `json:"trims"`
	Options      int64 `json:"options"`
}

// VersionDetail is a version plus its staging entity counts.
type VersionDetail struct {
	Version
	Counts EntityCounts `json:"counts"`
}

// Pagination is the server's list envelope. Pages are 1-indexed.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalCount  int64 `json:"total_count"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// VersionList is one page of versions.
type VersionList struct {
	Versions   []Version  `json:"versions"`
	Pagination Pagination `json:"pagination"`
}

// ListVersions fetches one page, optionally filtered by status.
func (c *Client) ListVersions(ctx context.Context, status string, page, limit int) (*VersionList, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))
	if status != "" {
		q.Set("status", status)
	}

	var list VersionList
	if err := c.get(ctx, "/api/versions?"+q.Encode(), &list); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return &list, nil
}

// GetVersion fetches one version with counts.
func (c *Client) GetVersion(ctx context.Context, versionID string) (*VersionDetail, error) {
	var detail VersionDetail
	if err := c.get(ctx, "/api/versions/"+versionID, &detail); err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return &detail, nil
}

// CreateVersion creates a new PENDING version.
func (c *Client) CreateVersion(ctx context.Context, name, description string) (*Version, error) {
	body := map[string]string{"version_name": name, "description": description}

	var version Version
	if err := c.do(ctx, http.MethodPost, "/api/versions", body, &version); err != nil {
		return nil, fmt.Errorf("create version: %w", err)
	}
	return &version, nil
}

// DeleteVersion removes a version. The server refuses MIGRATED versions.
func (c *Client) DeleteVersion(ctx context.Context, versionID string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/versions/"+versionID, nil, nil); err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	return nil
}

// ApproveVersion approves a PENDING version. Refused locally, without any
// network call, when the session's user cannot approve.
func (c *Client) ApproveVersion(ctx context.Context, versionID string) (*Version, error) {
	if !c.auth.User().CanApprove() {
		return nil, fmt.Errorf("approving requires the ADMIN role or a MANAGER/CEO position")
	}

	var version Version
	if err := c.do(ctx, http.MethodPost, "/api/versions/"+versionID+"/approve", nil, &version); err != nil {
		return nil, fmt.Errorf("approve version: %w", err)
	}
	return &version, nil
}

// RejectVersion rejects a PENDING version. The reason is checked locally
// before any request is sent.
func (c *Client) RejectVersion(ctx context.Context, versionID, reason string) (*Version, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("a rejection reason is required")
	}
	if !c.auth.User().CanApprove() {
		return nil, fmt.Errorf("rejecting requires the ADMIN role or a MANAGER/CEO position")
	}

	body := map[string]string{"reason": reason}
	var version Version
	if err := c.do(ctx, http.MethodPost, "/api/versions/"+versionID+"/reject", body, &version); err != nil {
		return nil, fmt.Errorf("reject version: %w", err)
	}
	return &version, nil
}

// MigrateVersion moves an APPROVED version to MIGRATED.
func (c *Client) MigrateVersion(ctx context.Context, versionID string) (*Version, error) {
	var version Version
	if err := c.do(ctx, http.MethodPost, "/api/versions/"+versionID+"/migrate", nil, &version); err != nil {
		return nil, fmt.Errorf("migrate version: %w", err)
	}
	return &version, nil
}

// UploadToMain pushes the version's staging tree over the main mirror. Also
// the manual retry path after a PushFailed approval.
func (c *Client) UploadToMain(ctx context.Context, versionID string) (*Version, error) {
	var version Version
	if err := c.do(ctx, http.MethodPost, "/api/versions/"+versionID+"/upload-to-main", nil, &version); err != nil {
		return nil, fmt.Errorf("upload to main: %w", err)
	}
	return &version, nil
}

// DownloadFromMain resets the version's staging tree from the main mirror.
// The server forces the version back to PENDING.
func (c *Client) DownloadFromMain(ctx context.Context, versionID string) (*Version, error) {
	var version Version
	if err := c.do(ctx, http.MethodPost, "/api/versions/"+versionID+"/download-from-main", nil, &version); err != nil {
		return nil, fmt.Errorf("download from main: %w", err)
	}
	return &version, nil
}
