package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const assetColumns = `id, blog_post_id, owner_id, asset_type, file_path,
	params_json, status, error_message, created_at, updated_at`

// CreateAsset inserts a new asset record attached to a blog post.
func (s *Store) CreateAsset(ctx context.Context, asset *Asset) error {
	if asset.Status == "" {
		asset.Status = AssetPending
	}
	now := time.Now().UTC()
	asset.CreatedAt = now
	asset.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `INSERT INTO assets (
		blog_post_id, owner_id, asset_type, file_path, params_json,
		status, error_message, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.BlogPostID,
		asset.OwnerID,
		asset.AssetType,
		nullableString(asset.FilePath),
		nullableString(asset.ParamsJSON),
		string(asset.Status),
		nullableString(asset.ErrorMessage),
		timestamp(asset.CreatedAt),
		timestamp(asset.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("asset insert id: %w", err)
	}
	asset.ID = id
	return nil
}

// GetAsset returns the asset with the given ID, or nil when it does not exist.
func (s *Store) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM assets WHERE id = ?", assetColumns), id)
	asset, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %d: %w", id, err)
	}
	return asset, nil
}

// ListAssetsByPost returns all assets attached to a blog post.
func (s *Store) ListAssetsByPost(ctx context.Context, blogPostID int64) ([]*Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM assets WHERE blog_post_id = ? ORDER BY created_at ASC, id ASC", assetColumns),
		blogPostID)
	if err != nil {
		return nil, fmt.Errorf("list assets for post %d: %w", blogPostID, err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// UpdateAsset persists all mutable fields of the asset.
func (s *Store) UpdateAsset(ctx context.Context, asset *Asset) error {
	asset.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE assets SET
		asset_type = ?, file_path = ?, params_json = ?, status = ?,
		error_message = ?, updated_at = ?
	WHERE id = ?`,
		asset.AssetType,
		nullableString(asset.FilePath),
		nullableString(asset.ParamsJSON),
		string(asset.Status),
		nullableString(asset.ErrorMessage),
		timestamp(asset.UpdatedAt),
		asset.ID,
	)
	if err != nil {
		return fmt.Errorf("update asset %d: %w", asset.ID, err)
	}
	return nil
}

func scanAsset(row rowScanner) (*Asset, error) {
	var (
		asset        Asset
		filePath     sql.NullString
		params       sql.NullString
		status       string
		errorMessage sql.NullString
		createdAt    string
		updatedAt    string
	)
	if err := row.Scan(
		&asset.ID,
		&asset.BlogPostID,
		&asset.OwnerID,
		&asset.AssetType,
		&filePath,
		&params,
		&status,
		&errorMessage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	asset.FilePath = filePath.String
	asset.ParamsJSON = params.String
	asset.Status = AssetStatus(status)
	asset.ErrorMessage = errorMessage.String
	if t, err := parseTimeString(createdAt); err == nil {
		asset.CreatedAt = t
	}
	if t, err := parseTimeString(updatedAt); err == nil {
		asset.UpdatedAt = t
	}
	return &asset, nil
}
