package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const socialColumns = `id, blog_post_id, owner_id, platform, content, hashtags_json,
	character_count, is_within_limits, status, created_at, updated_at`

// CreateSocialPost inserts a new social post adaptation of a blog post.
func (s *Store) CreateSocialPost(ctx context.Context, post *SocialPost) error {
	if post.Status == "" {
		post.Status = SocialDraft
	}
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `INSERT INTO social_posts (
		blog_post_id, owner_id, platform, content, hashtags_json,
		character_count, is_within_limits, status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.BlogPostID,
		post.OwnerID,
		post.Platform,
		nullableString(post.Content),
		encodeStrings(post.Hashtags),
		post.CharacterCount,
		boolToInt(post.IsWithinLimits),
		string(post.Status),
		timestamp(post.CreatedAt),
		timestamp(post.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert social post: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("social post insert id: %w", err)
	}
	post.ID = id
	return nil
}

// GetSocialPost returns the social post with the given ID, or nil when it
// does not exist.
func (s *Store) GetSocialPost(ctx context.Context, id int64) (*SocialPost, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM social_posts WHERE id = ?", socialColumns), id)
	post, err := scanSocialPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get social post %d: %w", id, err)
	}
	return post, nil
}

// ListSocialPostsByPost returns all social posts derived from a blog post.
func (s *Store) ListSocialPostsByPost(ctx context.Context, blogPostID int64) ([]*SocialPost, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM social_posts WHERE blog_post_id = ? ORDER BY created_at ASC, id ASC", socialColumns),
		blogPostID)
	if err != nil {
		return nil, fmt.Errorf("list social posts for post %d: %w", blogPostID, err)
	}
	defer rows.Close()

	var posts []*SocialPost
	for rows.Next() {
		post, err := scanSocialPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan social post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// UpdateSocialPost persists all mutable fields of the social post.
func (s *Store) UpdateSocialPost(ctx context.Context, post *SocialPost) error {
	post.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE social_posts SET
		platform = ?, content = ?, hashtags_json = ?, character_count = ?,
		is_within_limits = ?, status = ?, updated_at = ?
	WHERE id = ?`,
		post.Platform,
		nullableString(post.Content),
		encodeStrings(post.Hashtags),
		post.CharacterCount,
		boolToInt(post.IsWithinLimits),
		string(post.Status),
		timestamp(post.UpdatedAt),
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("update social post %d: %w", post.ID, err)
	}
	return nil
}

func scanSocialPost(row rowScanner) (*SocialPost, error) {
	var (
		post         SocialPost
		content      sql.NullString
		hashtags     sql.NullString
		withinLimits int
		status       string
		createdAt    string
		updatedAt    string
	)
	if err := row.Scan(
		&post.ID,
		&post.BlogPostID,
		&post.OwnerID,
		&post.Platform,
		&content,
		&hashtags,
		&post.CharacterCount,
		&withinLimits,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	post.Content = content.String
	post.Hashtags = decodeStrings(hashtags)
	post.IsWithinLimits = withinLimits != 0
	post.Status = SocialStatus(status)
	if t, err := parseTimeString(createdAt); err == nil {
		post.CreatedAt = t
	}
	if t, err := parseTimeString(updatedAt); err == nil {
		post.UpdatedAt = t
	}
	return &post, nil
}
