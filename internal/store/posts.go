package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const postColumns = `id, idea_id, owner_id, persona, title, content, word_count,
	tags_json, is_approved, status, created_at, updated_at`

// CreateBlogPost inserts a new blog post draft for an idea. The UNIQUE
// constraint on idea_id keeps drafts one-per-idea.
func (s *Store) CreateBlogPost(ctx context.Context, post *BlogPost) error {
	if post.Status == "" {
		post.Status = PostDraft
	}
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `INSERT INTO blog_posts (
		idea_id, owner_id, persona, title, content, word_count,
		tags_json, is_approved, status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.IdeaID,
		post.OwnerID,
		nullableString(post.Persona),
		post.Title,
		nullableString(post.Content),
		post.WordCount,
		encodeStrings(post.Tags),
		boolToInt(post.IsApproved),
		string(post.Status),
		timestamp(post.CreatedAt),
		timestamp(post.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert blog post: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("blog post insert id: %w", err)
	}
	post.ID = id
	return nil
}

// GetBlogPost returns the blog post with the given ID, or nil when it does
// not exist.
func (s *Store) GetBlogPost(ctx context.Context, id int64) (*BlogPost, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM blog_posts WHERE id = ?", postColumns), id)
	post, err := scanBlogPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get blog post %d: %w", id, err)
	}
	return post, nil
}

// GetBlogPostByIdea returns the blog post drafted from an idea, or nil.
func (s *Store) GetBlogPostByIdea(ctx context.Context, ideaID int64) (*BlogPost, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM blog_posts WHERE idea_id = ?", postColumns), ideaID)
	post, err := scanBlogPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get blog post for idea %d: %w", ideaID, err)
	}
	return post, nil
}

// ListBlogPosts returns blog posts, optionally filtered by status.
func (s *Store) ListBlogPosts(ctx context.Context, statuses ...PostStatus) ([]*BlogPost, error) {
	query := fmt.Sprintf("SELECT %s FROM blog_posts", postColumns)
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += fmt.Sprintf(" WHERE status IN (%s)", makePlaceholders(len(statuses)))
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blog posts: %w", err)
	}
	defer rows.Close()

	var posts []*BlogPost
	for rows.Next() {
		post, err := scanBlogPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blog post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// UpdateBlogPost persists all mutable fields of the blog post.
func (s *Store) UpdateBlogPost(ctx context.Context, post *BlogPost) error {
	post.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE blog_posts SET
		persona = ?, title = ?, content = ?, word_count = ?, tags_json = ?,
		is_approved = ?, status = ?, updated_at = ?
	WHERE id = ?`,
		nullableString(post.Persona),
		post.Title,
		nullableString(post.Content),
		post.WordCount,
		encodeStrings(post.Tags),
		boolToInt(post.IsApproved),
		string(post.Status),
		timestamp(post.UpdatedAt),
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("update blog post %d: %w", post.ID, err)
	}
	return nil
}

// ApproveBlogPost marks a draft blog post as approved for asset generation.
func (s *Store) ApproveBlogPost(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE blog_posts SET
		is_approved = 1, status = ?, updated_at = ?
	WHERE id = ? AND status = ?`,
		string(PostApproved),
		timestamp(time.Now().UTC()),
		id,
		string(PostDraft),
	)
	if err != nil {
		return fmt.Errorf("approve blog post %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve blog post rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// SetBlogPostStatus flips a blog post between lifecycle states, enforcing
// that the current status matches one of the expected values.
func (s *Store) SetBlogPostStatus(ctx context.Context, id int64, to PostStatus, from ...PostStatus) error {
	query := "UPDATE blog_posts SET status = ?, updated_at = ? WHERE id = ?"
	args := []any{string(to), timestamp(time.Now().UTC()), id}
	if len(from) > 0 {
		query += fmt.Sprintf(" AND status IN (%s)", makePlaceholders(len(from)))
		for _, status := range from {
			args = append(args, string(status))
		}
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set blog post %d status: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set blog post status rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func scanBlogPost(row rowScanner) (*BlogPost, error) {
	var (
		post      BlogPost
		persona   sql.NullString
		content   sql.NullString
		tags      sql.NullString
		approved  int
		status    string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(
		&post.ID,
		&post.IdeaID,
		&post.OwnerID,
		&persona,
		&post.Title,
		&content,
		&post.WordCount,
		&tags,
		&approved,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	post.Persona = persona.String
	post.Content = content.String
	post.Tags = decodeStrings(tags)
	post.IsApproved = approved != 0
	post.Status = PostStatus(status)
	if t, err := parseTimeString(createdAt); err == nil {
		post.CreatedAt = t
	}
	if t, err := parseTimeString(updatedAt); err == nil {
		post.UpdatedAt = t
	}
	return &post, nil
}
