package store

import (
	"context"
	"fmt"
)

// GetOverview aggregates per-status entity counts across the whole pipeline.
func (s *Store) GetOverview(ctx context.Context) (*Overview, error) {
	overview := &Overview{
		Topics:      make(map[TopicStatus]int),
		Ideas:       make(map[IdeaStatus]int),
		Research:    make(map[ResearchStatus]int),
		BlogPosts:   make(map[PostStatus]int),
		Assets:      make(map[AssetStatus]int),
		SocialPosts: make(map[SocialStatus]int),
	}

	if err := countByStatus(ctx, s, "topics", func(status string, count int) {
		overview.Topics[TopicStatus(status)] = count
	}); err != nil {
		return nil, err
	}
	if err := countByStatus(ctx, s, "ideas", func(status string, count int) {
		overview.Ideas[IdeaStatus(status)] = count
	}); err != nil {
		return nil, err
	}
	if err := countByStatus(ctx, s, "research", func(status string, count int) {
		overview.Research[ResearchStatus(status)] = count
	}); err != nil {
		return nil, err
	}
	if err := countByStatus(ctx, s, "blog_posts", func(status string, count int) {
		overview.BlogPosts[PostStatus(status)] = count
	}); err != nil {
		return nil, err
	}
	if err := countByStatus(ctx, s, "assets", func(status string, count int) {
		overview.Assets[AssetStatus(status)] = count
	}); err != nil {
		return nil, err
	}
	if err := countByStatus(ctx, s, "social_posts", func(status string, count int) {
		overview.SocialPosts[SocialStatus(status)] = count
	}); err != nil {
		return nil, err
	}

	return overview, nil
}

func countByStatus(ctx context.Context, s *Store, table string, record func(status string, count int)) error {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT status, COUNT(*) FROM %s GROUP BY status", table))
	if err != nil {
		return fmt.Errorf("count %s by status: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return fmt.Errorf("scan %s count: %w", table, err)
		}
		record(status, count)
	}
	return rows.Err()
}
