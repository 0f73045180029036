package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const ideaColumns = `id, topic_id, owner_id, title, description, angle,
	current_event_hook, is_approved, is_rejected, user_notes, status, created_at, updated_at`

// GetIdea returns the idea with the given ID, or nil when it does not exist.
func (s *Store) GetIdea(ctx context.Context, id int64) (*Idea, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM ideas WHERE id = ?", ideaColumns), id)
	idea, err := scanIdea(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idea %d: %w", id, err)
	}
	return idea, nil
}

// ListIdeasByTopic returns all ideas under a topic in creation order.
func (s *Store) ListIdeasByTopic(ctx context.Context, topicID int64) ([]*Idea, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM ideas WHERE topic_id = ? ORDER BY created_at ASC, id ASC", ideaColumns),
		topicID)
	if err != nil {
		return nil, fmt.Errorf("list ideas for topic %d: %w", topicID, err)
	}
	defer rows.Close()

	var ideas []*Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

// ListIdeas returns ideas across all topics, optionally filtered by status.
func (s *Store) ListIdeas(ctx context.Context, statuses ...IdeaStatus) ([]*Idea, error) {
	query := fmt.Sprintf("SELECT %s FROM ideas", ideaColumns)
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
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	defer rows.Close()

	var ideas []*Idea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

// CompleteIdeaGeneration persists a batch of generated ideas and flips the
// owning topic to completed in one transaction. The batch may be empty; the
// topic still completes so a fully-suppressed generation run is visible as a
// finished topic with zero ideas.
func (s *Store) CompleteIdeaGeneration(ctx context.Context, topicID int64, ideas []*Idea) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, idea := range ideas {
		idea.TopicID = topicID
		if idea.Status == "" {
			idea.Status = IdeaGenerated
		}
		idea.CreatedAt = now
		idea.UpdatedAt = now
		result, err := tx.ExecContext(ctx, `INSERT INTO ideas (
			topic_id, owner_id, title, description, angle, current_event_hook,
			is_approved, is_rejected, user_notes, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			idea.TopicID,
			idea.OwnerID,
			idea.Title,
			nullableString(idea.Description),
			nullableString(idea.Angle),
			nullableString(idea.CurrentEventHook),
			boolToInt(idea.IsApproved),
			boolToInt(idea.IsRejected),
			nullableString(idea.UserNotes),
			string(idea.Status),
			timestamp(idea.CreatedAt),
			timestamp(idea.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert idea: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("idea insert id: %w", err)
		}
		idea.ID = id
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE topics SET status = ?, error_message = NULL, updated_at = ? WHERE id = ?",
		string(TopicCompleted), timestamp(now), topicID); err != nil {
		return fmt.Errorf("complete topic %d: %w", topicID, err)
	}

	return tx.Commit()
}

// ApproveIdea marks a generated idea as approved. Approval and rejection are
// mutually exclusive, so an already-rejected idea cannot be approved.
func (s *Store) ApproveIdea(ctx context.Context, id int64, notes string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE ideas SET
		is_approved = 1, is_rejected = 0, status = ?, user_notes = ?, updated_at = ?
	WHERE id = ? AND status = ? AND is_rejected = 0`,
		string(IdeaApproved),
		nullableString(notes),
		timestamp(time.Now().UTC()),
		id,
		string(IdeaGenerated),
	)
	if err != nil {
		return fmt.Errorf("approve idea %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve idea rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// RejectIdea marks a generated idea as rejected. An already-approved idea
// cannot be rejected.
func (s *Store) RejectIdea(ctx context.Context, id int64, notes string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE ideas SET
		is_rejected = 1, is_approved = 0, status = ?, user_notes = ?, updated_at = ?
	WHERE id = ? AND status = ? AND is_approved = 0`,
		string(IdeaRejected),
		nullableString(notes),
		timestamp(time.Now().UTC()),
		id,
		string(IdeaGenerated),
	)
	if err != nil {
		return fmt.Errorf("reject idea %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reject idea rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// ClaimIdeaForResearch atomically flips an approved idea to researching and
// creates its pending research record. When two callers race, exactly one
// succeeds; the loser receives ErrNotClaimable (lost the status flip) or
// ErrResearchExists (a research row already exists).
func (s *Store) ClaimIdeaForResearch(ctx context.Context, ideaID int64) (*Research, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM research WHERE idea_id = ?", ideaID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check existing research: %w", err)
	}
	if exists > 0 {
		return nil, ErrResearchExists
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `UPDATE ideas SET status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND is_approved = 1`,
		string(IdeaResearching), timestamp(now), ideaID, string(IdeaApproved))
	if err != nil {
		return nil, fmt.Errorf("claim idea %d: %w", ideaID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim idea rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotClaimable
	}

	research := &Research{
		IdeaID:    ideaID,
		Status:    ResearchPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	insert, err := tx.ExecContext(ctx, `INSERT INTO research (
		idea_id, owner_id, status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?)`,
		research.IdeaID,
		research.OwnerID,
		string(research.Status),
		timestamp(research.CreatedAt),
		timestamp(research.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert research for idea %d: %w", ideaID, err)
	}
	id, err := insert.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("research insert id: %w", err)
	}
	research.ID = id

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return research, nil
}

// SetIdeaStatus flips an idea between lifecycle states, enforcing that the
// current status matches one of the expected values.
func (s *Store) SetIdeaStatus(ctx context.Context, id int64, to IdeaStatus, from ...IdeaStatus) error {
	query := "UPDATE ideas SET status = ?, updated_at = ? WHERE id = ?"
	args := []any{string(to), timestamp(time.Now().UTC()), id}
	if len(from) > 0 {
		query += fmt.Sprintf(" AND status IN (%s)", makePlaceholders(len(from)))
		for _, status := range from {
			args = append(args, string(status))
		}
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set idea %d status: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set idea status rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func scanIdea(row rowScanner) (*Idea, error) {
	var (
		idea        Idea
		description sql.NullString
		angle       sql.NullString
		hook        sql.NullString
		approved    int
		rejected    int
		notes       sql.NullString
		status      string
		createdAt   string
		updatedAt   string
	)
	if err := row.Scan(
		&idea.ID,
		&idea.TopicID,
		&idea.OwnerID,
		&idea.Title,
		&description,
		&angle,
		&hook,
		&approved,
		&rejected,
		&notes,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	idea.Description = description.String
	idea.Angle = angle.String
	idea.CurrentEventHook = hook.String
	idea.IsApproved = approved != 0
	idea.IsRejected = rejected != 0
	idea.UserNotes = notes.String
	idea.Status = IdeaStatus(status)
	if t, err := parseTimeString(createdAt); err == nil {
		idea.CreatedAt = t
	}
	if t, err := parseTimeString(updatedAt); err == nil {
		idea.UpdatedAt = t
	}
	return &idea, nil
}
