package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const topicColumns = `id, owner_id, title, description, category, keywords_json,
	idea_count, target_word_count, persona, status, error_message, created_at, updated_at`

// CreateTopic inserts a new topic and populates its ID and timestamps.
func (s *Store) CreateTopic(ctx context.Context, topic *Topic) error {
	if topic.Status == "" {
		topic.Status = TopicPending
	}
	now := time.Now().UTC()
	topic.CreatedAt = now
	topic.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `INSERT INTO topics (
		owner_id, title, description, category, keywords_json,
		idea_count, target_word_count, persona, status, error_message,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		topic.OwnerID,
		topic.Title,
		nullableString(topic.Description),
		nullableString(topic.Category),
		encodeStrings(topic.Keywords),
		topic.IdeaCount,
		topic.TargetWordCount,
		nullableString(topic.Persona),
		string(topic.Status),
		nullableString(topic.ErrorMessage),
		timestamp(topic.CreatedAt),
		timestamp(topic.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert topic: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("topic insert id: %w", err)
	}
	topic.ID = id
	return nil
}

// GetTopic returns the topic with the given ID, or nil when it does not exist.
func (s *Store) GetTopic(ctx context.Context, id int64) (*Topic, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM topics WHERE id = ?", topicColumns), id)
	topic, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get topic %d: %w", id, err)
	}
	return topic, nil
}

// ListTopics returns topics ordered by creation time, optionally filtered by
// status. Passing an empty slice returns all topics.
func (s *Store) ListTopics(ctx context.Context, statuses ...TopicStatus) ([]*Topic, error) {
	query := fmt.Sprintf("SELECT %s FROM topics", topicColumns)
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
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	var topics []*Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// UpdateTopic persists all mutable fields of the topic.
func (s *Store) UpdateTopic(ctx context.Context, topic *Topic) error {
	topic.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE topics SET
		owner_id = ?, title = ?, description = ?, category = ?, keywords_json = ?,
		idea_count = ?, target_word_count = ?, persona = ?, status = ?,
		error_message = ?, updated_at = ?
	WHERE id = ?`,
		topic.OwnerID,
		topic.Title,
		nullableString(topic.Description),
		nullableString(topic.Category),
		encodeStrings(topic.Keywords),
		topic.IdeaCount,
		topic.TargetWordCount,
		nullableString(topic.Persona),
		string(topic.Status),
		nullableString(topic.ErrorMessage),
		timestamp(topic.UpdatedAt),
		topic.ID,
	)
	if err != nil {
		return fmt.Errorf("update topic %d: %w", topic.ID, err)
	}
	return nil
}

// DeleteTopic removes a topic. Ideas, research, and downstream records are
// removed by cascade. Returns the number of topics deleted.
func (s *Store) DeleteTopic(ctx context.Context, id int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM topics WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("delete topic %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete topic rows affected: %w", err)
	}
	return affected, nil
}

// SetTopicStatus flips a topic between lifecycle states, enforcing that the
// current status matches one of the expected values. Returns
// ErrInvalidTransition when the topic is not in an expected state.
func (s *Store) SetTopicStatus(ctx context.Context, id int64, to TopicStatus, from ...TopicStatus) error {
	query := "UPDATE topics SET status = ?, updated_at = ? WHERE id = ?"
	args := []any{string(to), timestamp(time.Now().UTC()), id}
	if len(from) > 0 {
		query += fmt.Sprintf(" AND status IN (%s)", makePlaceholders(len(from)))
		for _, status := range from {
			args = append(args, string(status))
		}
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set topic %d status: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set topic status rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTopic(row rowScanner) (*Topic, error) {
	var (
		topic        Topic
		description  sql.NullString
		category     sql.NullString
		keywords     sql.NullString
		persona      sql.NullString
		status       string
		errorMessage sql.NullString
		createdAt    string
		updatedAt    string
	)
	if err := row.Scan(
		&topic.ID,
		&topic.OwnerID,
		&topic.Title,
		&description,
		&category,
		&keywords,
		&topic.IdeaCount,
		&topic.TargetWordCount,
		&persona,
		&status,
		&errorMessage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	topic.Description = description.String
	topic.Category = category.String
	topic.Keywords = decodeStrings(keywords)
	topic.Persona = persona.String
	topic.Status = TopicStatus(status)
	topic.ErrorMessage = errorMessage.String
	if t, err := parseTimeString(createdAt); err == nil {
		topic.CreatedAt = t
	}
	if t, err := parseTimeString(updatedAt); err == nil {
		topic.UpdatedAt = t
	}
	return &topic, nil
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			placeholders = append(placeholders, ", "...)
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
