package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const researchColumns = `id, idea_id, owner_id, research_prompt, key_findings_json,
	outline_json, sources_json, source_count, model, tokens_used, duration_seconds,
	status, error_message, created_at, updated_at`

// GetResearch returns the research record with the given ID, or nil when it
// does not exist.
func (s *Store) GetResearch(ctx context.Context, id int64) (*Research, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM research WHERE id = ?", researchColumns), id)
	research, err := scanResearch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get research %d: %w", id, err)
	}
	return research, nil
}

// GetResearchByIdea returns the research record for an idea, or nil when the
// idea has no research yet.
func (s *Store) GetResearchByIdea(ctx context.Context, ideaID int64) (*Research, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM research WHERE idea_id = ?", researchColumns), ideaID)
	research, err := scanResearch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get research for idea %d: %w", ideaID, err)
	}
	return research, nil
}

// ListResearch returns research records, optionally filtered by status.
func (s *Store) ListResearch(ctx context.Context, statuses ...ResearchStatus) ([]*Research, error) {
	query := fmt.Sprintf("SELECT %s FROM research", researchColumns)
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
		return nil, fmt.Errorf("list research: %w", err)
	}
	defer rows.Close()

	var records []*Research
	for rows.Next() {
		research, err := scanResearch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan research: %w", err)
		}
		records = append(records, research)
	}
	return records, rows.Err()
}

// UpdateResearch persists all mutable fields of the research record.
func (s *Store) UpdateResearch(ctx context.Context, research *Research) error {
	research.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE research SET
		research_prompt = ?, key_findings_json = ?, outline_json = ?, sources_json = ?,
		source_count = ?, model = ?, tokens_used = ?, duration_seconds = ?,
		status = ?, error_message = ?, updated_at = ?
	WHERE id = ?`,
		nullableString(research.ResearchPrompt),
		encodeStrings(research.KeyFindings),
		nullableString(research.OutlineJSON),
		encodeSources(research.Sources),
		research.SourceCount,
		nullableString(research.Model),
		research.TokensUsed,
		research.DurationSeconds,
		string(research.Status),
		nullableString(research.ErrorMessage),
		timestamp(research.UpdatedAt),
		research.ID,
	)
	if err != nil {
		return fmt.Errorf("update research %d: %w", research.ID, err)
	}
	return nil
}

// CompleteResearch persists the finished research record and flips its idea
// from researching to researched in the same transaction. When the idea is
// no longer researching it returns ErrInvalidTransition and the research
// update rolls back with it.
func (s *Store) CompleteResearch(ctx context.Context, research *Research) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	research.Status = ResearchCompleted
	research.ErrorMessage = ""
	research.UpdatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE research SET
		research_prompt = ?, key_findings_json = ?, outline_json = ?, sources_json = ?,
		source_count = ?, model = ?, tokens_used = ?, duration_seconds = ?,
		status = ?, error_message = NULL, updated_at = ?
	WHERE id = ?`,
		nullableString(research.ResearchPrompt),
		encodeStrings(research.KeyFindings),
		nullableString(research.OutlineJSON),
		encodeSources(research.Sources),
		research.SourceCount,
		nullableString(research.Model),
		research.TokensUsed,
		research.DurationSeconds,
		string(research.Status),
		timestamp(research.UpdatedAt),
		research.ID,
	); err != nil {
		return fmt.Errorf("update research %d: %w", research.ID, err)
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE ideas SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(IdeaResearched), timestamp(research.UpdatedAt), research.IdeaID, string(IdeaResearching))
	if err != nil {
		return fmt.Errorf("complete idea %d: %w", research.IdeaID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete idea rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInvalidTransition
	}

	return tx.Commit()
}

func scanResearch(row rowScanner) (*Research, error) {
	var (
		research     Research
		prompt       sql.NullString
		keyFindings  sql.NullString
		outline      sql.NullString
		sources      sql.NullString
		model        sql.NullString
		status       string
		errorMessage sql.NullString
		createdAt    string
		updatedAt    string
	)
	if err := row.Scan(
		&research.ID,
		&research.IdeaID,
		&research.OwnerID,
		&prompt,
		&keyFindings,
		&outline,
		&sources,
		&research.SourceCount,
		&model,
		&research.TokensUsed,
		&research.DurationSeconds,
		&status,
		&errorMessage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	research.ResearchPrompt = prompt.String
	research.KeyFindings = decodeStrings(keyFindings)
	research.OutlineJSON = outline.String
	research.Sources = decodeSources(sources)
	research.Model = model.String
	research.Status = ResearchStatus(status)
	research.ErrorMessage = errorMessage.String
	if t, err := parseTimeString(createdAt); err == nil {
		research.CreatedAt = t
	}
	if t, err := parseTimeString(updatedAt); err == nil {
		research.UpdatedAt = t
	}
	return &research, nil
}
