// Package api defines transport DTOs shared by the IPC surface and CLI.
package api

import (
	"forge/internal/jobs"
	"forge/internal/store"
)

// FromTopic converts a stored topic into its transport form.
func FromTopic(topic *store.Topic) TopicView {
	return TopicView{
		ID:              topic.ID,
		Title:           topic.Title,
		Description:     topic.Description,
		Category:        topic.Category,
		Keywords:        append([]string(nil), topic.Keywords...),
		IdeaCount:       topic.IdeaCount,
		TargetWordCount: topic.TargetWordCount,
		Persona:         topic.Persona,
		Status:          string(topic.Status),
		ErrorMessage:    topic.ErrorMessage,
		CreatedAt:       topic.CreatedAt,
		UpdatedAt:       topic.UpdatedAt,
	}
}

// FromIdea converts a stored idea into its transport form.
func FromIdea(idea *store.Idea) IdeaView {
	return IdeaView{
		ID:               idea.ID,
		TopicID:          idea.TopicID,
		Title:            idea.Title,
		Description:      idea.Description,
		Angle:            idea.Angle,
		CurrentEventHook: idea.CurrentEventHook,
		IsApproved:       idea.IsApproved,
		IsRejected:       idea.IsRejected,
		UserNotes:        idea.UserNotes,
		Status:           string(idea.Status),
		CreatedAt:        idea.CreatedAt,
		UpdatedAt:        idea.UpdatedAt,
	}
}

// FromSource converts a stored source into its transport form.
func FromSource(source store.Source) SourceView {
	return SourceView{
		URL:           source.URL,
		Title:         source.Title,
		Publication:   source.Publication,
		Author:        source.Author,
		DatePublished: source.DatePublished,
		Excerpt:       source.Excerpt,
	}
}

// FromResearch converts a stored research record into its transport form.
func FromResearch(record *store.Research) ResearchView {
	view := ResearchView{
		ID:              record.ID,
		IdeaID:          record.IdeaID,
		ResearchPrompt:  record.ResearchPrompt,
		KeyFindings:     append([]string(nil), record.KeyFindings...),
		OutlineJSON:     record.OutlineJSON,
		SourceCount:     record.SourceCount,
		Model:           record.Model,
		TokensUsed:      record.TokensUsed,
		DurationSeconds: record.DurationSeconds,
		Status:          string(record.Status),
		ErrorMessage:    record.ErrorMessage,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
	for _, source := range record.Sources {
		view.Sources = append(view.Sources, FromSource(source))
	}
	return view
}

// FromBlogPost converts a stored blog post into its transport form.
func FromBlogPost(post *store.BlogPost) BlogPostView {
	return BlogPostView{
		ID:         post.ID,
		IdeaID:     post.IdeaID,
		Persona:    post.Persona,
		Title:      post.Title,
		Content:    post.Content,
		WordCount:  post.WordCount,
		Tags:       append([]string(nil), post.Tags...),
		IsApproved: post.IsApproved,
		Status:     string(post.Status),
		CreatedAt:  post.CreatedAt,
		UpdatedAt:  post.UpdatedAt,
	}
}

// FromJobStatus converts a scheduler status snapshot into its transport form.
func FromJobStatus(status *jobs.Status) JobView {
	return JobView{
		Handle:             status.Handle,
		Stage:              string(status.Stage),
		EntityID:           status.EntityID,
		State:              string(status.State),
		CurrentStep:        status.CurrentStep,
		TotalSteps:         status.TotalSteps,
		StatusText:         status.StatusText,
		Result:             status.Result,
		Error:              status.Error,
		SuppressedFailures: status.SuppressedFailures,
		Caveat:             status.Caveat,
		CreatedAt:          status.CreatedAt,
		StartedAt:          status.StartedAt,
		FinishedAt:         status.FinishedAt,
	}
}

// FromOverview converts entity and job counts into their transport form.
func FromOverview(overview *store.Overview, jobStats map[jobs.State]int) OverviewView {
	view := OverviewView{
		Topics:      make(map[string]int, len(overview.Topics)),
		Ideas:       make(map[string]int, len(overview.Ideas)),
		Research:    make(map[string]int, len(overview.Research)),
		BlogPosts:   make(map[string]int, len(overview.BlogPosts)),
		Assets:      make(map[string]int, len(overview.Assets)),
		SocialPosts: make(map[string]int, len(overview.SocialPosts)),
		Jobs:        make(map[string]int, len(jobStats)),
	}
	for status, count := range overview.Topics {
		view.Topics[string(status)] = count
	}
	for status, count := range overview.Ideas {
		view.Ideas[string(status)] = count
	}
	for status, count := range overview.Research {
		view.Research[string(status)] = count
	}
	for status, count := range overview.BlogPosts {
		view.BlogPosts[string(status)] = count
	}
	for status, count := range overview.Assets {
		view.Assets[string(status)] = count
	}
	for status, count := range overview.SocialPosts {
		view.SocialPosts[string(status)] = count
	}
	for state, count := range jobStats {
		view.Jobs[string(state)] = count
	}
	return view
}
