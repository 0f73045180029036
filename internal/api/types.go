package api

import "time"

// TopicView is the transport representation of a topic.
type TopicView struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category,omitempty"`
	Keywords        []string  `json:"keywords,omitempty"`
	IdeaCount       int       `json:"idea_count"`
	TargetWordCount int       `json:"target_word_count"`
	Persona         string    `json:"persona,omitempty"`
	Status          string    `json:"status"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IdeaView is the transport representation of an idea.
type IdeaView struct {
	ID               int64     `json:"id"`
	TopicID          int64     `json:"topic_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Angle            string    `json:"angle,omitempty"`
	CurrentEventHook string    `json:"current_event_hook,omitempty"`
	IsApproved       bool      `json:"is_approved"`
	IsRejected       bool      `json:"is_rejected"`
	UserNotes        string    `json:"user_notes,omitempty"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SourceView is the transport representation of a cited source.
type SourceView struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Publication   string `json:"publication,omitempty"`
	Author        string `json:"author,omitempty"`
	DatePublished string `json:"date_published,omitempty"`
	Excerpt       string `json:"excerpt,omitempty"`
}

// ResearchView is the transport representation of a research record.
type ResearchView struct {
	ID              int64        `json:"id"`
	IdeaID          int64        `json:"idea_id"`
	ResearchPrompt  string       `json:"research_prompt,omitempty"`
	KeyFindings     []string     `json:"key_findings,omitempty"`
	OutlineJSON     string       `json:"outline_json,omitempty"`
	Sources         []SourceView `json:"sources,omitempty"`
	SourceCount     int          `json:"source_count"`
	Model           string       `json:"model,omitempty"`
	TokensUsed      int          `json:"tokens_used"`
	DurationSeconds float64      `json:"duration_seconds"`
	Status          string       `json:"status"`
	ErrorMessage    string       `json:"error_message,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// BlogPostView is the transport representation of a blog post.
type BlogPostView struct {
	ID         int64     `json:"id"`
	IdeaID     int64     `json:"idea_id"`
	Persona    string    `json:"persona,omitempty"`
	Title      string    `json:"title"`
	Content    string    `json:"content,omitempty"`
	WordCount  int       `json:"word_count"`
	Tags       []string  `json:"tags,omitempty"`
	IsApproved bool      `json:"is_approved"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// JobView is the transport representation of a job status snapshot.
type JobView struct {
	Handle             string         `json:"handle"`
	Stage              string         `json:"stage,omitempty"`
	EntityID           int64          `json:"entity_id,omitempty"`
	State              string         `json:"state"`
	CurrentStep        int            `json:"current_step"`
	TotalSteps         int            `json:"total_steps"`
	StatusText         string         `json:"status_text,omitempty"`
	Result             map[string]any `json:"result,omitempty"`
	Error              string         `json:"error,omitempty"`
	SuppressedFailures int            `json:"suppressed_failures,omitempty"`
	Caveat             string         `json:"caveat,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	StartedAt          *time.Time     `json:"started_at,omitempty"`
	FinishedAt         *time.Time     `json:"finished_at,omitempty"`
}

// OverviewView aggregates per-status entity counts plus job counts.
type OverviewView struct {
	Topics      map[string]int `json:"topics"`
	Ideas       map[string]int `json:"ideas"`
	Research    map[string]int `json:"research"`
	BlogPosts   map[string]int `json:"blog_posts"`
	Assets      map[string]int `json:"assets"`
	SocialPosts map[string]int `json:"social_posts"`
	Jobs        map[string]int `json:"jobs"`
}
