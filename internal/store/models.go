package store

import (
	"strings"
	"time"
)

// TopicStatus represents the lifecycle of a topic.
type TopicStatus string

const (
	TopicPending    TopicStatus = "pending"
	TopicProcessing TopicStatus = "processing"
	TopicCompleted  TopicStatus = "completed"
	TopicFailed     TopicStatus = "failed"
)

// IdeaStatus represents the lifecycle of an idea.
type IdeaStatus string

const (
	IdeaGenerated   IdeaStatus = "generated"
	IdeaApproved    IdeaStatus = "approved"
	IdeaRejected    IdeaStatus = "rejected"
	IdeaResearching IdeaStatus = "researching"
	IdeaResearched  IdeaStatus = "researched"
	IdeaWriting     IdeaStatus = "writing"
)

// ResearchStatus represents the lifecycle of a research record.
type ResearchStatus string

const (
	ResearchPending    ResearchStatus = "pending"
	ResearchInProgress ResearchStatus = "researching"
	ResearchCompleted  ResearchStatus = "completed"
	ResearchFailed     ResearchStatus = "failed"
)

// PostStatus represents the lifecycle of a blog post.
type PostStatus string

const (
	PostDraft            PostStatus = "draft"
	PostApproved         PostStatus = "approved"
	PostGeneratingAssets PostStatus = "generating_assets"
	PostCompleted        PostStatus = "completed"
)

// AssetStatus represents the lifecycle of a generated asset.
type AssetStatus string

const (
	AssetPending    AssetStatus = "pending"
	AssetGenerating AssetStatus = "generating"
	AssetCompleted  AssetStatus = "completed"
	AssetFailed     AssetStatus = "failed"
)

// SocialStatus represents the lifecycle of a social post.
type SocialStatus string

const (
	SocialDraft     SocialStatus = "draft"
	SocialApproved  SocialStatus = "approved"
	SocialScheduled SocialStatus = "scheduled"
	SocialPublished SocialStatus = "published"
)

// Topic is a user-supplied subject that seeds the pipeline.
type Topic struct {
	ID              int64
	OwnerID         int64
	Title           string
	Description     string
	Category        string
	Keywords        []string
	IdeaCount       int
	TargetWordCount int
	Persona         string
	Status          TopicStatus
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Idea is a single generated content angle under a topic.
type Idea struct {
	ID               int64
	TopicID          int64
	OwnerID          int64
	Title            string
	Description      string
	Angle            string
	CurrentEventHook string
	IsApproved       bool
	IsRejected       bool
	UserNotes        string
	Status           IdeaStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Source is an external reference cited as research evidence.
type Source struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Publication   string `json:"publication,omitempty"`
	Author        string `json:"author,omitempty"`
	DatePublished string `json:"date_published,omitempty"`
	Excerpt       string `json:"excerpt,omitempty"`
}

// Research holds the gathered evidence and outline for one approved idea.
// At most one research row exists per idea.
type Research struct {
	ID              int64
	IdeaID          int64
	OwnerID         int64
	ResearchPrompt  string
	KeyFindings     []string
	OutlineJSON     string
	Sources         []Source
	SourceCount     int
	Model           string
	TokensUsed      int
	DurationSeconds float64
	Status          ResearchStatus
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BlogPost is the long-form draft written from completed research.
type BlogPost struct {
	ID         int64
	IdeaID     int64
	OwnerID    int64
	Persona    string
	Title      string
	Content    string
	WordCount  int
	Tags       []string
	IsApproved bool
	Status     PostStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Asset is a generated artifact (image, graphic) attached to a blog post.
type Asset struct {
	ID           int64
	BlogPostID   int64
	OwnerID      int64
	AssetType    string
	FilePath     string
	ParamsJSON   string
	Status       AssetStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SocialPost is a platform-specific adaptation of a blog post.
type SocialPost struct {
	ID             int64
	BlogPostID     int64
	OwnerID        int64
	Platform       string
	Content        string
	Hashtags       []string
	CharacterCount int
	IsWithinLimits bool
	Status         SocialStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ParseTopicStatus converts a string into a known TopicStatus.
func ParseTopicStatus(value string) (TopicStatus, bool) {
	normalized := TopicStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case TopicPending, TopicProcessing, TopicCompleted, TopicFailed:
		return normalized, true
	}
	return "", false
}

// ParseIdeaStatus converts a string into a known IdeaStatus.
func ParseIdeaStatus(value string) (IdeaStatus, bool) {
	normalized := IdeaStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case IdeaGenerated, IdeaApproved, IdeaRejected, IdeaResearching, IdeaResearched, IdeaWriting:
		return normalized, true
	}
	return "", false
}

// DatabaseHealth captures diagnostic information about the database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	Error            string
}

// Overview aggregates entity counts per status for the progress summary.
type Overview struct {
	Topics      map[TopicStatus]int
	Ideas       map[IdeaStatus]int
	Research    map[ResearchStatus]int
	BlogPosts   map[PostStatus]int
	Assets      map[AssetStatus]int
	SocialPosts map[SocialStatus]int
}
