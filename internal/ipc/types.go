package ipc

import "forge/internal/api"

// StartRequest asks the daemon to begin processing jobs.
type StartRequest struct{}

// StartResponse reports the outcome of a start request.
type StartResponse struct {
	Started bool
	Message string
}

// StopRequest asks the daemon to stop processing jobs.
type StopRequest struct{}

// StopResponse reports the outcome of a stop request.
type StopResponse struct {
	Stopped bool
}

// StatusRequest asks for daemon runtime information.
type StatusRequest struct{}

// StatusResponse carries daemon runtime information.
type StatusResponse struct {
	Running      bool
	PID          int
	Workers      int
	Jobs         map[string]int
	DatabasePath string
	LockFilePath string
	SocketPath   string
	LogPath      string
}

// TopicAddRequest creates a new topic.
type TopicAddRequest struct {
	Title           string
	Description     string
	Category        string
	Keywords        []string
	IdeaCount       int
	TargetWordCount int
	Persona         string
}

// TopicAddResponse returns the created topic.
type TopicAddResponse struct {
	Topic api.TopicView
}

// TopicListRequest lists all topics.
type TopicListRequest struct{}

// TopicListResponse returns all topics.
type TopicListResponse struct {
	Topics []api.TopicView
}

// TopicShowRequest loads one topic and its ideas.
type TopicShowRequest struct {
	ID int64
}

// TopicShowResponse returns a topic with its ideas.
type TopicShowResponse struct {
	Topic api.TopicView
	Ideas []api.IdeaView
}

// TopicDeleteRequest removes a topic and everything under it.
type TopicDeleteRequest struct {
	ID int64
}

// TopicDeleteResponse acknowledges a topic deletion.
type TopicDeleteResponse struct {
	Deleted bool
}

// GenerateIdeasRequest submits an idea-generation job for a topic.
type GenerateIdeasRequest struct {
	TopicID int64
}

// GenerateIdeasResponse returns the job handle.
type GenerateIdeasResponse struct {
	Handle string
}

// IdeaListRequest lists the ideas under a topic.
type IdeaListRequest struct {
	TopicID int64
}

// IdeaListResponse returns the ideas under a topic.
type IdeaListResponse struct {
	Ideas []api.IdeaView
}

// IdeaApproveRequest approves a generated idea.
type IdeaApproveRequest struct {
	ID    int64
	Notes string
}

// IdeaApproveResponse acknowledges an idea approval.
type IdeaApproveResponse struct {
	Approved bool
}

// IdeaRejectRequest rejects a generated idea.
type IdeaRejectRequest struct {
	ID    int64
	Notes string
}

// IdeaRejectResponse acknowledges an idea rejection.
type IdeaRejectResponse struct {
	Rejected bool
}

// ResearchStartRequest claims an approved idea and submits a research job.
type ResearchStartRequest struct {
	IdeaID int64
}

// ResearchStartResponse returns the job handle.
type ResearchStartResponse struct {
	Handle string
}

// ResearchShowRequest loads the research record for an idea.
type ResearchShowRequest struct {
	IdeaID int64
}

// ResearchShowResponse returns the research record for an idea.
type ResearchShowResponse struct {
	Research api.ResearchView
}

// WritingStartRequest submits a writing job for an idea with completed research.
type WritingStartRequest struct {
	IdeaID int64
}

// WritingStartResponse returns the job handle.
type WritingStartResponse struct {
	Handle string
}

// PostShowRequest loads one blog post.
type PostShowRequest struct {
	ID int64
}

// PostShowResponse returns one blog post.
type PostShowResponse struct {
	Post api.BlogPostView
}

// PostApproveRequest approves a draft blog post.
type PostApproveRequest struct {
	ID int64
}

// PostApproveResponse acknowledges a post approval.
type PostApproveResponse struct {
	Approved bool
}

// AssetsStartRequest submits an asset-generation job for an approved post.
type AssetsStartRequest struct {
	PostID int64
}

// AssetsStartResponse returns the job handle.
type AssetsStartResponse struct {
	Handle string
}

// SocialStartRequest submits a social-generation job for an approved post.
type SocialStartRequest struct {
	PostID int64
}

// SocialStartResponse returns the job handle.
type SocialStartResponse struct {
	Handle string
}

// JobStatusRequest asks for the visible state of a job handle.
type JobStatusRequest struct {
	Handle string
}

// JobStatusResponse returns the visible state of a job handle.
type JobStatusResponse struct {
	Job api.JobView
}

// JobListRequest lists jobs, optionally filtered by state names.
type JobListRequest struct {
	States []string
}

// JobListResponse returns job status snapshots.
type JobListResponse struct {
	Jobs []api.JobView
}

// OverviewRequest asks for per-status entity and job counts.
type OverviewRequest struct{}

// OverviewResponse returns per-status entity and job counts.
type OverviewResponse struct {
	Overview api.OverviewView
}

// DatabaseHealthRequest asks for database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse carries database diagnostics.
type DatabaseHealthResponse struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	Error            string
}
