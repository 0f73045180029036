package ipc

import (
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

const dialTimeout = 2 * time.Second

// Client talks to a running daemon over its control socket.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the daemon socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial daemon socket %s: %w", path, err)
	}
	return &Client{rpc: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// Start asks the daemon to begin processing jobs.
func (c *Client) Start() (StartResponse, error) {
	var resp StartResponse
	err := c.rpc.Call("Forge.Start", StartRequest{}, &resp)
	return resp, err
}

// Stop asks the daemon to stop processing jobs.
func (c *Client) Stop() (StopResponse, error) {
	var resp StopResponse
	err := c.rpc.Call("Forge.Stop", StopRequest{}, &resp)
	return resp, err
}

// Status reports daemon runtime information.
func (c *Client) Status() (StatusResponse, error) {
	var resp StatusResponse
	err := c.rpc.Call("Forge.Status", StatusRequest{}, &resp)
	return resp, err
}

// TopicAdd creates a new topic.
func (c *Client) TopicAdd(req TopicAddRequest) (TopicAddResponse, error) {
	var resp TopicAddResponse
	err := c.rpc.Call("Forge.TopicAdd", req, &resp)
	return resp, err
}

// TopicList returns all topics.
func (c *Client) TopicList() (TopicListResponse, error) {
	var resp TopicListResponse
	err := c.rpc.Call("Forge.TopicList", TopicListRequest{}, &resp)
	return resp, err
}

// TopicShow returns one topic with its ideas.
func (c *Client) TopicShow(id int64) (TopicShowResponse, error) {
	var resp TopicShowResponse
	err := c.rpc.Call("Forge.TopicShow", TopicShowRequest{ID: id}, &resp)
	return resp, err
}

// TopicDelete removes a topic and everything under it.
func (c *Client) TopicDelete(id int64) (TopicDeleteResponse, error) {
	var resp TopicDeleteResponse
	err := c.rpc.Call("Forge.TopicDelete", TopicDeleteRequest{ID: id}, &resp)
	return resp, err
}

// GenerateIdeas submits an idea-generation job for a topic.
func (c *Client) GenerateIdeas(topicID int64) (GenerateIdeasResponse, error) {
	var resp GenerateIdeasResponse
	err := c.rpc.Call("Forge.GenerateIdeas", GenerateIdeasRequest{TopicID: topicID}, &resp)
	return resp, err
}

// IdeaList returns the ideas under a topic.
func (c *Client) IdeaList(topicID int64) (IdeaListResponse, error) {
	var resp IdeaListResponse
	err := c.rpc.Call("Forge.IdeaList", IdeaListRequest{TopicID: topicID}, &resp)
	return resp, err
}

// IdeaApprove approves a generated idea.
func (c *Client) IdeaApprove(id int64, notes string) (IdeaApproveResponse, error) {
	var resp IdeaApproveResponse
	err := c.rpc.Call("Forge.IdeaApprove", IdeaApproveRequest{ID: id, Notes: notes}, &resp)
	return resp, err
}

// IdeaReject rejects a generated idea.
func (c *Client) IdeaReject(id int64, notes string) (IdeaRejectResponse, error) {
	var resp IdeaRejectResponse
	err := c.rpc.Call("Forge.IdeaReject", IdeaRejectRequest{ID: id, Notes: notes}, &resp)
	return resp, err
}

// ResearchStart submits a research job for an approved idea.
func (c *Client) ResearchStart(ideaID int64) (ResearchStartResponse, error) {
	var resp ResearchStartResponse
	err := c.rpc.Call("Forge.ResearchStart", ResearchStartRequest{IdeaID: ideaID}, &resp)
	return resp, err
}

// ResearchShow returns the research record for an idea.
func (c *Client) ResearchShow(ideaID int64) (ResearchShowResponse, error) {
	var resp ResearchShowResponse
	err := c.rpc.Call("Forge.ResearchShow", ResearchShowRequest{IdeaID: ideaID}, &resp)
	return resp, err
}

// WritingStart submits a writing job for an idea with completed research.
func (c *Client) WritingStart(ideaID int64) (WritingStartResponse, error) {
	var resp WritingStartResponse
	err := c.rpc.Call("Forge.WritingStart", WritingStartRequest{IdeaID: ideaID}, &resp)
	return resp, err
}

// PostShow returns one blog post.
func (c *Client) PostShow(id int64) (PostShowResponse, error) {
	var resp PostShowResponse
	err := c.rpc.Call("Forge.PostShow", PostShowRequest{ID: id}, &resp)
	return resp, err
}

// PostApprove approves a draft blog post.
func (c *Client) PostApprove(id int64) (PostApproveResponse, error) {
	var resp PostApproveResponse
	err := c.rpc.Call("Forge.PostApprove", PostApproveRequest{ID: id}, &resp)
	return resp, err
}

// AssetsStart submits an asset-generation job for an approved post.
func (c *Client) AssetsStart(postID int64) (AssetsStartResponse, error) {
	var resp AssetsStartResponse
	err := c.rpc.Call("Forge.AssetsStart", AssetsStartRequest{PostID: postID}, &resp)
	return resp, err
}

// SocialStart submits a social-generation job for an approved post.
func (c *Client) SocialStart(postID int64) (SocialStartResponse, error) {
	var resp SocialStartResponse
	err := c.rpc.Call("Forge.SocialStart", SocialStartRequest{PostID: postID}, &resp)
	return resp, err
}

// JobStatus returns the visible state of a job handle.
func (c *Client) JobStatus(handle string) (JobStatusResponse, error) {
	var resp JobStatusResponse
	err := c.rpc.Call("Forge.JobStatus", JobStatusRequest{Handle: handle}, &resp)
	return resp, err
}

// JobList returns job snapshots, optionally filtered by state names.
func (c *Client) JobList(states ...string) (JobListResponse, error) {
	var resp JobListResponse
	err := c.rpc.Call("Forge.JobList", JobListRequest{States: states}, &resp)
	return resp, err
}

// Overview returns per-status entity and job counts.
func (c *Client) Overview() (OverviewResponse, error) {
	var resp OverviewResponse
	err := c.rpc.Call("Forge.Overview", OverviewRequest{}, &resp)
	return resp, err
}

// DatabaseHealth returns database diagnostics.
func (c *Client) DatabaseHealth() (DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	err := c.rpc.Call("Forge.DatabaseHealth", DatabaseHealthRequest{}, &resp)
	return resp, err
}
