package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"forge/internal/api"
	"forge/internal/daemon"
	"forge/internal/jobs"
	"forge/internal/logging"
	"forge/internal/store"
)

// Server exposes daemon operations over a unix domain socket using
// JSON-RPC. One server runs per daemon process.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer binds the control socket and registers the RPC surface.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("daemon is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Forge", &service{daemon: d, ctx: serverCtx}); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		daemon:    d,
		logger:    logging.NewComponentLogger(logger, "ipc"),
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve accepts connections until the server is closed.
func (s *Server) Serve() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
			}()
		}
	}()
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	s.cancel()
	err := s.listener.Close()
	s.wg.Wait()
	if removeErr := os.Remove(s.path); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = removeErr
	}
	return err
}

// service implements the RPC methods. Each method follows the
// net/rpc convention of (request, *response) error.
type service struct {
	daemon *daemon.Daemon
	ctx    context.Context
}

func (s *service) Start(req StartRequest, resp *StartResponse) error {
	if s.daemon.Running() {
		resp.Started = false
		resp.Message = "daemon already running"
		return nil
	}
	if err := s.daemon.Start(s.ctx); err != nil {
		return err
	}
	resp.Started = true
	resp.Message = "daemon started"
	return nil
}

func (s *service) Stop(req StopRequest, resp *StopResponse) error {
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *service) Status(req StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Workers = status.Workers
	resp.DatabasePath = status.DatabasePath
	resp.LockFilePath = status.LockFilePath
	resp.SocketPath = status.SocketPath
	resp.LogPath = status.LogPath
	resp.Jobs = make(map[string]int, len(status.Jobs))
	for state, count := range status.Jobs {
		resp.Jobs[string(state)] = count
	}
	return nil
}

func (s *service) TopicAdd(req TopicAddRequest, resp *TopicAddResponse) error {
	topic, err := s.daemon.Coordinator().CreateTopic(s.ctx, &store.Topic{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Keywords:        req.Keywords,
		IdeaCount:       req.IdeaCount,
		TargetWordCount: req.TargetWordCount,
		Persona:         req.Persona,
	})
	if err != nil {
		return err
	}
	resp.Topic = api.FromTopic(topic)
	return nil
}

func (s *service) TopicList(req TopicListRequest, resp *TopicListResponse) error {
	topics, err := s.daemon.Coordinator().ListTopics(s.ctx)
	if err != nil {
		return err
	}
	resp.Topics = make([]api.TopicView, 0, len(topics))
	for _, topic := range topics {
		resp.Topics = append(resp.Topics, api.FromTopic(topic))
	}
	return nil
}

func (s *service) TopicShow(req TopicShowRequest, resp *TopicShowResponse) error {
	topic, err := s.daemon.Coordinator().GetTopic(s.ctx, req.ID)
	if err != nil {
		return err
	}
	ideas, err := s.daemon.Coordinator().ListIdeas(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Topic = api.FromTopic(topic)
	resp.Ideas = make([]api.IdeaView, 0, len(ideas))
	for _, idea := range ideas {
		resp.Ideas = append(resp.Ideas, api.FromIdea(idea))
	}
	return nil
}

func (s *service) TopicDelete(req TopicDeleteRequest, resp *TopicDeleteResponse) error {
	if err := s.daemon.Coordinator().DeleteTopic(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Deleted = true
	return nil
}

func (s *service) GenerateIdeas(req GenerateIdeasRequest, resp *GenerateIdeasResponse) error {
	handle, err := s.daemon.Coordinator().StartIdeaGeneration(s.ctx, req.TopicID)
	if err != nil {
		return err
	}
	resp.Handle = handle
	return nil
}

func (s *service) IdeaList(req IdeaListRequest, resp *IdeaListResponse) error {
	ideas, err := s.daemon.Coordinator().ListIdeas(s.ctx, req.TopicID)
	if err != nil {
		return err
	}
	resp.Ideas = make([]api.IdeaView, 0, len(ideas))
	for _, idea := range ideas {
		resp.Ideas = append(resp.Ideas, api.FromIdea(idea))
	}
	return nil
}

func (s *service) IdeaApprove(req IdeaApproveRequest, resp *IdeaApproveResponse) error {
	if err := s.daemon.Coordinator().ApproveIdea(s.ctx, req.ID, req.Notes); err != nil {
		return err
	}
	resp.Approved = true
	return nil
}

func (s *service) IdeaReject(req IdeaRejectRequest, resp *IdeaRejectResponse) error {
	if err := s.daemon.Coordinator().RejectIdea(s.ctx, req.ID, req.Notes); err != nil {
		return err
	}
	resp.Rejected = true
	return nil
}

func (s *service) ResearchStart(req ResearchStartRequest, resp *ResearchStartResponse) error {
	handle, err := s.daemon.Coordinator().StartResearch(s.ctx, req.IdeaID)
	if err != nil {
		return err
	}
	resp.Handle = handle
	return nil
}

func (s *service) ResearchShow(req ResearchShowRequest, resp *ResearchShowResponse) error {
	record, err := s.daemon.Coordinator().GetResearchByIdea(s.ctx, req.IdeaID)
	if err != nil {
		return err
	}
	resp.Research = api.FromResearch(record)
	return nil
}

func (s *service) WritingStart(req WritingStartRequest, resp *WritingStartResponse) error {
	handle, err := s.daemon.Coordinator().StartWriting(s.ctx, req.IdeaID)
	if err != nil {
		return err
	}
	resp.Handle = handle
	return nil
}

func (s *service) PostShow(req PostShowRequest, resp *PostShowResponse) error {
	post, err := s.daemon.Coordinator().GetBlogPost(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Post = api.FromBlogPost(post)
	return nil
}

func (s *service) PostApprove(req PostApproveRequest, resp *PostApproveResponse) error {
	if err := s.daemon.Coordinator().ApproveBlogPost(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Approved = true
	return nil
}

func (s *service) AssetsStart(req AssetsStartRequest, resp *AssetsStartResponse) error {
	handle, err := s.daemon.Coordinator().StartAssetGeneration(s.ctx, req.PostID)
	if err != nil {
		return err
	}
	resp.Handle = handle
	return nil
}

func (s *service) SocialStart(req SocialStartRequest, resp *SocialStartResponse) error {
	handle, err := s.daemon.Coordinator().StartSocialGeneration(s.ctx, req.PostID)
	if err != nil {
		return err
	}
	resp.Handle = handle
	return nil
}

func (s *service) JobStatus(req JobStatusRequest, resp *JobStatusResponse) error {
	status, err := s.daemon.Coordinator().JobStatus(s.ctx, req.Handle)
	if err != nil {
		return err
	}
	resp.Job = api.FromJobStatus(status)
	return nil
}

func (s *service) JobList(req JobListRequest, resp *JobListResponse) error {
	states := make([]jobs.State, 0, len(req.States))
	for _, raw := range req.States {
		state, ok := jobs.ParseState(raw)
		if !ok {
			return fmt.Errorf("unknown job state %q", raw)
		}
		states = append(states, state)
	}
	statuses, err := s.daemon.Coordinator().ListJobs(s.ctx, states...)
	if err != nil {
		return err
	}
	resp.Jobs = make([]api.JobView, 0, len(statuses))
	for _, status := range statuses {
		resp.Jobs = append(resp.Jobs, api.FromJobStatus(status))
	}
	return nil
}

func (s *service) Overview(req OverviewRequest, resp *OverviewResponse) error {
	overview, stats, err := s.daemon.Coordinator().Overview(s.ctx)
	if err != nil {
		return err
	}
	resp.Overview = api.FromOverview(overview, stats)
	return nil
}

func (s *service) DatabaseHealth(req DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.TablesPresent = health.TablesPresent
	resp.MissingTables = health.MissingTables
	resp.IntegrityCheck = health.IntegrityCheck
	resp.Error = health.Error
	return nil
}
