package ipc_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"forge/internal/daemon"
	"forge/internal/ipc"
	"forge/internal/jobs"
	"forge/internal/store"
	"forge/internal/testsupport"
)

type noopExecutor struct{ stage jobs.Stage }

func (e *noopExecutor) Stage() jobs.Stage { return e.stage }

func (e *noopExecutor) Execute(ctx context.Context, job *jobs.Job, progress *jobs.Reporter) (map[string]any, error) {
	return map[string]any{"noop": true}, nil
}

func TestClientServerRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	st := testsupport.MustOpenStore(t, cfg)
	scheduler := jobs.NewScheduler(jobs.NewQueue(st.DB()), cfg, nil)
	for _, stage := range []jobs.Stage{
		jobs.StageIdeaGeneration,
		jobs.StageResearch,
		jobs.StageWriting,
		jobs.StageImageGeneration,
		jobs.StageSocialGeneration,
	} {
		scheduler.Register(&noopExecutor{stage: stage})
	}

	d, err := daemon.New(cfg, st, nil, scheduler)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	socketPath := filepath.Join(cfg.Paths.DataDir, "forge.sock")
	server, err := ipc.NewServer(ctx, socketPath, d, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("unix sockets unavailable in sandbox: %v", err)
		}
		t.Fatalf("new server: %v", err)
	}
	defer server.Close()
	server.Serve()
	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	startResp, err := client.Start()
	if err != nil || !startResp.Started {
		t.Fatalf("start daemon: resp=%+v err=%v", startResp, err)
	}
	defer d.Stop()

	status, err := client.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Running || status.Workers != cfg.Workflow.Workers {
		t.Fatalf("unexpected status: %+v", status)
	}

	added, err := client.TopicAdd(ipc.TopicAddRequest{Title: "Zero-copy networking"})
	if err != nil {
		t.Fatalf("topic add: %v", err)
	}
	if added.Topic.ID == 0 || added.Topic.Status != "pending" {
		t.Fatalf("unexpected topic: %+v", added.Topic)
	}

	if _, err := client.TopicAdd(ipc.TopicAddRequest{Title: "   "}); err == nil {
		t.Fatal("blank title should error across the wire")
	}

	list, err := client.TopicList()
	if err != nil || len(list.Topics) != 1 {
		t.Fatalf("topic list: resp=%+v err=%v", list, err)
	}

	show, err := client.TopicShow(added.Topic.ID)
	if err != nil || show.Topic.ID != added.Topic.ID {
		t.Fatalf("topic show: resp=%+v err=%v", show, err)
	}
	if _, err := client.TopicShow(9999); err == nil {
		t.Fatal("missing topic should error across the wire")
	}

	genResp, err := client.GenerateIdeas(added.Topic.ID)
	if err != nil || genResp.Handle == "" {
		t.Fatalf("generate ideas: resp=%+v err=%v", genResp, err)
	}

	deadline := time.Now().Add(5 * time.Second)
	var jobResp ipc.JobStatusResponse
	for {
		jobResp, err = client.JobStatus(genResp.Handle)
		if err != nil {
			t.Fatalf("job status: %v", err)
		}
		if jobResp.Job.State == "succeeded" || jobResp.Job.State == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish: %+v", jobResp.Job)
		}
		time.Sleep(25 * time.Millisecond)
	}
	if jobResp.Job.State != "succeeded" {
		t.Fatalf("expected success, got %+v", jobResp.Job)
	}

	// The executor above is a stub, so seed an idea directly and walk
	// the review surface over the wire.
	idea := &store.Idea{Title: "Kernel bypass on commodity NICs"}
	if err := st.CompleteIdeaGeneration(ctx, added.Topic.ID, []*store.Idea{idea}); err != nil {
		t.Fatalf("seed idea: %v", err)
	}

	ideas, err := client.IdeaList(added.Topic.ID)
	if err != nil || len(ideas.Ideas) != 1 {
		t.Fatalf("idea list: resp=%+v err=%v", ideas, err)
	}

	approveResp, err := client.IdeaApprove(idea.ID, "solid angle")
	if err != nil || !approveResp.Approved {
		t.Fatalf("idea approve: resp=%+v err=%v", approveResp, err)
	}
	if _, err := client.IdeaReject(idea.ID, ""); err == nil {
		t.Fatal("rejecting an approved idea should error across the wire")
	}

	researchResp, err := client.ResearchStart(idea.ID)
	if err != nil || researchResp.Handle == "" {
		t.Fatalf("research start: resp=%+v err=%v", researchResp, err)
	}
	showResearch, err := client.ResearchShow(idea.ID)
	if err != nil {
		t.Fatalf("research show: %v", err)
	}
	if showResearch.Research.IdeaID != idea.ID {
		t.Fatalf("unexpected research: %+v", showResearch.Research)
	}

	overview, err := client.Overview()
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.Overview.Topics["completed"] != 1 {
		t.Fatalf("expected completed topic in overview, got %+v", overview.Overview)
	}

	health, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("database health: %v", err)
	}
	if !health.IntegrityCheck || len(health.MissingTables) > 0 {
		t.Fatalf("expected healthy database, got %+v", health)
	}

	jobList, err := client.JobList()
	if err != nil || len(jobList.Jobs) < 2 {
		t.Fatalf("job list: resp=%+v err=%v", jobList, err)
	}
	if _, err := client.JobList("bogus"); err == nil {
		t.Fatal("unknown state filter should error across the wire")
	}

	stopResp, err := client.Stop()
	if err != nil || !stopResp.Stopped {
		t.Fatalf("stop: resp=%+v err=%v", stopResp, err)
	}
	finalStatus, err := client.Status()
	if err != nil {
		t.Fatalf("status after stop: %v", err)
	}
	if finalStatus.Running {
		t.Fatal("daemon should report stopped")
	}
}
