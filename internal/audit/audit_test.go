package audit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	issuemodels "dataguard/internal/issues/models"
	"dataguard/pkg/domain"
)

type AuditSuite struct {
	suite.Suite
	recorder *Recorder
	sink     *MemorySink
}

func (s *AuditSuite) SetupTest() {
	s.recorder = NewRecorder(8, nil)
	s.sink = NewMemorySink()
}

func TestAuditSuite(t *testing.T) {
	suite.Run(t, new(AuditSuite))
}

// drain runs a worker over the recorder inbox until n events reach the sink.
func (s *AuditSuite) drain(n int) []Event {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	worker := NewWorker(NewPublisher(s.sink), s.recorder.Inbox(), nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	deadline := time.After(5 * time.Second)
	for len(s.sink.Events()) < n {
		select {
		case <-deadline:
			s.T().Fatalf("sink received %d of %d events", len(s.sink.Events()), n)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
	return s.sink.Events()
}

func (s *AuditSuite) TestIssueEventReachesSink() {
	issue := &issuemodels.QualityIssue{
		ID:       domain.NewIssueID(),
		AssetID:  "pg-main.public.customers",
		RuleType: "email",
	}
	s.recorder.IssueEvent(context.Background(), issue, "opened", "unprotected column detected")

	events := s.drain(1)
	require.Len(s.T(), events, 1)
	assert.Equal(s.T(), CategoryIssue, events[0].Category)
	assert.Equal(s.T(), "opened", events[0].Action)
	assert.Equal(s.T(), issue.ID.String(), events[0].Subject)
	assert.Equal(s.T(), issue.AssetID, events[0].AssetID)
	assert.False(s.T(), events[0].Timestamp.IsZero())
}

func (s *AuditSuite) TestEventCategories() {
	ctx := context.Background()
	s.recorder.RuleEvent(ctx, "email", "enabled", "")
	s.recorder.AlertEvent(ctx, domain.NewAlertID().String(), "pg-main.public.customers", "raised", "score dropped")
	s.recorder.ScanEvent(ctx, "email", "completed", "")

	events := s.drain(3)
	require.Len(s.T(), events, 3)
	assert.Equal(s.T(), CategoryRule, events[0].Category)
	assert.Equal(s.T(), CategoryAlert, events[1].Category)
	assert.Equal(s.T(), CategoryScan, events[2].Category)
}

func (s *AuditSuite) TestFullInboxDropsInsteadOfBlocking() {
	recorder := NewRecorder(1, nil)

	// no worker draining; the second event must not block the caller
	done := make(chan struct{})
	go func() {
		defer close(done)
		recorder.RuleEvent(context.Background(), "email", "enabled", "")
		recorder.RuleEvent(context.Background(), "ssn", "enabled", "")
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.T().Fatal("recorder blocked on a full inbox")
	}
	assert.Len(s.T(), recorder.Inbox(), 1)
}

type failingSink struct {
	calls atomic.Int32
}

func (f *failingSink) Append(context.Context, Event) error {
	f.calls.Add(1)
	return errors.New("kafka unavailable")
}

func (s *AuditSuite) TestWorkerSurvivesSinkFailure() {
	sink := &failingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := NewWorker(NewPublisher(sink), s.recorder.Inbox(), nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	s.recorder.RuleEvent(ctx, "email", "enabled", "")
	s.recorder.RuleEvent(ctx, "ssn", "enabled", "")

	deadline := time.After(5 * time.Second)
	for sink.calls.Load() < 2 {
		select {
		case <-deadline:
			s.T().Fatalf("worker stopped after sink failure, %d calls", sink.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func (s *AuditSuite) TestPublisherStampsTimestamp() {
	sink := NewMemorySink()
	require.NoError(s.T(), NewPublisher(sink).Emit(context.Background(), Event{
		Category: CategoryScan,
		Action:   "completed",
	}))

	events := sink.Events()
	require.Len(s.T(), events, 1)
	assert.False(s.T(), events[0].Timestamp.IsZero())
}
