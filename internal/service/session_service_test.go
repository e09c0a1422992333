package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"coverage-compare-be/internal/dto"
	"coverage-compare-be/internal/repository/contract"
	"coverage-compare-be/internal/repository/memory"
	"coverage-compare-be/pkg/compare"
	"coverage-compare-be/pkg/events"
	"coverage-compare-be/pkg/resolution/executor"
	"coverage-compare-be/pkg/resolution/lock"
	"coverage-compare-be/pkg/resolution/session"
	"coverage-compare-be/pkg/resolution/viewstate"
	"coverage-compare-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu          sync.Mutex
	events      []events.Event
	transitions []lock.TransitionRecord
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) RecordTransition(_ context.Context, rec lock.TransitionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitions = append(p.transitions, rec)
}

func (p *recordingPublisher) transitionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.transitions)
}

// flakyRepository fails Save once failSave is set.
type flakyRepository struct {
	contract.SessionRepository
	failSave bool
}

func (r *flakyRepository) Save(ctx context.Context, sess *store.Session) error {
	if r.failSave {
		return errors.New("store unavailable")
	}
	return r.SessionRepository.Save(ctx, sess)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type recordingPusher struct {
	views []dto.SessionViewResponse
}

func (p *recordingPusher) PushView(_ string, view dto.SessionViewResponse) {
	p.views = append(p.views, view)
}

type fixture struct {
	svc       ISessionService
	publisher *recordingPublisher
	pusher    *recordingPusher
	replies   chan *compare.Response
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, memory.NewSessionRepository(time.Minute, time.Minute))
}

func newFixtureWithRepo(t *testing.T, repo contract.SessionRepository) *fixture {
	t.Helper()
	f := &fixture{
		publisher: &recordingPublisher{},
		pusher:    &recordingPusher{},
		replies:   make(chan *compare.Response, 8),
	}
	resolver := compare.ResolverFunc(func(ctx context.Context, _ compare.Request) (*compare.Response, error) {
		select {
		case resp := <-f.replies:
			return resp, nil
		default:
			return nil, compare.ErrTimeout
		}
	})
	manager := session.NewManager(repo, nil)
	exec := executor.NewTurnExecutor(resolver, nil, lock.NewArbiter(nil), nil)
	views := viewstate.NewRegistry(time.Minute, time.Minute, nil)
	f.svc = NewSessionService(manager, exec, views, f.publisher, f.pusher, nil)
	return f
}

func unresolvedCancer() *compare.Response {
	return &compare.Response{
		ResolutionState: store.StateUnresolved,
		Verdict: store.ResolutionVerdict{
			Status: store.StateUnresolved,
			SuggestedCoverages: []store.SuggestedCoverage{
				{CoverageCode: "A4200_1", CoverageName: "암진단비", Similarity: 0.9},
				{CoverageCode: "A4210", CoverageName: "유사암진단비", Similarity: 0.8},
			},
		},
	}
}

func resolvedCancer() *compare.Response {
	return &compare.Response{
		ResolutionState: store.StateResolved,
		Anchor:          &store.QueryAnchor{CoverageCode: "A4200_1", CoverageName: "암진단비", OriginalQuery: "암진단비"},
		Verdict:         store.ResolutionVerdict{Status: store.StateResolved},
		SummaryText:     "비교 결과",
	}
}

func TestSessionService_QueryThenSelect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, "u1")
	require.NoError(t, err)

	f.replies <- unresolvedCancer()
	res, err := f.svc.Query(ctx, "u1", created.Id, &dto.SubmitQueryRequest{Query: "암 진단비 비교"})
	require.NoError(t, err)
	assert.Equal(t, "needs_guidance", res.Outcome)
	require.NotNil(t, res.Session.Guidance)
	assert.Len(t, res.Session.Guidance.SuggestedCoverages, 2)
	assert.False(t, res.Session.CanRenderResults)

	f.replies <- resolvedCancer()
	res, err = f.svc.Select(ctx, "u1", created.Id, &dto.SelectCoverageRequest{CoverageCode: "A4200_1"})
	require.NoError(t, err)
	assert.Equal(t, "resolved", res.Outcome)
	assert.Nil(t, res.Session.Guidance)
	assert.True(t, res.Session.CanRenderResults)
	require.NotNil(t, res.Session.Anchor)
	assert.Equal(t, "A4200_1", res.Session.Anchor.CoverageCode)

	// user, user, assistant
	assert.Len(t, res.Session.Messages, 3)
	assert.Len(t, f.pusher.views, 2)
	assert.Equal(t, []string{events.TypeTurnCompleted, events.TypeTurnCompleted}, f.publisher.types())
	assert.Equal(t, 2, f.publisher.transitionCount())
}

func TestSessionService_UnsavedTurnIsNotAnnounced(t *testing.T) {
	ctx := context.Background()
	repo := &flakyRepository{SessionRepository: memory.NewSessionRepository(time.Minute, time.Minute)}
	f := newFixtureWithRepo(t, repo)

	created, err := f.svc.Create(ctx, "u1")
	require.NoError(t, err)

	repo.failSave = true
	f.replies <- resolvedCancer()
	_, err = f.svc.Query(ctx, "u1", created.Id, &dto.SubmitQueryRequest{Query: "암진단비"})
	require.Error(t, err)

	assert.Zero(t, f.publisher.transitionCount())
	assert.Empty(t, f.publisher.types())
	assert.Empty(t, f.pusher.views)
}

func TestSessionService_FailedTurnReportsError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, "u1")
	require.NoError(t, err)

	res, err := f.svc.Query(ctx, "u1", created.Id, &dto.SubmitQueryRequest{Query: "암진단비"})
	require.NoError(t, err)
	assert.Equal(t, "failed", res.Outcome)
	assert.NotEmpty(t, res.Error)
	require.Len(t, res.Session.Messages, 2)
	assert.NotEmpty(t, res.Session.Messages[1].Error)
	assert.Equal(t, []string{events.TypeTurnFailed}, f.publisher.types())
}

func TestSessionService_ExplicitResetPublishesAnchorReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, "u1")
	require.NoError(t, err)

	f.replies <- resolvedCancer()
	_, err = f.svc.Query(ctx, "u1", created.Id, &dto.SubmitQueryRequest{Query: "암진단비"})
	require.NoError(t, err)

	f.replies <- resolvedCancer()
	res, err := f.svc.Query(ctx, "u1", created.Id, &dto.SubmitQueryRequest{Query: "암진단비", ExplicitReset: true})
	require.NoError(t, err)
	assert.Equal(t, store.ResetAnchorEvent, res.ResetCondition)
	assert.Contains(t, f.publisher.types(), events.TypeAnchorReset)
}

func TestSessionService_OwnershipAndEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, "u1")
	require.NoError(t, err)

	_, err = f.svc.Show(ctx, "u2", created.Id)
	assert.ErrorIs(t, err, session.ErrAccessDenied)

	_, err = f.svc.Query(ctx, "u1", created.Id, &dto.SubmitQueryRequest{Query: "  "})
	assert.ErrorIs(t, err, executor.ErrEmptyQuery)

	require.NoError(t, f.svc.End(ctx, "u1", created.Id))
	_, err = f.svc.Show(ctx, "u1", created.Id)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.Contains(t, f.publisher.types(), events.TypeSessionEnded)
}

func TestSessionService_ViewEventLeavesQueryState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.svc.Create(ctx, "u1")
	require.NoError(t, err)

	f.replies <- resolvedCancer()
	_, err = f.svc.Query(ctx, "u1", created.Id, &dto.SubmitQueryRequest{Query: "암진단비"})
	require.NoError(t, err)

	before, err := f.svc.Show(ctx, "u1", created.Id)
	require.NoError(t, err)

	require.NoError(t, f.svc.ViewEvent(ctx, "u1", created.Id, &dto.ViewEventRequest{
		EventType:   "tab_change",
		TargetState: "activeTab",
		Value:       json.RawMessage(`"evidence"`),
	}))
	err = f.svc.ViewEvent(ctx, "u1", created.Id, &dto.ViewEventRequest{
		EventType:   "document_scroll",
		TargetState: "currentAnchor",
		Value:       json.RawMessage(`null`),
	})
	assert.ErrorIs(t, err, viewstate.ErrBlockedStateChange)

	after, err := f.svc.Show(ctx, "u1", created.Id)
	require.NoError(t, err)
	assert.Equal(t, before.Anchor, after.Anchor)
	assert.Equal(t, before.Messages, after.Messages)
	assert.JSONEq(t, `"evidence"`, string(after.ViewState["activeTab"]))
}
