package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"agency_os_backend/internal/events"
	"agency_os_backend/internal/jobs"
	"agency_os_backend/internal/projects/domain"
	"agency_os_backend/internal/projects/repository"
	"agency_os_backend/internal/projects/transport"
	"agency_os_backend/platform/ai/llm"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu        sync.Mutex
	projects  map[uuid.UUID]repository.Project
	skus      map[uuid.UUID]repository.SKU
	keywords  map[uuid.UUID][]repository.Keyword
	questions map[uuid.UUID][]repository.Question
	topics    map[uuid.UUID][]repository.Topic
	copies    map[uuid.UUID]repository.Copy

	// afterGet runs once after the next GetByID, outside the lock.
	afterGet func()
}

func newMemRepo() *memRepo {
	return &memRepo{
		projects:  map[uuid.UUID]repository.Project{},
		skus:      map[uuid.UUID]repository.SKU{},
		keywords:  map[uuid.UUID][]repository.Keyword{},
		questions: map[uuid.UUID][]repository.Question{},
		topics:    map[uuid.UUID][]repository.Topic{},
		copies:    map[uuid.UUID]repository.Copy{},
	}
}

func (r *memRepo) Create(_ context.Context, p repository.CreateParams) (repository.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr := repository.Project{
		ID: uuid.New(), ClientID: p.ClientID, BrandID: p.BrandID, Name: p.Name, Marketplace: p.Marketplace,
		Locale: p.Locale, Status: domain.StatusDraft, CreatedBy: p.CreatedBy, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	r.projects[pr.ID] = pr
	return pr, nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Project, error) {
	r.mu.Lock()
	p, ok := r.projects[id]
	hook := r.afterGet
	r.afterGet = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !ok {
		return repository.Project{}, apperr.NotFound("project not found")
	}
	return p, nil
}

func (r *memRepo) List(context.Context, repository.ListParams) ([]repository.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	return out, nil
}

func (r *memRepo) Update(_ context.Context, p repository.UpdateParams) (repository.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr := r.projects[p.ID]
	if p.Name != nil {
		pr.Name = *p.Name
	}
	if p.Marketplace != nil {
		pr.Marketplace = p.Marketplace
	}
	r.projects[p.ID] = pr
	return pr, nil
}

func (r *memRepo) DeleteDraft(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.projects[id].Status != domain.StatusDraft {
		return false, nil
	}
	delete(r.projects, id)
	return true, nil
}

func (r *memRepo) Transition(_ context.Context, id uuid.UUID, decide repository.Decide) (repository.Project, domain.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr, ok := r.projects[id]
	if !ok {
		return repository.Project{}, domain.Outcome{}, apperr.NotFound("project not found")
	}
	snapshot := domain.Snapshot{Status: pr.Status, SKUs: r.readinessLocked(id)}
	if pr.PreviousStatus != nil {
		snapshot.PreviousStatus = *pr.PreviousStatus
	}
	outcome, err := decide(snapshot)
	if err != nil {
		return repository.Project{}, domain.Outcome{}, err
	}
	pr.Status, pr.PreviousStatus = outcome.To, nil
	if outcome.PreviousStatus != "" {
		previous := outcome.PreviousStatus
		pr.PreviousStatus = &previous
	}
	r.projects[id] = pr
	return pr, outcome, nil
}

func (r *memRepo) readinessLocked(projectID uuid.UUID) []domain.SKUReadiness {
	var out []domain.SKUReadiness
	for _, s := range r.skus {
		if s.ProjectID != projectID {
			continue
		}
		rd := domain.SKUReadiness{SKUID: s.ID, SKUCode: s.SKUCode, KeywordCount: len(r.keywords[s.ID])}
		for _, t := range r.topics[s.ID] {
			if t.Selected {
				rd.SelectedTopics++
			}
		}
		_, rd.HasCopy = r.copies[s.ID]
		out = append(out, rd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKUCode < out[j].SKUCode })
	return out
}

// checkStageLocked mirrors the row lock of the real repository.
func (r *memRepo) checkStageLocked(lock repository.StageLock) error {
	pr, ok := r.projects[lock.ProjectID]
	if !ok {
		return apperr.NotFound("project not found")
	}
	if pr.Status != lock.Status {
		return repository.StageChanged(lock.Status, pr.Status)
	}
	return nil
}

func (r *memRepo) ListSKUs(_ context.Context, projectID uuid.UUID) ([]repository.SKU, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.SKU
	for _, s := range r.skus {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *memRepo) GetSKU(_ context.Context, id uuid.UUID) (repository.SKU, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.skus[id]
	if !ok {
		return repository.SKU{}, apperr.NotFound("SKU not found")
	}
	return s, nil
}

func (r *memRepo) CreateSKU(_ context.Context, lock repository.StageLock, p repository.CreateSKUParams) (repository.SKU, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkStageLocked(lock); err != nil {
		return repository.SKU{}, err
	}
	pos := 0
	for _, s := range r.skus {
		if s.ProjectID == p.ProjectID {
			if s.SKUCode == p.SKUCode {
				return repository.SKU{}, apperr.Conflict("duplicate SKU")
			}
			pos++
		}
	}
	s := repository.SKU{ID: uuid.New(), ProjectID: p.ProjectID, SKUCode: p.SKUCode, ProductName: p.ProductName, Attributes: p.Attributes, Notes: p.Notes, Position: pos}
	r.skus[s.ID] = s
	return s, nil
}

func (r *memRepo) UpdateSKU(_ context.Context, p repository.UpdateSKUParams) (repository.SKU, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.skus[p.ID]
	if p.ProductName != nil {
		s.ProductName = *p.ProductName
	}
	r.skus[p.ID] = s
	return s, nil
}

func (r *memRepo) DeleteSKU(_ context.Context, lock repository.StageLock, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkStageLocked(lock); err != nil {
		return err
	}
	delete(r.skus, id)
	return nil
}

func (r *memRepo) ListKeywords(_ context.Context, skuID uuid.UUID) ([]repository.Keyword, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]repository.Keyword(nil), r.keywords[skuID]...), nil
}

func (r *memRepo) AddKeywords(_ context.Context, skuID uuid.UUID, keywords []string, source string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := 0
outer:
	for _, k := range keywords {
		for _, existing := range r.keywords[skuID] {
			if existing.Keyword == k {
				continue outer
			}
		}
		r.keywords[skuID] = append(r.keywords[skuID], repository.Keyword{ID: uuid.New(), SKUID: skuID, Keyword: k, Source: source})
		added++
	}
	return added, nil
}

func (r *memRepo) DeleteKeyword(_ context.Context, lock repository.StageLock, skuID, keywordID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkStageLocked(lock); err != nil {
		return err
	}
	kws := r.keywords[skuID]
	for i, k := range kws {
		if k.ID == keywordID {
			r.keywords[skuID] = append(kws[:i:i], kws[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("keyword not found")
}

func (r *memRepo) ListQuestions(_ context.Context, skuID uuid.UUID) ([]repository.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]repository.Question(nil), r.questions[skuID]...), nil
}

func (r *memRepo) CreateQuestion(_ context.Context, skuID uuid.UUID, question string, answer *string) (repository.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := repository.Question{ID: uuid.New(), SKUID: skuID, Question: question, Answer: answer}
	r.questions[skuID] = append(r.questions[skuID], q)
	return q, nil
}

func (r *memRepo) UpdateQuestion(_ context.Context, skuID, id uuid.UUID, question string, answer *string) (repository.Question, error) {
	return repository.Question{ID: id, SKUID: skuID, Question: question, Answer: answer}, nil
}

func (r *memRepo) DeleteQuestion(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (r *memRepo) ListTopics(_ context.Context, skuID uuid.UUID) ([]repository.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]repository.Topic(nil), r.topics[skuID]...), nil
}

func (r *memRepo) GetTopic(_ context.Context, id uuid.UUID) (repository.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ts := range r.topics {
		for _, t := range ts {
			if t.ID == id {
				return t, nil
			}
		}
	}
	return repository.Topic{}, apperr.NotFound("topic not found")
}

func (r *memRepo) ReplaceTopics(_ context.Context, lock repository.StageLock, skuID uuid.UUID, drafts []repository.TopicDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkStageLocked(lock); err != nil {
		return err
	}
	topics := make([]repository.Topic, 0, len(drafts))
	for i, d := range drafts {
		topics = append(topics, repository.Topic{ID: uuid.New(), SKUID: skuID, Title: d.Title, Description: d.Description, Position: i})
	}
	r.topics[skuID] = topics
	return nil
}

func (r *memRepo) UpdateTopic(_ context.Context, lock repository.StageLock, p repository.UpdateTopicParams) (repository.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkStageLocked(lock); err != nil {
		return repository.Topic{}, err
	}
	for skuID, ts := range r.topics {
		for i, t := range ts {
			if t.ID != p.ID {
				continue
			}
			if p.Title != nil {
				t.Title = *p.Title
			}
			if p.Selected != nil {
				t.Selected = *p.Selected
			}
			r.topics[skuID][i] = t
			return t, nil
		}
	}
	return repository.Topic{}, apperr.NotFound("topic not found")
}

func (r *memRepo) GetCopy(_ context.Context, skuID uuid.UUID) (*repository.Copy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.copies[skuID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *memRepo) SaveGeneratedCopy(_ context.Context, lock repository.StageLock, c repository.Copy, overwrite bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkStageLocked(lock); err != nil {
		return false, err
	}
	if old, ok := r.copies[c.SKUID]; ok && old.Edited && !overwrite {
		return false, nil
	}
	c.Edited = false
	r.copies[c.SKUID] = c
	return true, nil
}

func (r *memRepo) UpdateCopy(_ context.Context, p repository.UpdateCopyParams) (repository.Copy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.copies[p.SKUID]
	if !ok {
		return repository.Copy{}, apperr.NotFound("copy not found")
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Bullets != nil {
		c.Bullets = p.Bullets
	}
	c.Edited = true
	r.copies[p.SKUID] = c
	return c, nil
}

// syncStarter runs job handlers inline.
type syncStarter struct {
	handlers map[jobs.Kind]jobs.HandlerFunc
	lastErr  error
	started  []jobs.StartParams
}

func (s *syncStarter) Start(ctx context.Context, p jobs.StartParams) (jobs.Job, error) {
	s.started = append(s.started, p)
	var payload json.RawMessage
	if p.Payload != nil {
		payload, _ = json.Marshal(p.Payload)
	}
	job := jobs.Job{ID: uuid.New(), Kind: p.Kind, SubjectID: p.SubjectID, Payload: payload, CreatedBy: &p.CreatedBy}
	if h, ok := s.handlers[p.Kind]; ok {
		_, s.lastErr = h(ctx, job)
	}
	return job, nil
}

type scriptedPrompter struct {
	mu     sync.Mutex
	reply  func(input string) string
	err    error
	inputs []string
}

func (p *scriptedPrompter) Prompt(_ context.Context, input string) (llm.Result, error) {
	p.mu.Lock()
	p.inputs = append(p.inputs, input)
	p.mu.Unlock()
	if p.err != nil {
		return llm.Result{}, p.err
	}
	return llm.Result{Text: p.reply(input), Usage: llm.Usage{Model: "gpt-test", PromptTokens: 100, CompletionTokens: 40}}, nil
}

type captureBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *captureBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}
func (b *captureBus) PublishSync(ctx context.Context, e events.Event) error { b.Publish(ctx, e); return nil }
func (b *captureBus) Subscribe(string, events.Handler)                       {}

func (b *captureBus) usage() []events.AIUsageRecorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.AIUsageRecorded
	for _, e := range b.events {
		if u, ok := e.(events.AIUsageRecorded); ok {
			out = append(out, u)
		}
	}
	return out
}

type staticPools map[uuid.UUID][]string

func (p staticPools) ApprovedPoolKeywords(_ context.Context, poolID uuid.UUID, _ []string) ([]string, error) {
	kws, ok := p[poolID]
	if !ok {
		return nil, apperr.Conflict("keyword pool is not approved")
	}
	return kws, nil
}

type fixture struct {
	svc     *Service
	repo    *memRepo
	starter *syncStarter
	topics  *scriptedPrompter
	copy    *scriptedPrompter
	bus     *captureBus
	poolID  uuid.UUID
	actor   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    newMemRepo(),
		starter: &syncStarter{},
		bus:     &captureBus{},
		poolID:  uuid.New(),
		actor:   uuid.New(),
		topics: &scriptedPrompter{reply: func(string) string {
			return "```json\n{\"topics\":[{\"title\":\"Waterproofing\",\"description\":\"Keeps feet dry\"},{\"title\":\"waterproofing\"},{\"title\":\"Grip\"}]}\n```"
		}},
		copy: &scriptedPrompter{reply: func(string) string {
			return `{"title":"TrailPro Boot","bullets":["DRY: sealed seams"," ","GRIP: lugged sole"],"description":"Built for trails."}`
		}},
	}
	f.svc = New(Deps{
		Repo:      f.repo,
		Pools:     staticPools{f.poolID: {"hiking boots", "trail boots"}},
		Jobs:      f.starter,
		Prompters: Prompters{Topics: f.topics, Copy: f.copy},
		Bus:       f.bus,
		Log:       logger.Discard(),
	})
	f.starter.handlers = map[jobs.Kind]jobs.HandlerFunc{
		jobs.KindTopicGeneration: f.svc.RunTopicJob,
		jobs.KindCopyGeneration:  f.svc.RunCopyJob,
	}
	return f
}

func (f *fixture) project(t *testing.T) transport.ProjectResponse {
	t.Helper()
	market := " us "
	p, err := f.svc.Create(context.Background(), f.actor, transport.CreateProjectRequest{ClientID: uuid.New(), Name: " Boots ", Marketplace: &market})
	require.NoError(t, err)
	return p
}

func (f *fixture) sku(t *testing.T, projectID uuid.UUID, code string) transport.SKUResponse {
	t.Helper()
	s, err := f.svc.CreateSKU(context.Background(), projectID, transport.CreateSKURequest{
		SKUCode: code, ProductName: "Trail boot", Attributes: map[string]string{"material": "leather"},
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) transition(t *testing.T, projectID uuid.UUID, action string) transport.ProjectResponse {
	t.Helper()
	p, err := f.svc.Transition(context.Background(), f.actor, projectID, action)
	require.NoError(t, err)
	return p
}

func TestCreateDefaultsLocaleAndNormalisesMarketplace(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	require.Equal(t, "Boots", p.Name)
	require.Equal(t, "en-US", p.Locale)
	require.Equal(t, "US", *p.Marketplace)
	require.Equal(t, "draft", p.Status)
}

func TestApproveARequiresKeywordsOnEverySKU(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)

	_, err := f.svc.Transition(context.Background(), f.actor, p.ID, "approve_a")
	require.True(t, apperr.Is(err, apperr.KindConflict))

	a := f.sku(t, p.ID, "A-1")
	f.sku(t, p.ID, "B-2")
	_, err = f.svc.AddKeywords(context.Background(), p.ID, a.ID, transport.AddKeywordsRequest{Keywords: []string{"Hiking  Boots", "hiking boots", " "}})
	require.NoError(t, err)

	_, err = f.svc.Transition(context.Background(), f.actor, p.ID, "approve_a")
	domainErr, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindConflict, domainErr.Kind)
	details := domainErr.Details.(map[string]any)
	require.Equal(t, []string{"B-2"}, details["skuCodes"])
}

func TestAddKeywordsNormalisesAndDedupes(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s := f.sku(t, p.ID, "A-1")

	res, err := f.svc.AddKeywords(context.Background(), p.ID, s.ID, transport.AddKeywordsRequest{Keywords: []string{"Hiking  Boots", "hiking boots"}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Added)
	require.Equal(t, "hiking boots", res.Keywords[0].Keyword)
	require.Equal(t, repository.SourceManual, res.Keywords[0].Source)
}

func TestImportPoolKeywords(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s := f.sku(t, p.ID, "A-1")

	res, err := f.svc.ImportPoolKeywords(context.Background(), p.ID, s.ID, transport.ImportPoolKeywordsRequest{PoolID: f.poolID})
	require.NoError(t, err)
	require.Equal(t, 2, res.Added)
	require.Equal(t, repository.SourcePool, res.Keywords[0].Source)

	_, err = f.svc.ImportPoolKeywords(context.Background(), p.ID, s.ID, transport.ImportPoolKeywordsRequest{PoolID: uuid.New()})
	require.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestSKUOfOtherProjectIsNotFound(t *testing.T) {
	f := newFixture(t)
	p1 := f.project(t)
	p2 := f.project(t)
	s := f.sku(t, p1.ID, "A-1")

	_, err := f.svc.GetSKU(context.Background(), p2.ID, s.ID)
	require.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEditGatesFollowStatus(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	s := f.sku(t, p.ID, "A-1")
	_, err := f.svc.AddKeywords(context.Background(), p.ID, s.ID, transport.AddKeywordsRequest{Keywords: []string{"boots"}})
	require.NoError(t, err)
	f.transition(t, p.ID, "approve_a")

	_, err = f.svc.CreateSKU(context.Background(), p.ID, transport.CreateSKURequest{SKUCode: "C-3", ProductName: "x"})
	require.True(t, apperr.Is(err, apperr.KindConflict))
	_, err = f.svc.CreateQuestion(context.Background(), p.ID, s.ID, transport.QuestionRequest{Question: "Is it warm?"})
	require.True(t, apperr.Is(err, apperr.KindConflict))
	_, err = f.svc.UpdateCopy(context.Background(), p.ID, s.ID, transport.UpdateCopyRequest{})
	require.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestFullWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t)
	s := f.sku(t, p.ID, "A-1")
	_, err := f.svc.AddKeywords(ctx, p.ID, s.ID, transport.AddKeywordsRequest{Keywords: []string{"hiking boots"}})
	require.NoError(t, err)
	_, err = f.svc.CreateQuestion(ctx, p.ID, s.ID, transport.QuestionRequest{Question: "Are they waterproof?"})
	require.NoError(t, err)

	// Topic generation is gated on stage A.
	_, err = f.svc.StartTopicGeneration(ctx, f.actor, p.ID)
	require.True(t, apperr.Is(err, apperr.KindConflict))

	f.transition(t, p.ID, "approve_a")
	started, err := f.svc.StartTopicGeneration(ctx, f.actor, p.ID)
	require.NoError(t, err)
	require.Equal(t, string(jobs.KindTopicGeneration), started.Kind)
	require.NoError(t, f.starter.lastErr)
	require.Contains(t, f.topics.inputs[0], "- hiking boots")
	require.Contains(t, f.topics.inputs[0], "- material: leather")
	require.Contains(t, f.topics.inputs[0], "Are they waterproof?")

	detail, err := f.svc.GetSKU(ctx, p.ID, s.ID)
	require.NoError(t, err)
	require.Len(t, detail.Topics, 2)

	_, err = f.svc.Transition(ctx, f.actor, p.ID, "approve_b")
	require.True(t, apperr.Is(err, apperr.KindConflict))

	selected := true
	topic, err := f.svc.UpdateTopic(ctx, p.ID, s.ID, detail.Topics[0].ID, transport.UpdateTopicRequest{Selected: &selected})
	require.NoError(t, err)
	require.True(t, topic.Selected)
	f.transition(t, p.ID, "approve_b")

	_, err = f.svc.StartCopyGeneration(ctx, f.actor, p.ID, transport.GenerateCopyRequest{})
	require.NoError(t, err)
	require.NoError(t, f.starter.lastErr)
	require.Contains(t, f.copy.inputs[0], "- Waterproofing: Keeps feet dry")
	require.NotContains(t, f.copy.inputs[0], "- Grip")

	cp := f.repo.copies[s.ID]
	require.Equal(t, "TrailPro Boot", cp.Title)
	require.Equal(t, []string{"DRY: sealed seams", "GRIP: lugged sole"}, cp.Bullets)
	require.Equal(t, "gpt-test", *cp.Model)

	f.transition(t, p.ID, "approve_c")

	usage := f.bus.usage()
	require.Len(t, usage, 2)
	require.Equal(t, featureTopicGeneration, usage[0].Feature)
	require.Equal(t, featureCopyGeneration, usage[1].Feature)
	require.Equal(t, 100, usage[1].PromptTokens)
}

func TestCopyJobKeepsEditedCopyUnlessOverwrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t)
	s := f.sku(t, p.ID, "A-1")
	_, err := f.svc.AddKeywords(ctx, p.ID, s.ID, transport.AddKeywordsRequest{Keywords: []string{"boots"}})
	require.NoError(t, err)
	f.transition(t, p.ID, "approve_a")
	_, err = f.svc.StartTopicGeneration(ctx, f.actor, p.ID)
	require.NoError(t, err)
	topics, _ := f.repo.ListTopics(ctx, s.ID)
	yes := true
	_, err = f.svc.UpdateTopic(ctx, p.ID, s.ID, topics[0].ID, transport.UpdateTopicRequest{Selected: &yes})
	require.NoError(t, err)
	f.transition(t, p.ID, "approve_b")

	_, err = f.svc.StartCopyGeneration(ctx, f.actor, p.ID, transport.GenerateCopyRequest{})
	require.NoError(t, err)
	mine := "My own title"
	_, err = f.svc.UpdateCopy(ctx, p.ID, s.ID, transport.UpdateCopyRequest{Title: &mine})
	require.NoError(t, err)

	_, err = f.svc.StartCopyGeneration(ctx, f.actor, p.ID, transport.GenerateCopyRequest{})
	require.NoError(t, err)
	require.Equal(t, mine, f.repo.copies[s.ID].Title)
	require.Len(t, f.copy.inputs, 1)

	_, err = f.svc.StartCopyGeneration(ctx, f.actor, p.ID, transport.GenerateCopyRequest{Overwrite: true})
	require.NoError(t, err)
	require.Equal(t, "TrailPro Boot", f.repo.copies[s.ID].Title)
}

func TestTopicJobRechecksStatus(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	f.sku(t, p.ID, "A-1")

	job := jobs.Job{ID: uuid.New(), Kind: jobs.KindTopicGeneration, SubjectID: p.ID}
	_, err := f.svc.RunTopicJob(context.Background(), job)
	require.True(t, apperr.Is(err, apperr.KindConflict))
	require.Empty(t, f.topics.inputs)
}

func TestStageChangeDuringTopicJobKeepsSelections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t)
	s := f.sku(t, p.ID, "A-1")
	_, err := f.svc.AddKeywords(ctx, p.ID, s.ID, transport.AddKeywordsRequest{Keywords: []string{"boots"}})
	require.NoError(t, err)
	f.transition(t, p.ID, "approve_a")
	_, err = f.svc.StartTopicGeneration(ctx, f.actor, p.ID)
	require.NoError(t, err)
	require.NoError(t, f.starter.lastErr)
	topics, _ := f.repo.ListTopics(ctx, s.ID)
	yes := true
	_, err = f.svc.UpdateTopic(ctx, p.ID, s.ID, topics[0].ID, transport.UpdateTopicRequest{Selected: &yes})
	require.NoError(t, err)

	// Stage B is approved while the model is still answering.
	var approveErr error
	reply := f.topics.reply
	f.topics.reply = func(input string) string {
		_, approveErr = f.svc.Transition(ctx, f.actor, p.ID, "approve_b")
		return reply(input)
	}
	_, err = f.svc.StartTopicGeneration(ctx, f.actor, p.ID)
	require.NoError(t, err)
	require.NoError(t, approveErr)
	require.True(t, apperr.Is(f.starter.lastErr, apperr.KindConflict), "got %v", f.starter.lastErr)

	got, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "stage_b_approved", got.Status)
	detail, err := f.svc.GetSKU(ctx, p.ID, s.ID)
	require.NoError(t, err)
	require.Len(t, detail.Topics, 2)
	var selected int
	for _, topic := range detail.Topics {
		if topic.Selected {
			selected++
		}
	}
	require.Equal(t, 1, selected)
}

func TestStageChangeDuringCopyJobWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t)
	s := f.sku(t, p.ID, "A-1")
	_, err := f.svc.AddKeywords(ctx, p.ID, s.ID, transport.AddKeywordsRequest{Keywords: []string{"boots"}})
	require.NoError(t, err)
	f.transition(t, p.ID, "approve_a")
	_, err = f.svc.StartTopicGeneration(ctx, f.actor, p.ID)
	require.NoError(t, err)
	topics, _ := f.repo.ListTopics(ctx, s.ID)
	yes := true
	_, err = f.svc.UpdateTopic(ctx, p.ID, s.ID, topics[0].ID, transport.UpdateTopicRequest{Selected: &yes})
	require.NoError(t, err)
	f.transition(t, p.ID, "approve_b")

	reply := f.copy.reply
	f.copy.reply = func(input string) string {
		_, _ = f.svc.Transition(ctx, f.actor, p.ID, "unapprove_b")
		return reply(input)
	}
	_, err = f.svc.StartCopyGeneration(ctx, f.actor, p.ID, transport.GenerateCopyRequest{})
	require.NoError(t, err)
	require.True(t, apperr.Is(f.starter.lastErr, apperr.KindConflict))
	require.Empty(t, f.repo.copies)
}

func TestKeywordDeleteRacingApprovalIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t)
	s := f.sku(t, p.ID, "A-1")
	added, err := f.svc.AddKeywords(ctx, p.ID, s.ID, transport.AddKeywordsRequest{Keywords: []string{"boots"}})
	require.NoError(t, err)

	// Stage A is approved after the delete passed its draft check.
	f.repo.afterGet = func() {
		_, err := f.svc.Transition(ctx, f.actor, p.ID, "approve_a")
		require.NoError(t, err)
	}
	err = f.svc.DeleteKeyword(ctx, p.ID, s.ID, added.Keywords[0].ID)
	require.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	kws, _ := f.repo.ListKeywords(ctx, s.ID)
	require.Len(t, kws, 1)
	got, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "stage_a_approved", got.Status)
}

func TestTopicJobFailurePublishesNoUsageWithoutTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t)
	s := f.sku(t, p.ID, "A-1")
	_, err := f.svc.AddKeywords(ctx, p.ID, s.ID, transport.AddKeywordsRequest{Keywords: []string{"boots"}})
	require.NoError(t, err)
	f.transition(t, p.ID, "approve_a")

	f.topics.err = errors.New("upstream down")
	_, err = f.svc.StartTopicGeneration(ctx, f.actor, p.ID)
	require.NoError(t, err)
	require.ErrorContains(t, f.starter.lastErr, "upstream down")
	require.Empty(t, f.bus.usage())
}

func TestGenerationWithoutModelIsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.svc.prompter = Prompters{}
	p := f.project(t)
	_, err := f.svc.StartTopicGeneration(context.Background(), f.actor, p.ID)
	require.True(t, apperr.Is(err, apperr.KindUnavailable))
}

func TestArchiveRestoreAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t)
	s := f.sku(t, p.ID, "A-1")
	_, err := f.svc.AddKeywords(ctx, p.ID, s.ID, transport.AddKeywordsRequest{Keywords: []string{"boots"}})
	require.NoError(t, err)
	f.transition(t, p.ID, "approve_a")

	archived := f.transition(t, p.ID, "archive")
	require.Equal(t, "archived", archived.Status)
	require.Equal(t, "stage_a_approved", *archived.PreviousStatus)

	name := "renamed"
	_, err = f.svc.Update(ctx, p.ID, transport.UpdateProjectRequest{Name: &name})
	require.True(t, apperr.Is(err, apperr.KindConflict))
	require.True(t, apperr.Is(f.svc.Delete(ctx, p.ID), apperr.KindConflict))

	restored := f.transition(t, p.ID, "restore")
	require.Equal(t, "stage_a_approved", restored.Status)

	f.transition(t, p.ID, "unapprove_a")
	require.NoError(t, f.svc.Delete(ctx, p.ID))
}

func TestTransitionPublishesStageChange(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	f.transition(t, p.ID, "archive")

	var found bool
	for _, e := range f.bus.events {
		if sc, ok := e.(events.ProjectStageChanged); ok {
			found = true
			require.Equal(t, "archive", sc.Action)
			require.Equal(t, "draft", sc.From)
			require.Equal(t, "archived", sc.To)
		}
	}
	require.True(t, found)

	_, err := f.svc.Transition(context.Background(), f.actor, p.ID, "approve_z")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.Transition(context.Background(), f.actor, p.ID, "approve_a")
	require.True(t, strings.Contains(err.Error(), "archived"))
}
