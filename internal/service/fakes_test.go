package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"zenly/internal/ai"
	"zenly/internal/model"
)

// 测试替身：可编程的失败/降级行为，验证编排层的容错语义

var errUnavailable = errors.New("backing store unavailable")

// fakeGen 可编程文本生成器
type fakeGen struct {
	mu sync.Mutex

	generateFn func(req *ai.GenerateRequest) (*ai.GenerateResult, error)
	streamFn   func(req *ai.GenerateRequest) (<-chan *ai.Chunk, error)

	generateCalls int
	streamCalls   int
	lastRequest   *ai.GenerateRequest
}

func (f *fakeGen) Generate(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResult, error) {
	f.mu.Lock()
	f.generateCalls++
	f.lastRequest = req
	fn := f.generateFn
	f.mu.Unlock()

	if fn == nil {
		return nil, errUnavailable
	}
	return fn(req)
}

func (f *fakeGen) GenerateStream(ctx context.Context, req *ai.GenerateRequest) (<-chan *ai.Chunk, error) {
	f.mu.Lock()
	f.streamCalls++
	f.lastRequest = req
	fn := f.streamFn
	f.mu.Unlock()

	if fn == nil {
		return nil, errUnavailable
	}
	return fn(req)
}

func (f *fakeGen) Model() string { return "test-model" }

func (f *fakeGen) calls() (generate, stream int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generateCalls, f.streamCalls
}

// chunkStream 把给定的增量片段包装成生成流（末尾带 Done 终结块）
func chunkStream(parts []string, finalContent string, usage *model.TokenUsage) <-chan *ai.Chunk {
	ch := make(chan *ai.Chunk, len(parts)+1)
	for _, p := range parts {
		ch <- &ai.Chunk{Content: p}
	}
	ch <- &ai.Chunk{Done: true, Content: finalContent, Usage: usage}
	close(ch)
	return ch
}

// fakeConvStore 内存会话存取
type fakeConvStore struct {
	mu    sync.Mutex
	convs map[string]*model.Conversation

	findErr        error
	markCrisisWith []model.RiskLevel
	countDeltas    []int
}

func newFakeConvStore(convs ...*model.Conversation) *fakeConvStore {
	s := &fakeConvStore{convs: make(map[string]*model.Conversation)}
	for _, c := range convs {
		s.convs[c.ID] = c
	}
	return s
}

func (s *fakeConvStore) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	conv, ok := s.convs[id]
	if !ok {
		return nil, model.NotFoundError("conversation", id)
	}
	return conv, nil
}

func (s *fakeConvStore) Create(ctx context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.ID] = conv
	return nil
}

func (s *fakeConvStore) ListByUserID(ctx context.Context, userID string, limit, offset int64) ([]*model.Conversation, error) {
	return nil, nil
}

func (s *fakeConvStore) IncrementMessageCount(ctx context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countDeltas = append(s.countDeltas, delta)
	return nil
}

func (s *fakeConvStore) MarkCrisis(ctx context.Context, id string, level model.RiskLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markCrisisWith = append(s.markCrisisWith, level)
	return nil
}

func (s *fakeConvStore) Update(ctx context.Context, id string, update bson.M) error { return nil }

// fakeMsgStore 内存消息存取
type fakeMsgStore struct {
	mu sync.Mutex

	created     []*model.Message
	checkpoints []string
	delivered   map[string]string // messageID -> 最终内容
	deliveredAs map[string]*model.MessageMetadata
	errored     []string

	createErr error
	recent    []*model.Message
	recentErr error
}

func newFakeMsgStore() *fakeMsgStore {
	return &fakeMsgStore{
		delivered:   make(map[string]string),
		deliveredAs: make(map[string]*model.MessageMetadata),
	}
}

func (s *fakeMsgStore) Create(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, msg)
	return nil
}

func (s *fakeMsgStore) ListByConversation(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error) {
	return nil, nil
}

func (s *fakeMsgStore) ListRecent(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	msgs := s.recent
	if int64(len(msgs)) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (s *fakeMsgStore) UpdateContent(ctx context.Context, id, content string, chunksReceived int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints = append(s.checkpoints, content)
	return nil
}

func (s *fakeMsgStore) MarkDelivered(ctx context.Context, id, content string, meta *model.MessageMetadata, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered[id] = content
	s.deliveredAs[id] = meta
	return nil
}

func (s *fakeMsgStore) MarkErrored(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errored = append(s.errored, id)
	return nil
}

// assistantMessages 过滤出已创建的助手消息
func (s *fakeMsgStore) assistantMessages() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Message
	for _, m := range s.created {
		if m.Role == model.RoleAssistant {
			out = append(out, m)
		}
	}
	return out
}

// fakeUserStore 内存用户存取
type fakeUserStore struct {
	users   map[string]*model.User
	admins  []*model.User
	findErr error
	listErr error
}

func (s *fakeUserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	user, ok := s.users[id]
	if !ok {
		return nil, model.NotFoundError("user", id)
	}
	return user, nil
}

func (s *fakeUserStore) ListAdmins(ctx context.Context) ([]*model.User, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.admins, nil
}

// fakeJournalStore 内存日记存取
type fakeJournalStore struct {
	mu sync.Mutex

	entries map[string]*model.JournalEntry
	recent  []*model.JournalEntry
	listErr error

	saved   map[string]*model.JournalAnalysis
	saveErr error
}

func newFakeJournalStore(entries ...*model.JournalEntry) *fakeJournalStore {
	s := &fakeJournalStore{
		entries: make(map[string]*model.JournalEntry),
		saved:   make(map[string]*model.JournalAnalysis),
	}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return s
}

func (s *fakeJournalStore) FindByID(ctx context.Context, id string) (*model.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, model.NotFoundError("journal", id)
	}
	return entry, nil
}

func (s *fakeJournalStore) ListRecent(ctx context.Context, userID string, since time.Time, limit int64) ([]*model.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.recent, nil
}

func (s *fakeJournalStore) SaveAnalysis(ctx context.Context, id string, analysis *model.JournalAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[id] = analysis
	return nil
}

// fakeAlertSink 内存告警投递
type fakeAlertSink struct {
	mu        sync.Mutex
	alerts    []*model.CrisisAlert
	createErr error
}

func (s *fakeAlertSink) CreateMany(ctx context.Context, alerts []*model.CrisisAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.alerts = append(s.alerts, alerts...)
	return nil
}

func (s *fakeAlertSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

// recordingSink 记录事件序列的 EventSink
type recordingSink struct {
	mu     sync.Mutex
	events []model.StreamEvent
	closed bool
}

func (s *recordingSink) Send(event model.StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if event.Type.IsTerminal() {
		s.closed = true
	}
	return nil
}

func (s *recordingSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *recordingSink) types() []model.StreamEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.StreamEventType, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}

func (s *recordingSink) last() model.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return model.StreamEvent{}
	}
	return s.events[len(s.events)-1]
}
