package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory collaborators. Repositories hand out copies so a failed
// transition never leaks into stored state.

type fakeRequestRepo struct {
	mu        sync.Mutex
	requests  map[uuid.UUID]entity.ReimbursementRequest
	updateErr error
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[uuid.UUID]entity.ReimbursementRequest)}
}

func copyRequest(r entity.ReimbursementRequest) *entity.ReimbursementRequest {
	r.AttachmentURIs = append([]string{}, r.AttachmentURIs...)
	return &r
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *entity.ReimbursementRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[req.ID] = *copyRequest(*req)
	return nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.ReimbursementRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	return copyRequest(r), nil
}

func (f *fakeRequestRepo) List(ctx context.Context) ([]*entity.ReimbursementRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.ReimbursementRequest, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, copyRequest(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRequestRepo) ListExpiredActive(ctx context.Context, now time.Time) ([]*entity.ReimbursementRequest, error) {
	all, _ := f.List(ctx)
	var out []*entity.ReimbursementRequest
	for _, r := range all {
		if r.Status == entity.RequestStatusActive && r.Deadline.Before(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) ListByUsername(ctx context.Context, username string) ([]*entity.ReimbursementRequest, error) {
	all, _ := f.List(ctx)
	var out []*entity.ReimbursementRequest
	for _, r := range all {
		if r.Username == username {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) Update(ctx context.Context, req *entity.ReimbursementRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.requests[req.ID]; !ok {
		return fmt.Errorf("request %s not found", req.ID)
	}
	f.requests[req.ID] = *copyRequest(*req)
	return nil
}

// put stores a request as-is, bypassing the engine
func (f *fakeRequestRepo) put(req *entity.ReimbursementRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[req.ID] = *copyRequest(*req)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]entity.User
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.Username] = *user
	return nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	return f.Create(ctx, user)
}

type fakeDepartmentRepo struct {
	departments map[string]entity.Department
}

func (f *fakeDepartmentRepo) GetByName(ctx context.Context, name string) (*entity.Department, error) {
	d, ok := f.departments[name]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (f *fakeDepartmentRepo) Create(ctx context.Context, dept *entity.Department) error {
	f.departments[dept.Name] = *dept
	return nil
}

type fakeHistoryRepo struct {
	mu   sync.Mutex
	rows []*entity.ApprovalHistory
}

func (f *fakeHistoryRepo) Create(ctx context.Context, h *entity.ApprovalHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, h)
	return nil
}

func (f *fakeHistoryRepo) GetByRequestID(ctx context.Context, id uuid.UUID) ([]*entity.ApprovalHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.ApprovalHistory
	for _, h := range f.rows {
		if h.RequestID == id {
			out = append(out, h)
		}
	}
	return out, nil
}

type sentNotification struct {
	username  string
	requestID uuid.UUID
	message   string
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sentNotification
	inbox   map[string]map[uuid.UUID]string
	cleared []string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{inbox: make(map[string]map[uuid.UUID]string)}
}

func (f *fakeNotifier) Notify(ctx context.Context, username string, requestID uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{username, requestID, message})
	if f.inbox[username] == nil {
		f.inbox[username] = make(map[uuid.UUID]string)
	}
	f.inbox[username][requestID] = message
	return nil
}

func (f *fakeNotifier) ClearNotification(ctx context.Context, username string, requestID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, username)
	delete(f.inbox[username], requestID)
	return nil
}

func (f *fakeNotifier) pending(username string, requestID uuid.UUID) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.inbox[username][requestID]
	return msg, ok
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (f *fakeStorage) Save(ctx context.Context, path string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = content
	return nil
}

func (f *fakeStorage) Read(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return c, nil
}

func (f *fakeStorage) Exists(ctx context.Context, path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[path]
	return ok
}

func (f *fakeStorage) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	return nil
}

func (f *fakeStorage) GetFullPath(relativePath string) string {
	return "mem://" + relativePath
}

type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// harness wires an engine to the fakes with a small directory:
// emp reports to sup in Engineering (head "head"); benco and ben-head work in Benefits.
type harness struct {
	engine   WorkflowEngine
	requests *fakeRequestRepo
	users    *fakeUserRepo
	depts    *fakeDepartmentRepo
	history  *fakeHistoryRepo
	notifier *fakeNotifier
	storage  *fakeStorage
	clock    *testClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		requests: newFakeRequestRepo(),
		users: &fakeUserRepo{users: map[string]entity.User{
			"emp":      {Username: "emp", FirstName: "Erin", LastName: "Park", Role: entity.RoleEmployee, DepartmentName: "Engineering", SupervisorUsername: "sup"},
			"sup":      {Username: "sup", Role: entity.RoleSupervisor, DepartmentName: "Engineering", SupervisorUsername: "head"},
			"head":     {Username: "head", Role: entity.RoleSupervisor, DepartmentName: "Engineering", SupervisorUsername: "ceo"},
			"benco":    {Username: "benco", Role: entity.RoleBenefitsCoordinator, DepartmentName: "Benefits", SupervisorUsername: "ben-head"},
			"ben-head": {Username: "ben-head", Role: entity.RoleSupervisor, DepartmentName: "Benefits", SupervisorUsername: "ceo"},
			"ceo":      {Username: "ceo", Role: entity.RoleSupervisor, DepartmentName: "CEO"},
			"alex":     {Username: "alex", Role: entity.RoleSupervisor, DepartmentName: "Sales", SupervisorUsername: "ceo"},
			"sam":      {Username: "sam", Role: entity.RoleEmployee, DepartmentName: "Sales", SupervisorUsername: "alex"},
		}},
		depts: &fakeDepartmentRepo{departments: map[string]entity.Department{
			"Engineering": {Name: "Engineering", HeadUsername: "head"},
			"Benefits":    {Name: "Benefits", HeadUsername: "ben-head"},
			"Sales":       {Name: "Sales", HeadUsername: "alex"},
			"CEO":         {Name: "CEO", HeadUsername: "ceo"},
		}},
		history:  &fakeHistoryRepo{},
		notifier: newFakeNotifier(),
		storage:  &fakeStorage{files: make(map[string][]byte)},
		clock:    &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
	}

	h.engine = NewEngine(
		Repositories{Requests: h.requests, Users: h.users, Departments: h.depts, History: h.history},
		h.notifier,
		h.storage,
		passthroughTx{},
		zap.NewNop(),
		WithClock(h.clock.Now),
	)
	return h
}

func (h *harness) user(t *testing.T, username string) *entity.User {
	t.Helper()
	u, err := h.users.GetByUsername(context.Background(), username)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func (h *harness) request(t *testing.T, id uuid.UUID) *entity.ReimbursementRequest {
	t.Helper()
	req, err := h.engine.GetRequest(context.Background(), id)
	require.NoError(t, err)
	return req
}

func (h *harness) input(username string, cost float64, format entity.GradingFormat) CreateRequestInput {
	return CreateRequestInput{
		Username:      username,
		Name:          "Distributed Systems",
		StartDate:     h.clock.Now().AddDate(0, 1, 0),
		Location:      "Online",
		Description:   "Evening course",
		Cost:          cost,
		GradingFormat: format,
		EventType:     entity.EventTypeUniversityCourse,
	}
}

// create files a 500.00 university course for emp, granted 400.00
func (h *harness) create(t *testing.T, format entity.GradingFormat) *entity.ReimbursementRequest {
	t.Helper()
	req, err := h.engine.CreateRequest(context.Background(), h.input("emp", 500, format))
	require.NoError(t, err)
	return req
}

func (h *harness) approve(t *testing.T, id uuid.UUID, actor string) *entity.ReimbursementRequest {
	t.Helper()
	req, err := h.engine.AdvanceApproval(context.Background(), ApprovalInput{RequestID: id, Actor: actor, Decision: DecisionApprove})
	require.NoError(t, err)
	return req
}

// toBenefits drives a LETTER-graded request to the benefits slot
func (h *harness) toBenefits(t *testing.T) *entity.ReimbursementRequest {
	t.Helper()
	req := h.create(t, entity.GradingLetter)
	h.approve(t, req.ID, "sup")
	return h.approve(t, req.ID, "head")
}

// toFinal drives a request of the given format to the final slot
func (h *harness) toFinal(t *testing.T, format entity.GradingFormat) *entity.ReimbursementRequest {
	t.Helper()
	req := h.create(t, format)
	h.approve(t, req.ID, "sup")
	h.approve(t, req.ID, "head")
	return h.approve(t, req.ID, "benco")
}
