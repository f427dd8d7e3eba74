package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
)

var discardLogger = zerolog.Nop()

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// ---------------------------------------------------------------------------
// In-memory user repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	seq   int

	lastLoginErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Clients = append([]string(nil), u.Clients...)
	return &clone
}

// seed stores u directly and returns its id.
func (r *stubUserRepo) seed(u *domain.User) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if u.ID == "" {
		u.ID = fmt.Sprintf("user_%d", r.seq)
	}
	if !u.IsActive {
		u.IsActive = true
	}
	r.users[u.ID] = cloneUser(u)
	return u.ID
}

func (r *stubUserRepo) get(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id])
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.seq++
	clone := cloneUser(user)
	clone.ID = fmt.Sprintf("user_%d", r.seq)
	r.users[clone.ID] = cloneUser(clone)
	return clone, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByGoogleID(_ context.Context, googleID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.GoogleID != "" && u.GoogleID == googleID {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) SearchByEmail(_ context.Context, fragment, excludeID string, limit int) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if u.ID == excludeID || !strings.Contains(u.Email, strings.ToLower(fragment)) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubUserRepo) LinkGoogleID(_ context.Context, id, googleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.GoogleID = googleID
	return nil
}

func (r *stubUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastLoginErr != nil {
		return r.lastLoginErr
	}
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLogin = &at
	return nil
}

func (r *stubUserRepo) UpdateRegion(_ context.Context, id string, region domain.Region) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Region = region
	return cloneUser(u), nil
}

func (r *stubUserRepo) AddClient(_ context.Context, userID, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	for _, id := range u.Clients {
		if id == clientID {
			return nil
		}
	}
	u.Clients = append(u.Clients, clientID)
	return nil
}

func (r *stubUserRepo) RemoveClient(_ context.Context, userID, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	kept := u.Clients[:0]
	for _, id := range u.Clients {
		if id != clientID {
			kept = append(kept, id)
		}
	}
	u.Clients = kept
	return nil
}

// ---------------------------------------------------------------------------
// In-memory client repository (mirrors the version check of the Mongo repo)
// ---------------------------------------------------------------------------

type stubClientRepo struct {
	mu      sync.Mutex
	clients map[string]*domain.Client
	seq     int

	updateErrs  []error // returned, in order, by the next Update calls
	updateCalls int
}

func newStubClientRepo() *stubClientRepo {
	return &stubClientRepo{clients: make(map[string]*domain.Client)}
}

func cloneClient(c *domain.Client) *domain.Client {
	if c == nil {
		return nil
	}
	clone := *c
	clone.PaymentSchedules = append([]domain.PaymentSchedule(nil), c.PaymentSchedules...)
	if c.Region != nil {
		r := *c.Region
		clone.Region = &r
	}
	return &clone
}

func (r *stubClientRepo) get(id string) *domain.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneClient(r.clients[id])
}

func (r *stubClientRepo) Create(_ context.Context, c *domain.Client) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.clients {
		if existing.OwnerID == c.OwnerID && existing.Email == c.Email {
			return nil, domain.ErrDuplicateClient
		}
	}
	r.seq++
	clone := cloneClient(c)
	clone.ID = fmt.Sprintf("client_%d", r.seq)
	clone.Version = 1
	r.clients[clone.ID] = cloneClient(clone)
	return clone, nil
}

func (r *stubClientRepo) FindByID(_ context.Context, id string) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return cloneClient(c), nil
}

func (r *stubClientRepo) FindOwned(_ context.Context, ownerID, id string) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok || c.OwnerID != ownerID {
		return nil, domain.ErrClientNotFound
	}
	return cloneClient(c), nil
}

func (r *stubClientRepo) FindByOwnerAndEmail(_ context.Context, ownerID, email string) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.OwnerID == ownerID && c.Email == email {
			return cloneClient(c), nil
		}
	}
	return nil, domain.ErrClientNotFound
}

func (r *stubClientRepo) List(_ context.Context, f ports.ListClientsFilter) ([]*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Client
	for _, c := range r.clients {
		if c.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && string(c.Status) != f.Status {
			continue
		}
		if f.Search != "" {
			q := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(c.Name), q) &&
				!strings.Contains(c.Email, q) &&
				!strings.Contains(strings.ToLower(c.CompanyName), q) {
				continue
			}
		}
		out = append(out, cloneClient(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *stubClientRepo) SearchByEmail(_ context.Context, ownerID, fragment string, limit int) ([]*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Client
	for _, c := range r.clients {
		if c.OwnerID == ownerID && strings.Contains(c.Email, strings.ToLower(fragment)) {
			out = append(out, cloneClient(c))
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubClientRepo) Update(_ context.Context, c *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if len(r.updateErrs) > 0 {
		err := r.updateErrs[0]
		r.updateErrs = r.updateErrs[1:]
		return err
	}
	stored, ok := r.clients[c.ID]
	if !ok {
		return domain.ErrClientNotFound
	}
	if stored.Version != c.Version {
		return domain.ErrVersionConflict
	}
	c.Version++
	r.clients[c.ID] = cloneClient(c)
	return nil
}

func (r *stubClientRepo) AppendSchedule(_ context.Context, clientID string, s domain.PaymentSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return domain.ErrClientNotFound
	}
	if c.Status != domain.ClientActive {
		return domain.ErrInvalidState
	}
	c.PaymentSchedules = append(c.PaymentSchedules, s)
	c.Version++
	return nil
}

func (r *stubClientRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok || c.OwnerID != ownerID {
		return domain.ErrClientNotFound
	}
	delete(r.clients, id)
	return nil
}

func (r *stubClientRepo) MarkOverdue(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.clients {
		touched := false
		for i := range c.PaymentSchedules {
			s := &c.PaymentSchedules[i]
			if s.Status == domain.SchedulePending && s.DueDate.Before(before) {
				s.Status = domain.ScheduleOverdue
				touched = true
			}
		}
		if touched {
			n++
		}
	}
	return n, nil
}

func (r *stubClientRepo) Stats(_ context.Context, ownerID string) ([]domain.ClientStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ClientStats
	for _, c := range r.clients {
		if c.OwnerID != ownerID || c.Status != domain.ClientActive {
			continue
		}
		st := domain.ClientStats{ClientID: c.ID, Name: c.Name, Email: c.Email, CompanyName: c.CompanyName, TotalAmount: decimal.Zero}
		for _, s := range c.PaymentSchedules {
			st.TotalSchedules++
			if s.Status == domain.SchedulePending {
				st.PendingSchedules++
			}
			st.TotalAmount = st.TotalAmount.Add(s.Amount)
		}
		out = append(out, st)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Collaborator stubs
// ---------------------------------------------------------------------------

type emitted struct {
	UserID  string
	Type    domain.NotificationType
	Title   string
	Message string
	Data    map[string]any
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []emitted
	err  error
}

func (n *stubNotifier) Emit(_ context.Context, userID string, typ domain.NotificationType, title, message string, data map[string]any) (*domain.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return nil, n.err
	}
	n.sent = append(n.sent, emitted{UserID: userID, Type: typ, Title: title, Message: message, Data: data})
	return &domain.Notification{ID: fmt.Sprintf("n_%d", len(n.sent)), UserID: userID, Type: typ}, nil
}

func (n *stubNotifier) ofType(typ domain.NotificationType) []emitted {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []emitted
	for _, e := range n.sent {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type scheduledReminder struct {
	Task ports.ReminderTask
	At   time.Time
}

type stubReminders struct {
	scheduled []scheduledReminder
	err       error
}

func (r *stubReminders) ScheduleReminder(_ context.Context, task ports.ReminderTask, at time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.scheduled = append(r.scheduled, scheduledReminder{Task: task, At: at})
	return nil
}

type stubProvider struct {
	lastCheckout *ports.CheckoutRequest
	event        *ports.ProviderEvent
	verifyErr    error
}

func (p *stubProvider) CreateCheckout(_ context.Context, req ports.CheckoutRequest) (*ports.PaymentLink, error) {
	p.lastCheckout = &req
	return &ports.PaymentLink{URL: "https://checkout.example/cs_1", SessionID: "cs_1", ExpiresAt: fixedNow.Add(24 * time.Hour)}, nil
}

func (p *stubProvider) VerifyEvent(_ []byte, _ string) (*ports.ProviderEvent, error) {
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	return p.event, nil
}

type stubDedup struct {
	seen map[string]bool
}

func newStubDedup() *stubDedup { return &stubDedup{seen: make(map[string]bool)} }

func (d *stubDedup) IsDuplicate(_ context.Context, id string) (bool, error) { return d.seen[id], nil }

func (d *stubDedup) Mark(_ context.Context, id string) error {
	d.seen[id] = true
	return nil
}
