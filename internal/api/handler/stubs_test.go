package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/settleup/settleup-api/internal/core/domain"
	"github.com/settleup/settleup-api/internal/core/ports"
)

const testUserID = "65f1c0ffee0000000000abcd"

// newContext builds an echo context with a JSON body and the identity the
// Auth middleware would have injected. Pass an empty userID for anonymous calls.
func newContext(method, target, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
		c.Set("role", domain.RoleUser)
	}
	return c, rec
}

func httpCode(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return 0
}

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.AuthResult, error)
	identityFn func(ctx context.Context, identity domain.ExternalIdentity) (*ports.AuthResult, error)
	meFn       func(ctx context.Context, userID string) (*domain.User, error)
	regionFn   func(ctx context.Context, userID string, region domain.Region) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) LoginWithIdentity(ctx context.Context, identity domain.ExternalIdentity) (*ports.AuthResult, error) {
	return s.identityFn(ctx, identity)
}

func (s *stubAuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.meFn(ctx, userID)
}

func (s *stubAuthService) UpdateRegion(ctx context.Context, userID string, region domain.Region) (*domain.User, error) {
	return s.regionFn(ctx, userID, region)
}

type stubIdentityProvider struct {
	identity *domain.ExternalIdentity
	err      error
}

func (p *stubIdentityProvider) Begin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "https://accounts.google.com/o/oauth2/auth", http.StatusTemporaryRedirect)
}

func (p *stubIdentityProvider) Complete(http.ResponseWriter, *http.Request) (*domain.ExternalIdentity, error) {
	return p.identity, p.err
}

type stubClientService struct {
	createFn  func(ctx context.Context, in ports.CreateClientInput) (*domain.Client, error)
	respondFn func(ctx context.Context, clientID, responderID string, accept bool) (*domain.Client, error)
	getFn     func(ctx context.Context, ownerID, clientID string) (*domain.Client, error)
	listFn    func(ctx context.Context, filter ports.ListClientsFilter) ([]*domain.Client, error)
	updateFn  func(ctx context.Context, ownerID, clientID string, patch ports.UpdateClientInput) (*domain.Client, error)
	deleteFn  func(ctx context.Context, ownerID, clientID string) error
	searchFn  func(ctx context.Context, ownerID, fragment string) (*ports.ClientSearchResult, error)
	statsFn   func(ctx context.Context, ownerID string) ([]domain.ClientStats, error)
}

func (s *stubClientService) Create(ctx context.Context, in ports.CreateClientInput) (*domain.Client, error) {
	return s.createFn(ctx, in)
}

func (s *stubClientService) Respond(ctx context.Context, clientID, responderID string, accept bool) (*domain.Client, error) {
	return s.respondFn(ctx, clientID, responderID, accept)
}

func (s *stubClientService) Get(ctx context.Context, ownerID, clientID string) (*domain.Client, error) {
	return s.getFn(ctx, ownerID, clientID)
}

func (s *stubClientService) List(ctx context.Context, filter ports.ListClientsFilter) ([]*domain.Client, error) {
	return s.listFn(ctx, filter)
}

func (s *stubClientService) Update(ctx context.Context, ownerID, clientID string, patch ports.UpdateClientInput) (*domain.Client, error) {
	return s.updateFn(ctx, ownerID, clientID, patch)
}

func (s *stubClientService) Delete(ctx context.Context, ownerID, clientID string) error {
	return s.deleteFn(ctx, ownerID, clientID)
}

func (s *stubClientService) SearchByEmail(ctx context.Context, ownerID, fragment string) (*ports.ClientSearchResult, error) {
	return s.searchFn(ctx, ownerID, fragment)
}

func (s *stubClientService) Stats(ctx context.Context, ownerID string) ([]domain.ClientStats, error) {
	return s.statsFn(ctx, ownerID)
}

// stubPaymentService embeds the interface so tests only implement what they call.
type stubPaymentService struct {
	ports.PaymentService
	createFn   func(ctx context.Context, in ports.CreateScheduleInput) (*domain.PaymentSchedule, error)
	updateFn   func(ctx context.Context, ownerID, clientID string, ref domain.ScheduleRef, patch ports.UpdateScheduleInput) (*domain.PaymentSchedule, error)
	markPaidFn func(ctx context.Context, ownerID, clientID string, ref domain.ScheduleRef) (*domain.PaymentSchedule, error)
	linkFn     func(ctx context.Context, in ports.PaymentLinkInput) (*ports.PaymentLink, error)
	eventFn    func(ctx context.Context, payload []byte, signature string) error
}

func (s *stubPaymentService) CreateSchedule(ctx context.Context, in ports.CreateScheduleInput) (*domain.PaymentSchedule, error) {
	return s.createFn(ctx, in)
}

func (s *stubPaymentService) UpdateSchedule(ctx context.Context, ownerID, clientID string, ref domain.ScheduleRef, patch ports.UpdateScheduleInput) (*domain.PaymentSchedule, error) {
	return s.updateFn(ctx, ownerID, clientID, ref, patch)
}

func (s *stubPaymentService) MarkPaid(ctx context.Context, ownerID, clientID string, ref domain.ScheduleRef) (*domain.PaymentSchedule, error) {
	return s.markPaidFn(ctx, ownerID, clientID, ref)
}

func (s *stubPaymentService) CreatePaymentLink(ctx context.Context, in ports.PaymentLinkInput) (*ports.PaymentLink, error) {
	return s.linkFn(ctx, in)
}

func (s *stubPaymentService) HandleProviderEvent(ctx context.Context, payload []byte, signature string) error {
	return s.eventFn(ctx, payload, signature)
}

type stubNotificationService struct {
	ports.NotificationService
	listFn     func(ctx context.Context, userID string, limit int, unreadOnly bool) ([]*domain.Notification, error)
	markReadFn func(ctx context.Context, id, userID string) (*domain.Notification, error)
	unreadFn   func(ctx context.Context, userID string) (int64, error)
}

func (s *stubNotificationService) List(ctx context.Context, userID string, limit int, unreadOnly bool) ([]*domain.Notification, error) {
	return s.listFn(ctx, userID, limit, unreadOnly)
}

func (s *stubNotificationService) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	return s.markReadFn(ctx, id, userID)
}

func (s *stubNotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.unreadFn(ctx, userID)
}

type stubStream struct {
	items []*domain.Notification
	user  string
}

func (s *stubStream) Subscribe(_ context.Context, userID string) (<-chan *domain.Notification, func(), error) {
	s.user = userID
	ch := make(chan *domain.Notification, len(s.items))
	for _, n := range s.items {
		ch <- n
	}
	close(ch)
	return ch, func() {}, nil
}

var fixedTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
