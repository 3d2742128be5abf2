package usecase_test

import (
	"context"
	"sync"
	"time"

	"card-assistant-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

// Mock Repositories
type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepo) Insert(ctx context.Context, profile *domain.Profile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockProfileRepo) UpdateDetails(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.Profile, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepo) UpdateOnboarding(ctx context.Context, id string, data domain.OnboardingData, completedAt time.Time) error {
	return m.Called(ctx, id, data, completedAt).Error(0)
}

func (m *MockProfileRepo) ClearOnboarding(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockCardRepo struct {
	mock.Mock
}

func (m *MockCardRepo) ListByUser(ctx context.Context, userID string) ([]domain.Card, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Card), args.Error(1)
}

func (m *MockCardRepo) Insert(ctx context.Context, card *domain.Card) error {
	return m.Called(ctx, card).Error(0)
}

type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) Insert(ctx context.Context, c *domain.Conversation) error {
	return m.Called(ctx, c).Error(0)
}

type MockInsightsRepo struct {
	mock.Mock
}

func (m *MockInsightsRepo) MonthlySummary(ctx context.Context, userID string, since time.Time) ([]domain.MonthlySpend, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MonthlySpend), args.Error(1)
}

func (m *MockInsightsRepo) TopCategories(ctx context.Context, userID string, days int) ([]domain.CategorySpend, error) {
	args := m.Called(ctx, userID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CategorySpend), args.Error(1)
}

func (m *MockInsightsRepo) RecentTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

func (m *MockIdentityProvider) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockIdentityProvider) AuthorizeURL(provider, redirectURL, codeChallenge string) (string, error) {
	args := m.Called(provider, redirectURL, codeChallenge)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityProvider) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*domain.Session, error) {
	args := m.Called(ctx, authCode, codeVerifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

type MockProfileUsecase struct {
	mock.Mock
}

func (m *MockProfileUsecase) Ensure(ctx context.Context, identity domain.Identity, hints domain.ProfileHints) error {
	return m.Called(ctx, identity, hints).Error(0)
}

func (m *MockProfileUsecase) Require(ctx context.Context, identity domain.Identity) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *MockProfileUsecase) Get(ctx context.Context, identity domain.Identity) (*domain.Profile, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileUsecase) UpdateDetails(ctx context.Context, identity domain.Identity, update domain.ProfileUpdate) (*domain.Profile, error) {
	args := m.Called(ctx, identity, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

type MockPersonalizationClient struct {
	mock.Mock
}

func (m *MockPersonalizationClient) Ask(ctx context.Context, question string, payload domain.ExternalContextPayload) (*domain.Answer, error) {
	args := m.Called(ctx, question, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Answer), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, payload any) error {
	return m.Called(ctx, subject, payload).Error(0)
}

// memLocalStore is an in-memory domain.LocalStore.
type memLocalStore struct {
	mu     sync.Mutex
	values map[string][]byte
	setErr error
}

func newMemLocalStore() *memLocalStore {
	return &memLocalStore{values: map[string][]byte{}}
}

func (s *memLocalStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *memLocalStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *memLocalStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// memProfileRepo enforces the primary key the way the database does, so concurrent
// inserts for one id produce exactly one row and unique violations for the rest.
type memProfileRepo struct {
	mu        sync.Mutex
	rows      map[string]domain.Profile
	inserts   int
	conflicts int
	// readDelay is slept after the row is read, widening the window between
	// existence check and insert.
	readDelay time.Duration
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{rows: map[string]domain.Profile{}}
}

func (r *memProfileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.Lock()
	p, ok := r.rows[id]
	r.mu.Unlock()
	if r.readDelay > 0 {
		time.Sleep(r.readDelay)
	}
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memProfileRepo) Insert(_ context.Context, p *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[p.ID]; ok {
		r.conflicts++
		return domain.ErrUniqueViolation
	}
	r.inserts++
	r.rows[p.ID] = *p
	return nil
}

func (r *memProfileRepo) UpdateDetails(_ context.Context, id string, update domain.ProfileUpdate) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if update.FullName != nil {
		p.FullName = update.FullName
	}
	r.rows[id] = p
	return &p, nil
}

func (r *memProfileRepo) UpdateOnboarding(_ context.Context, id string, data domain.OnboardingData, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.MonthlySpendingRange = data.MonthlySpendingRange
	p.PreferredOptimizations = data.PreferredOptimizations
	p.PreferredCategories = data.PreferredCategories
	p.IsOpenToNewCard = data.IsOpenToNewCard
	p.AdditionalInfo = data.AdditionalInfo
	p.OnboardingCompleted = true
	p.OnboardingCompletedAt = &completedAt
	r.rows[id] = p
	return nil
}

func (r *memProfileRepo) ClearOnboarding(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.MonthlySpendingRange = nil
	p.PreferredOptimizations = []string{}
	p.PreferredCategories = []string{}
	p.IsOpenToNewCard = nil
	p.AdditionalInfo = nil
	p.OnboardingCompleted = false
	p.OnboardingCompletedAt = nil
	r.rows[id] = p
	return nil
}

func (r *memProfileRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func ptr[T any](v T) *T {
	return &v
}
