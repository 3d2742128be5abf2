package v1_test

import (
	"context"

	"card-assistant-backend/internal/domain"
	"card-assistant-backend/internal/navigation"

	"github.com/stretchr/testify/mock"
)

type MockSessionUsecase struct {
	mock.Mock
}

func (m *MockSessionUsecase) Snapshot() domain.SessionSnapshot {
	return m.Called().Get(0).(domain.SessionSnapshot)
}

func (m *MockSessionUsecase) Current() (domain.Identity, bool) {
	args := m.Called()
	return args.Get(0).(domain.Identity), args.Bool(1)
}

func (m *MockSessionUsecase) SignIn(ctx context.Context, creds domain.Credentials) (domain.Identity, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(domain.Identity), args.Error(1)
}

func (m *MockSessionUsecase) SignOut(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockSessionUsecase) SignInSilently(ctx context.Context) (domain.Identity, bool) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Identity), args.Bool(1)
}

func (m *MockSessionUsecase) Restore(ctx context.Context) domain.SessionSnapshot {
	return m.Called(ctx).Get(0).(domain.SessionSnapshot)
}

func (m *MockSessionUsecase) BeginOAuth(ctx context.Context, provider string) (string, error) {
	args := m.Called(ctx, provider)
	return args.String(0), args.Error(1)
}

func (m *MockSessionUsecase) CompleteOAuth(ctx context.Context, state, code string) (domain.Identity, error) {
	args := m.Called(ctx, state, code)
	return args.Get(0).(domain.Identity), args.Error(1)
}

func (m *MockSessionUsecase) AcceptSession(ctx context.Context, accessToken, refreshToken string) (domain.Identity, error) {
	args := m.Called(ctx, accessToken, refreshToken)
	return args.Get(0).(domain.Identity), args.Error(1)
}

type MockOnboardingUsecase struct {
	mock.Mock
}

func (m *MockOnboardingUsecase) IsNewUser() bool              { return m.Called().Bool(0) }
func (m *MockOnboardingUsecase) HasCompletedOnboarding() bool { return m.Called().Bool(0) }

func (m *MockOnboardingUsecase) Flags() domain.OnboardingFlags {
	return m.Called().Get(0).(domain.OnboardingFlags)
}

func (m *MockOnboardingUsecase) MarkNewUser(isNew bool) {
	m.Called(isNew)
}

func (m *MockOnboardingUsecase) CompleteOnboarding(ctx context.Context, identity domain.Identity, data domain.OnboardingData) error {
	return m.Called(ctx, identity, data).Error(0)
}

func (m *MockOnboardingUsecase) SkipOnboarding() {
	m.Called()
}

func (m *MockOnboardingUsecase) LoadRemoteOnboarding(ctx context.Context, identity domain.Identity) (*domain.OnboardingData, error) {
	args := m.Called(ctx, identity)
	data, _ := args.Get(0).(*domain.OnboardingData)
	return data, args.Error(1)
}

func (m *MockOnboardingUsecase) Reset(ctx context.Context, identity domain.Identity) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *MockOnboardingUsecase) ClearLocal() {
	m.Called()
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
	p, _ := args.Get(0).(*domain.Profile)
	return p, args.Error(1)
}

func (m *MockProfileUsecase) UpdateDetails(ctx context.Context, identity domain.Identity, update domain.ProfileUpdate) (*domain.Profile, error) {
	args := m.Called(ctx, identity, update)
	p, _ := args.Get(0).(*domain.Profile)
	return p, args.Error(1)
}

type MockCardUsecase struct {
	mock.Mock
}

func (m *MockCardUsecase) ListCards(ctx context.Context, identity domain.Identity) ([]domain.Card, error) {
	args := m.Called(ctx, identity)
	cards, _ := args.Get(0).([]domain.Card)
	return cards, args.Error(1)
}

func (m *MockCardUsecase) AddCard(ctx context.Context, identity domain.Identity, input domain.CardInput) (*domain.Card, error) {
	args := m.Called(ctx, identity, input)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

type MockChatUsecase struct {
	mock.Mock
}

func (m *MockChatUsecase) StartConversation(ctx context.Context, identity domain.Identity, title string) (*domain.Conversation, error) {
	args := m.Called(ctx, identity, title)
	c, _ := args.Get(0).(*domain.Conversation)
	return c, args.Error(1)
}

func (m *MockChatUsecase) Ask(ctx context.Context, identity domain.Identity, question string) (*domain.Answer, error) {
	args := m.Called(ctx, identity, question)
	a, _ := args.Get(0).(*domain.Answer)
	return a, args.Error(1)
}

type MockContextUsecase struct {
	mock.Mock
}

func (m *MockContextUsecase) Build(ctx context.Context, identity domain.Identity) domain.UserContext {
	return m.Called(ctx, identity).Get(0).(domain.UserContext)
}

func (m *MockContextUsecase) Format(uc domain.UserContext) domain.ExternalContextPayload {
	return m.Called(uc).Get(0).(domain.ExternalContextPayload)
}

func (m *MockContextUsecase) Summarize(uc domain.UserContext) string {
	return m.Called(uc).String(0)
}

type fixedNavigator struct {
	state navigation.State
}

func (n fixedNavigator) State() navigation.State { return n.state }

func (n fixedNavigator) Navigate(route string) navigation.Decision {
	return navigation.Resolve(n.state, route)
}
