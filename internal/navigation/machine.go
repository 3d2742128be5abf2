package navigation

import (
	"context"
	"sync"

	"card-assistant-backend/internal/domain"
	"card-assistant-backend/pkg/logger"
	"card-assistant-backend/pkg/pubsub"
)

type SessionSource interface {
	Subscribe() *pubsub.Subscription[domain.SessionSnapshot]
}

type OnboardingSource interface {
	Subscribe() *pubsub.Subscription[domain.OnboardingChange]
	Flags() domain.OnboardingFlags
}

// Machine feeds session and onboarding events through Reduce in arrival order.
// It runs for the life of the process and does not depend on any screen being mounted.
type Machine struct {
	sessions   SessionSource
	onboarding OnboardingSource

	mu     sync.Mutex
	state  State
	userID string
	topic  *pubsub.Topic[State]
}

func NewMachine(sessions SessionSource, onboarding OnboardingSource) *Machine {
	return &Machine{
		sessions:   sessions,
		onboarding: onboarding,
		topic:      pubsub.NewTopic[State](),
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Navigate answers a UI route request against the current state.
func (m *Machine) Navigate(route string) Decision {
	return Resolve(m.State(), route)
}

// Changes delivers the current state, then every transition.
func (m *Machine) Changes() *pubsub.Subscription[State] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.topic.Subscribe(m.state)
}

// Apply reduces one event and publishes the new state if it changed.
func (m *Machine) Apply(e Event) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(e)
}

func (m *Machine) applyLocked(e Event) State {
	prev := m.state
	m.state = Reduce(prev, e)
	if m.state != prev {
		logger.Log.Debug("navigation transition", "from", prev.String(), "to", m.state.String())
		m.topic.Publish(m.state)
	}
	return m.state
}

// HandleSession converts a session snapshot into events. A different identity replacing the
// current one is treated as a sign-out followed by a sign-in.
func (m *Machine) HandleSession(snap domain.SessionSnapshot) State {
	if !snap.Resolved {
		return m.State()
	}
	flags := m.onboarding.Flags()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !snap.Authenticated() {
		m.userID = ""
		return m.applyLocked(SessionChanged{Authenticated: false})
	}
	if m.userID != "" && m.userID != snap.Identity.ID {
		m.applyLocked(SessionChanged{Authenticated: false})
	}
	m.userID = snap.Identity.ID
	return m.applyLocked(SessionChanged{Authenticated: true, Flags: flags})
}

func (m *Machine) HandleOnboarding(change domain.OnboardingChange) State {
	return m.Apply(onboardingEvent(change))
}

func onboardingEvent(change domain.OnboardingChange) Event {
	switch change.Reason {
	case domain.OnboardingCompleted:
		return OnboardingCompleted{}
	case domain.OnboardingSkipped:
		return OnboardingSkipped{}
	case domain.OnboardingReset:
		return OnboardingRestarted{}
	case domain.OnboardingReconciled:
		// The remote row confirming completion counts as a completion.
		if change.Flags.HasCompletedOnboarding {
			return OnboardingCompleted{}
		}
	}
	return OnboardingChanged{Flags: change.Flags}
}

// Run consumes both streams until ctx ends or both streams close.
func (m *Machine) Run(ctx context.Context) {
	sessions := m.sessions.Subscribe()
	defer sessions.Close()
	onboarding := m.onboarding.Subscribe()
	defer onboarding.Close()

	sessionC, onboardingC := sessions.C(), onboarding.C()
	for sessionC != nil || onboardingC != nil {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sessionC:
			if !ok {
				sessionC = nil
				continue
			}
			m.HandleSession(snap)
		case change, ok := <-onboardingC:
			if !ok {
				onboardingC = nil
				continue
			}
			m.HandleOnboarding(change)
		}
	}
}

func (m *Machine) Close() {
	m.topic.Close()
}
