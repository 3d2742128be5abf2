package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"card-assistant-backend/internal/domain"
	"card-assistant-backend/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const recentActivityWindow = 10

type ContextAggregatorConfig struct {
	Timeout                time.Duration
	RecentTransactionLimit int
	InsightsWindowDays     int
	TopCategoriesDays      int
}

func (c ContextAggregatorConfig) withDefaults() ContextAggregatorConfig {
	if c.Timeout <= 0 {
		c.Timeout = 8 * time.Second
	}
	if c.RecentTransactionLimit <= 0 {
		c.RecentTransactionLimit = 10
	}
	if c.InsightsWindowDays <= 0 {
		c.InsightsWindowDays = 90
	}
	if c.TopCategoriesDays <= 0 {
		c.TopCategoriesDays = 30
	}
	return c
}

// ContextAggregator assembles a best-effort UserContext from four independent sources.
type ContextAggregator struct {
	profiles domain.ProfileRepository
	cards    domain.CardRepository
	insights domain.InsightsRepository
	cfg      ContextAggregatorConfig
	now      func() time.Time
}

var _ domain.ContextUsecase = (*ContextAggregator)(nil)

func NewContextAggregator(profiles domain.ProfileRepository, cards domain.CardRepository, insights domain.InsightsRepository, cfg ContextAggregatorConfig) *ContextAggregator {
	return &ContextAggregator{
		profiles: profiles,
		cards:    cards,
		insights: insights,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// sourceSet collects per-source results. After seal, late results are dropped.
type sourceSet struct {
	mu       sync.Mutex
	sealed   bool
	finished map[string]bool
	failed   map[string]bool
}

func (s *sourceSet) record(source string, err error, apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	s.finished[source] = true
	if err != nil {
		s.failed[source] = true
		return
	}
	apply()
}

func (s *sourceSet) seal(sources []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
	var failed []string
	for _, src := range sources {
		if s.failed[src] || !s.finished[src] {
			failed = append(failed, src)
		}
	}
	return failed
}

// Build never fails. A source that errors or misses the deadline contributes its empty value
// and is listed in FailedSources.
func (a *ContextAggregator) Build(ctx context.Context, identity domain.Identity) domain.UserContext {
	ctx, span := tracer.Start(ctx, "ContextAggregator.Build", trace.WithAttributes(attribute.String("user.id", identity.ID)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	var (
		profile  *domain.Profile
		cards    = []domain.Card{}
		insights = domain.SpendingInsights{MonthlySummary: []domain.MonthlySpend{}, TopCategories: []domain.CategorySpend{}}
		txs      = []domain.Transaction{}
	)
	sources := []string{domain.SourceProfile, domain.SourceCards, domain.SourceInsights, domain.SourceTransactions}
	set := &sourceSet{finished: map[string]bool{}, failed: map[string]bool{}}

	var g errgroup.Group
	run := func(source string, fetch func(context.Context) (func(), error)) {
		g.Go(func() error {
			sctx, sspan := tracer.Start(ctx, "ContextAggregator.source", trace.WithAttributes(attribute.String("source", source)))
			defer sspan.End()

			apply, err := fetch(sctx)
			if err != nil {
				recordSpanError(sspan, err)
				logger.Log.Warn("context source failed", "source", source, "user_id", identity.ID, "error", err)
			}
			set.record(source, err, func() {
				if apply != nil {
					apply()
				}
			})
			return nil
		})
	}

	run(domain.SourceProfile, func(ctx context.Context) (func(), error) {
		p, err := a.profiles.GetByID(ctx, identity.ID)
		return func() { profile = p }, err
	})
	run(domain.SourceCards, func(ctx context.Context) (func(), error) {
		c, err := a.cards.ListByUser(ctx, identity.ID)
		return func() {
			if c != nil {
				cards = c
			}
		}, err
	})
	run(domain.SourceInsights, func(ctx context.Context) (func(), error) {
		si, err := a.fetchInsights(ctx, identity.ID)
		return func() { insights = si }, err
	})
	run(domain.SourceTransactions, func(ctx context.Context) (func(), error) {
		t, err := a.insights.RecentTransactions(ctx, identity.ID, a.cfg.RecentTransactionLimit)
		return func() {
			if t != nil {
				txs = t
			}
		}, err
	})

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Log.Warn("context aggregation deadline reached", "user_id", identity.ID, "timeout", a.cfg.Timeout.String())
	}

	failed := set.seal(sources)

	// Read under the set lock: a straggler may still be racing the seal.
	set.mu.Lock()
	uc := domain.UserContext{
		UserID:             identity.ID,
		Profile:            profile,
		Cards:              cards,
		Insights:           insights,
		RecentTransactions: txs,
		GeneratedAt:        a.now().UTC(),
		Complete:           len(failed) == 0,
		FailedSources:      failed,
	}
	set.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("context.complete", uc.Complete),
		attribute.StringSlice("context.failed_sources", failed),
	)
	return uc
}

func (a *ContextAggregator) fetchInsights(ctx context.Context, userID string) (domain.SpendingInsights, error) {
	var (
		monthly []domain.MonthlySpend
		top     []domain.CategorySpend
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		since := a.now().AddDate(0, 0, -a.cfg.InsightsWindowDays)
		var err error
		monthly, err = a.insights.MonthlySummary(gctx, userID, since)
		return err
	})
	g.Go(func() error {
		var err error
		top, err = a.insights.TopCategories(gctx, userID, a.cfg.TopCategoriesDays)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.SpendingInsights{}, fmt.Errorf("%w: %w", domain.ErrAggregationSource, err)
	}
	if monthly == nil {
		monthly = []domain.MonthlySpend{}
	}
	if top == nil {
		top = []domain.CategorySpend{}
	}
	return domain.SpendingInsights{MonthlySummary: monthly, TopCategories: top}, nil
}

// Format projects a UserContext onto the personalization service schema.
// Absent sections are omitted, card fields are never null.
func (a *ContextAggregator) Format(uc domain.UserContext) domain.ExternalContextPayload {
	payload := domain.ExternalContextPayload{
		OwnedCards:       make([]domain.PayloadCard, 0, len(uc.Cards)),
		SpendingPatterns: make([]domain.PayloadSpending, 0, len(uc.Insights.TopCategories)),
	}

	if p := uc.Profile; p != nil {
		up := &domain.PayloadUserProfile{
			PreferredOptimizations: nonNilStrings(p.PreferredOptimizations),
			PreferredCategories:    nonNilStrings(p.PreferredCategories),
			IsOpenToNewCard:        p.IsOpenToNewCard,
			AdditionalInfo:         p.AdditionalInfo,
		}
		if p.MonthlySpendingRange != nil {
			up.MonthlySpendingRange = p.MonthlySpendingRange.Label()
		}
		payload.UserProfile = up
	}

	for _, c := range uc.Cards {
		payload.OwnedCards = append(payload.OwnedCards, domain.PayloadCard{
			Name:        c.Name,
			Type:        c.CardType,
			Network:     c.Network,
			Issuer:      c.Issuer,
			Category:    derefString(c.Category),
			CreditLimit: derefFloat(c.CreditLimit),
			AnnualFee:   derefFloat(c.AnnualFee),
			Benefits:    derefString(c.Benefits),
			IsPrimary:   c.IsPrimary,
		})
	}

	for _, cat := range uc.Insights.TopCategories {
		payload.SpendingPatterns = append(payload.SpendingPatterns, domain.PayloadSpending{
			Category:         cat.Category,
			Amount:           cat.Amount,
			TransactionCount: cat.TransactionCount,
			Percentage:       cat.Percentage,
		})
	}

	recent := len(uc.RecentTransactions)
	if recent > recentActivityWindow {
		recent = recentActivityWindow
	}
	payload.RecentActivity = domain.PayloadActivity{
		HasRecentTransactions:  recent > 0,
		TransactionCountLast10: recent,
	}
	payload.ContextMetadata = domain.PayloadMetadata{
		GeneratedAt:        uc.GeneratedAt,
		CardsCount:         len(uc.Cards),
		HasCompleteProfile: uc.Profile.HasCompleteOnboarding(),
	}
	return payload
}

// Summarize renders a one-line synopsis for the UI, e.g. "3 cards · primary: HDFC Millennia · spends ₹10-30k/month".
func (a *ContextAggregator) Summarize(uc domain.UserContext) string {
	parts := make([]string, 0, 4)
	switch n := len(uc.Cards); n {
	case 0:
		parts = append(parts, "No cards yet")
	case 1:
		parts = append(parts, "1 card")
	default:
		parts = append(parts, fmt.Sprintf("%d cards", n))
	}
	if primary := uc.PrimaryCard(); primary != nil && strings.TrimSpace(primary.Name) != "" {
		parts = append(parts, "primary: "+primary.Name)
	}
	if uc.Profile != nil && uc.Profile.MonthlySpendingRange != nil {
		parts = append(parts, "spends "+uc.Profile.MonthlySpendingRange.Label()+"/month")
	}
	if !uc.Complete {
		failed := append([]string(nil), uc.FailedSources...)
		sort.Strings(failed)
		parts = append(parts, "partial: "+strings.Join(failed, ", ")+" unavailable")
	}
	return strings.Join(parts, " · ")
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
