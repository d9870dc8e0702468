package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/tasyapp/billing/internal/domain/entity"
	domainErrors "github.com/tasyapp/billing/internal/domain/errors"
	"github.com/tasyapp/billing/internal/domain/model"
	domainRepo "github.com/tasyapp/billing/internal/domain/repository"
	"github.com/tasyapp/billing/internal/metrics"
	"github.com/tasyapp/billing/internal/usecase"
)

const testProduct = "tasy-viral"

// memoryStore implements the subscription, profile and credit repositories
// over maps.
type memoryStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*entity.Profile
	subs     map[string]*entity.Subscription
	ledger   []*model.CreditTransaction
	subWrite int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		profiles: make(map[uuid.UUID]*entity.Profile),
		subs:     make(map[string]*entity.Subscription),
	}
}

func (s *memoryStore) addProfile(customerID string, credits int) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.profiles[id] = &entity.Profile{
		UserID:           id,
		Email:            id.String()[:8] + "@example.com",
		StripeCustomerID: customerID,
		Credits:          credits,
	}
	return id
}

func (s *memoryStore) profile(id uuid.UUID) entity.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.profiles[id]
}

func (s *memoryStore) subscription(providerID string) *entity.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[providerID]; ok {
		cp := *sub
		return &cp
	}
	return nil
}

// SubscriptionRepository

func (s *memoryStore) GetByProviderID(_ context.Context, id string) (*entity.Subscription, error) {
	return s.subscription(id), nil
}

func (s *memoryStore) Create(_ context.Context, sub *entity.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = sub.CreatedAt
	cp := *sub
	s.subs[sub.StripeSubscriptionID] = &cp
	s.subWrite++
	return nil
}

func (s *memoryStore) Update(_ context.Context, sub *entity.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.subs[sub.StripeSubscriptionID]
	if !ok {
		return domainErrors.ErrSubscriptionNotFound
	}
	cp := *sub
	cp.ID = existing.ID
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now()
	s.subs[sub.StripeSubscriptionID] = &cp
	s.subWrite++
	return nil
}

func (s *memoryStore) UpdateStatus(_ context.Context, change entity.StatusChange, product string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[change.StripeSubscriptionID]
	if !ok || sub.Product != product {
		return 0, nil
	}
	sub.Status = change.Status
	sub.IsActive = change.IsActive
	sub.UpdatedAt = time.Now()
	s.subWrite++
	return 1, nil
}

func (s *memoryStore) GetLatestForUser(_ context.Context, userID uuid.UUID, product string) (*entity.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *entity.Subscription
	for _, sub := range s.subs {
		if sub.UserID != userID || sub.Product != product {
			continue
		}
		if latest == nil || sub.UpdatedAt.After(latest.UpdatedAt) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// ProfileRepository

func (s *memoryStore) GetByCustomerID(_ context.Context, customerID string) (*entity.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.StripeCustomerID == customerID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) GetByID(_ context.Context, userID uuid.UUID) (*entity.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *memoryStore) SetCustomerID(_ context.Context, userID uuid.UUID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return domainErrors.ErrProfileNotFound
	}
	p.StripeCustomerID = customerID
	return nil
}

func (s *memoryStore) LinkSubscription(_ context.Context, userID, subscriptionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return domainErrors.ErrProfileNotFound
	}
	p.SubscriptionID = &subscriptionID
	p.OnboardingCompleted = true
	return nil
}

// CreditRepository

func (s *memoryStore) GetBalance(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return 0, domainErrors.ErrProfileNotFound
	}
	return p.Credits, nil
}

func (s *memoryStore) ApplyGrant(_ context.Context, req domainRepo.CreditRequest, grant domainRepo.GrantFunc) (*entity.CreditGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[req.UserID]
	if !ok {
		return nil, domainErrors.ErrProfileNotFound
	}

	before := p.Credits
	granted := grant(before)
	p.Credits = before + granted

	if granted > 0 {
		ref := req.ReferenceID
		s.ledger = append(s.ledger, &model.CreditTransaction{
			ID:            int64(len(s.ledger) + 1),
			UserID:        req.UserID,
			PlanType:      req.Plan.StoredType(),
			Amount:        decimal.NewFromInt(int64(granted)),
			BalanceBefore: decimal.NewFromInt(int64(before)),
			BalanceAfter:  decimal.NewFromInt(int64(p.Credits)),
			Description:   req.Description,
			ReferenceID:   &ref,
			CreatedAt:     time.Now(),
		})
	}

	return &entity.CreditGrant{
		UserID:   req.UserID,
		Plan:     req.Plan,
		Interval: req.Interval,
		Before:   before,
		Granted:  granted,
		After:    p.Credits,
	}, nil
}

func (s *memoryStore) GetTransactionHistory(_ context.Context, userID uuid.UUID, limit, offset int) ([]*model.CreditTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.CreditTransaction
	for _, tx := range s.ledger {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) ledgerLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledger)
}

// MockSubscriptionProvider is a mock implementation of provider.SubscriptionProvider
type MockSubscriptionProvider struct {
	mock.Mock
}

func (m *MockSubscriptionProvider) GetSubscription(ctx context.Context, subscriptionID string) (*entity.ProviderSubscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProviderSubscription), args.Error(1)
}

func (m *MockSubscriptionProvider) ListSubscriptions(ctx context.Context, status string, fn func(*entity.ProviderSubscription) error) error {
	args := m.Called(ctx, status, fn)
	if subs, ok := args.Get(0).([]*entity.ProviderSubscription); ok {
		for _, sub := range subs {
			if err := fn(sub); err != nil {
				return err
			}
		}
	}
	return args.Error(1)
}

func (m *MockSubscriptionProvider) GetProviderName() string {
	return "stripe"
}

// MockPublisher is a mock implementation of provider.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}

// MockWebhookEventRepository is a mock implementation of WebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) Record(ctx context.Context, rec *entity.WebhookEventRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func testPrices() *entity.PriceTable {
	return entity.NewPriceTable([]entity.Price{
		{ID: "price_starter_monthly", Plan: entity.PlanStarter, Interval: entity.IntervalMonthly},
		{ID: "price_pro_monthly", Plan: entity.PlanPro, Interval: entity.IntervalMonthly},
		{ID: "price_pro_yearly", Plan: entity.PlanPro, Interval: entity.IntervalYearly},
		{ID: "price_business_yearly", Plan: entity.PlanBusiness, Interval: entity.IntervalYearly},
	})
}

type fixture struct {
	store      *memoryStore
	provider   *MockSubscriptionProvider
	publisher  *MockPublisher
	metrics    *metrics.Metrics
	allocator  *usecase.CreditAllocator
	reconciler *usecase.SubscriptionReconciler
	dispatcher *usecase.WebhookDispatcher
}

func newFixture() *fixture {
	logger := zap.NewNop()
	store := newMemoryStore()
	prov := new(MockSubscriptionProvider)
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m := metrics.New(prometheus.NewRegistry())

	allocator := usecase.NewCreditAllocator(store, entity.DefaultCreditCaps(), pub, m, logger)
	reconciler := usecase.NewSubscriptionReconciler(usecase.ReconcilerDeps{
		SubscriptionRepo: store,
		ProfileRepo:      store,
		Resolver:         usecase.NewUserResolver(store, logger),
		Allocator:        allocator,
		Provider:         prov,
		Publisher:        pub,
		Prices:           testPrices(),
		Product:          testProduct,
		Metrics:          m,
		Logger:           logger,
	})

	return &fixture{
		store:      store,
		provider:   prov,
		publisher:  pub,
		metrics:    m,
		allocator:  allocator,
		reconciler: reconciler,
		dispatcher: usecase.NewWebhookDispatcher(reconciler, m, logger),
	}
}

func viralSub(id, customerID, priceID, status string) *entity.ProviderSubscription {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return &entity.ProviderSubscription{
		ID:                 id,
		CustomerID:         customerID,
		Status:             status,
		PriceID:            priceID,
		RecurringInterval:  "month",
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
		Metadata:           map[string]string{"product": testProduct},
	}
}
