package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Ananth-NQI/choptime-backend/internal/models"
	"github.com/Ananth-NQI/choptime-backend/internal/storage"
)

const (
	testAdmin    = "237690000000"
	testDelivery = "237680000000"
	testCustomer = "237670000001"
)

// countingStore wraps MemoryStore to count and optionally fail writes
type countingStore struct {
	*storage.MemoryStore

	mu            sync.Mutex
	creates       int
	updates       []string
	failCreate    error
	failPartner   error
	referenceHits map[string]bool
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: storage.NewMemoryStore()}
}

func (s *countingStore) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	s.creates++
	fail := s.failCreate
	s.mu.Unlock()
	if fail != nil {
		return fail
	}
	return s.MemoryStore.CreateOrder(ctx, order)
}

func (s *countingStore) UpdateOrderStatus(ctx context.Context, reference, status string) error {
	s.mu.Lock()
	s.updates = append(s.updates, reference+"="+status)
	s.mu.Unlock()
	return s.MemoryStore.UpdateOrderStatus(ctx, reference, status)
}

func (s *countingStore) CreatePartnerApplication(ctx context.Context, app *models.PartnerApplication) error {
	if s.failPartner != nil {
		return s.failPartner
	}
	return s.MemoryStore.CreatePartnerApplication(ctx, app)
}

func (s *countingStore) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	if s.referenceHits[reference] {
		return true, nil
	}
	return s.MemoryStore.ReferenceExists(ctx, reference)
}

func (s *countingStore) createCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

var errStoreDown = errors.New("database unavailable")

// testEnv is a fully wired service graph over fakes
type testEnv struct {
	store     *countingStore
	messenger *CaptureMessenger
	phones    PhoneNormalizer
	notifier  *Notifier
	sessions  *MemorySessionStore
	finalizer *OrderFinalizer
	engine    *ConversationEngine
	commands  *CommandRouter
	service   *WhatsAppService
}

type envOption func(*envSettings)

type envSettings struct {
	menu   []models.MenuItem
	policy TransitionPolicy
	towns  map[string][]string
}

func withMenu(items ...models.MenuItem) envOption {
	return func(s *envSettings) { s.menu = items }
}

func withPolicy(p TransitionPolicy) envOption {
	return func(s *envSettings) { s.policy = p }
}

func withTowns(towns map[string][]string) envOption {
	return func(s *envSettings) { s.towns = towns }
}

func jollof() models.MenuItem {
	return models.MenuItem{Name: "Jollof Rice", Price: 1000, Category: "mains", Available: true}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	settings := envSettings{menu: []models.MenuItem{jollof()}, policy: PolicyPermissive}
	for _, opt := range opts {
		opt(&settings)
	}

	env := &testEnv{
		store:     newCountingStore(),
		messenger: NewCaptureMessenger(),
		phones:    NewPhoneNormalizer("237", "6"),
		sessions:  NewMemorySessionStore(),
	}
	routing := NewDeliveryRouting(env.phones, []string{testDelivery}, settings.towns)
	env.notifier = NewNotifier(env.messenger, []string{testAdmin}, routing)
	env.finalizer = NewOrderFinalizer(env.store, NewReferenceGenerator("CHP", env.store), env.notifier, "FCFA")
	env.engine = NewConversationEngine(EngineConfig{
		Sessions:  env.sessions,
		Catalog:   NewCatalog(StaticMenuSource(settings.menu)),
		Phones:    env.phones,
		Finalizer: env.finalizer,
		Store:     env.store,
		Notifier:  env.notifier,
		Greetings: []string{"hi", "menu"},
		Currency:  "FCFA",
	})
	env.commands = NewCommandRouter([]string{testAdmin, testDelivery}, env.store, env.notifier, settings.policy)
	env.service = NewWhatsAppService(env.phones, env.commands, NewStorefrontRelay(env.notifier), env.engine)
	return env
}

// say sends one message through the engine and fails the test on error
func (e *testEnv) say(t *testing.T, sender, text string) *StepResult {
	t.Helper()
	res, err := e.engine.Handle(context.Background(), sender, text)
	if err != nil {
		t.Fatalf("Handle(%q): %v", text, err)
	}
	return res
}

func (e *testEnv) step(t *testing.T, sender string) models.Step {
	t.Helper()
	s, ok := e.sessions.Get(sender)
	if !ok {
		return ""
	}
	return s.Step
}

// seedOrder stores a pending order for the customer and returns its reference
func (e *testEnv) seedOrder(t *testing.T, reference string) {
	t.Helper()
	order := &models.Order{
		Reference:       reference,
		UserPhone:       testCustomer,
		DeliveryAddress: "Bonamoussadi",
		Currency:        "FCFA",
		Items:           []models.OrderItem{{Name: "Jollof Rice", Quantity: 1, UnitPrice: 1000}},
	}
	order.ComputeTotal()
	if err := e.store.MemoryStore.CreateOrder(context.Background(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
}
