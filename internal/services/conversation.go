package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Ananth-NQI/choptime-backend/internal/models"
	"github.com/Ananth-NQI/choptime-backend/internal/storage"
)

const maxQuantity = 999

var onboardingKeywords = []string{"join", "partner", "register", "vendor", "rider"}

// MenuLister supplies the current orderable items
type MenuLister interface {
	ListAvailable(ctx context.Context) []models.MenuItem
}

// StepResult describes what one inbound message did to the sender's session
type StepResult struct {
	Sender         string            `json:"sender"`
	From           models.Step       `json:"from"`
	To             models.Step       `json:"to"`
	Replies        []DeliveryOutcome `json:"replies"`
	SessionDeleted bool              `json:"session_deleted"`

	Finalization *FinalizationResult       `json:"finalization,omitempty"`
	Partner      *models.PartnerApplication `json:"partner,omitempty"`

	// Err is an internal failure that was answered with a polite reply
	Err error `json:"-"`
}

// EngineConfig wires a ConversationEngine
type EngineConfig struct {
	Sessions  SessionStore
	Catalog   MenuLister
	Phones    PhoneNormalizer
	Finalizer *OrderFinalizer
	Store     storage.Store
	Notifier  *Notifier
	Greetings []string
	Currency  string
	Now       func() time.Time
}

// ConversationEngine advances a sender's dialogue by one message
type ConversationEngine struct {
	sessions  SessionStore
	catalog   MenuLister
	phones    PhoneNormalizer
	finalizer *OrderFinalizer
	store     storage.Store
	notifier  *Notifier
	greetings map[string]struct{}
	currency  string
	now       func() time.Time
}

// NewConversationEngine creates an engine
func NewConversationEngine(cfg EngineConfig) *ConversationEngine {
	greetings := make(map[string]struct{}, len(cfg.Greetings))
	for _, g := range cfg.Greetings {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			greetings[g] = struct{}{}
		}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ConversationEngine{
		sessions:  cfg.Sessions,
		catalog:   cfg.Catalog,
		phones:    cfg.Phones,
		finalizer: cfg.Finalizer,
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		greetings: greetings,
		currency:  cfg.Currency,
		now:       now,
	}
}

// turn is the state of one Handle call
type turn struct {
	session *models.Session
	text    string
	replies []string
	deleted bool
	result  *StepResult
}

func (t *turn) reply(body string) {
	t.replies = append(t.replies, body)
}

func (t *turn) moveTo(step models.Step) {
	t.session.Step = step
}

// restart drops the session so the next message starts at INIT
func (t *turn) restart() {
	t.reply(msgRestart)
	t.deleted = true
}

// Handle processes one inbound text from sender. Messages for the same sender
// are serialized; the returned error is only set when the sender could not be locked.
func (e *ConversationEngine) Handle(ctx context.Context, sender, text string) (*StepResult, error) {
	unlock, err := e.sessions.Lock(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("failed to lock session for %s: %w", sender, err)
	}
	defer unlock()

	session, ok := e.sessions.Get(sender)
	if !ok {
		session = models.NewSession(sender, e.now())
	}

	t := &turn{
		session: session,
		text:    strings.TrimSpace(text),
		result:  &StepResult{Sender: sender, From: session.Step},
	}
	e.step(ctx, t)

	if t.deleted {
		e.sessions.Delete(sender)
	} else {
		e.sessions.Put(t.session)
	}
	t.result.To = t.session.Step
	t.result.SessionDeleted = t.deleted

	for _, body := range t.replies {
		t.result.Replies = append(t.result.Replies, e.notifier.NotifyUser(ctx, sender, body))
	}

	slog.Debug("Conversation step", "sender", sender, "from", t.result.From, "to", t.result.To, "deleted", t.deleted)
	return t.result, nil
}

func (e *ConversationEngine) step(ctx context.Context, t *turn) {
	switch t.session.Step {
	case models.StepInit:
		e.handleInit(ctx, t)
	case models.StepAwaitDish:
		e.handleDish(t)
	case models.StepAwaitQuantity:
		e.handleQuantity(t)
	case models.StepAwaitAddress:
		e.handleAddress(t)
	case models.StepAwaitPhone:
		e.handlePhone(ctx, t)
	case models.StepAwaitMainChoice:
		e.handleMainChoice(t)
	default:
		if p, ok := partnerPipelines.lookup(t.session.Step); ok {
			e.handlePartnerField(ctx, t, p)
			return
		}
		t.restart()
	}
}

func (e *ConversationEngine) handleInit(ctx context.Context, t *turn) {
	word := strings.ToLower(t.text)

	if _, ok := e.greetings[word]; ok {
		menu := e.catalog.ListAvailable(ctx)
		if len(menu) == 0 {
			t.reply(msgMenuUnavailable)
			return
		}
		t.session.Menu = menu
		t.session.Order = models.OrderDraft{}
		t.reply(menuText(menu, e.currency))
		t.moveTo(models.StepAwaitDish)
		return
	}

	for _, k := range onboardingKeywords {
		if word == k {
			t.session.Partner = models.PartnerDraft{}
			t.reply(msgMainChoice)
			t.moveTo(models.StepAwaitMainChoice)
			return
		}
	}

	t.reply(msgOnboarding)
}

func (e *ConversationEngine) handleDish(t *turn) {
	n, err := strconv.Atoi(t.text)
	if err != nil || n < 1 || n > len(t.session.Menu) {
		t.reply(badDishText(len(t.session.Menu)))
		return
	}
	item := t.session.Menu[n-1]
	t.session.Order.Item = &item
	t.reply(dishSelectedText(item, e.currency))
	t.moveTo(models.StepAwaitQuantity)
}

func (e *ConversationEngine) handleQuantity(t *turn) {
	n, err := strconv.Atoi(t.text)
	if err != nil || n < 1 || n > maxQuantity {
		t.reply(msgBadQuantity)
		return
	}
	t.session.Order.Quantity = n
	t.reply(msgAskAddress)
	t.moveTo(models.StepAwaitAddress)
}

func (e *ConversationEngine) handleAddress(t *turn) {
	if t.text == "" {
		t.reply(msgBadAddress)
		return
	}
	t.session.Order.Address = t.text
	t.reply(msgAskPhone)
	t.moveTo(models.StepAwaitPhone)
}

func (e *ConversationEngine) handlePhone(ctx context.Context, t *turn) {
	phone := e.phones.Normalize(t.text)
	if !e.phones.IsCanonical(phone) {
		t.reply(msgBadPhone)
		return
	}
	t.session.Order.Phone = phone

	result, err := e.finalizer.Finalize(ctx, t.session.Sender, t.session.Order)
	if err != nil {
		slog.Error("❌ Order finalization failed", "sender", t.session.Sender, "step", t.session.Step, "error", err)
		t.result.Err = err
		t.reply(msgOrderFailed)
		return
	}

	// The finalizer already sent the confirmation to the sender
	t.result.Finalization = result
	t.deleted = true
	t.moveTo(models.StepInit)
}

func (e *ConversationEngine) handleMainChoice(t *turn) {
	var p *partnerPipeline
	switch strings.ToLower(t.text) {
	case "1", models.PartnerKindVendor:
		p = partnerPipelines[models.PartnerKindVendor]
	case "2", models.PartnerKindRider:
		p = partnerPipelines[models.PartnerKindRider]
	default:
		t.restart()
		return
	}
	t.session.Partner = models.PartnerDraft{Kind: p.kind}
	t.reply(p.fields[0].prompt)
	t.moveTo(p.fields[0].step)
}

func (e *ConversationEngine) handlePartnerField(ctx context.Context, t *turn, p *partnerPipeline) {
	i := p.index(t.session.Step)
	field := p.fields[i]

	value := t.text
	if field.phone {
		value = e.phones.Normalize(value)
		if !e.phones.IsCanonical(value) {
			t.reply(msgBadPhone)
			return
		}
	} else if value == "" {
		t.reply(field.prompt)
		return
	}
	field.set(&t.session.Partner, value)

	if i+1 < len(p.fields) {
		next := p.fields[i+1]
		t.reply(next.prompt)
		t.moveTo(next.step)
		return
	}

	app, err := e.registerPartner(ctx, t.session.Sender, t.session.Partner)
	if err != nil {
		slog.Error("❌ Partner registration failed", "sender", t.session.Sender, "step", t.session.Step, "error", err)
		t.result.Err = err
		t.reply(msgPartnerFailed)
		return
	}
	t.result.Partner = app
	t.reply(partnerThanksText(app.Kind))
	t.deleted = true
	t.moveTo(models.StepInit)
}

func (e *ConversationEngine) registerPartner(ctx context.Context, sender string, draft models.PartnerDraft) (*models.PartnerApplication, error) {
	if e.store == nil {
		return nil, errors.New("no store configured")
	}
	app := &models.PartnerApplication{
		Kind:        draft.Kind,
		Name:        draft.Name,
		Business:    draft.Business,
		Location:    draft.Location,
		Phone:       draft.Phone,
		SenderPhone: sender,
		Status:      models.PartnerStatusPending,
	}
	if err := e.store.CreatePartnerApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to save partner application: %w", err)
	}
	slog.Info("🤝 Partner application received", "kind", app.Kind, "sender", sender, "id", app.ID)

	e.notifier.NotifyAdmins(ctx, partnerSummaryText(app))
	return app, nil
}

// partnerField is one step of a linear field-collection pipeline
type partnerField struct {
	step   models.Step
	prompt string
	phone  bool
	set    func(d *models.PartnerDraft, v string)
}

type partnerPipeline struct {
	kind   string
	fields []partnerField
}

func (p *partnerPipeline) index(step models.Step) int {
	for i, f := range p.fields {
		if f.step == step {
			return i
		}
	}
	return -1
}

type pipelineSet map[string]*partnerPipeline

func (s pipelineSet) lookup(step models.Step) (*partnerPipeline, bool) {
	for _, p := range s {
		if p.index(step) >= 0 {
			return p, true
		}
	}
	return nil, false
}

func setName(d *models.PartnerDraft, v string)     { d.Name = v }
func setBusiness(d *models.PartnerDraft, v string) { d.Business = v }
func setLocation(d *models.PartnerDraft, v string) { d.Location = v }
func setPhone(d *models.PartnerDraft, v string)    { d.Phone = v }

var partnerPipelines = pipelineSet{
	models.PartnerKindVendor: {
		kind: models.PartnerKindVendor,
		fields: []partnerField{
			{step: models.StepAwaitVendorName, prompt: "👤 What's your full name?", set: setName},
			{step: models.StepAwaitVendorBusiness, prompt: "🏪 What's the name of your restaurant or kitchen?", set: setBusiness},
			{step: models.StepAwaitVendorLocation, prompt: "📍 Where is it located (town and area)?", set: setLocation},
			{step: models.StepAwaitVendorPhone, prompt: "📞 What phone number can we reach you on?", phone: true, set: setPhone},
		},
	},
	models.PartnerKindRider: {
		kind: models.PartnerKindRider,
		fields: []partnerField{
			{step: models.StepAwaitRiderName, prompt: "👤 What's your full name?", set: setName},
			{step: models.StepAwaitRiderLocation, prompt: "📍 Which town and area do you ride in?", set: setLocation},
			{step: models.StepAwaitRiderPhone, prompt: "📞 What phone number can we reach you on?", phone: true, set: setPhone},
		},
	},
}
