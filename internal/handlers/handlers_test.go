package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/choptime-backend/internal/models"
	"github.com/Ananth-NQI/choptime-backend/internal/services"
	"github.com/Ananth-NQI/choptime-backend/internal/storage"
)

const (
	adminPhone    = "237690000000"
	riderPhone    = "237680000000"
	customerPhone = "237670000001"
)

type fixture struct {
	app       *fiber.App
	store     *storage.MemoryStore
	messenger *services.CaptureMessenger
	sessions  *services.MemorySessionStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:     storage.NewMemoryStore(),
		messenger: services.NewCaptureMessenger(),
		sessions:  services.NewMemorySessionStore(),
	}
	phones := services.NewPhoneNormalizer("237", "6")
	routing := services.NewDeliveryRouting(phones, []string{riderPhone}, nil)
	notifier := services.NewNotifier(f.messenger, []string{adminPhone}, routing)
	finalizer := services.NewOrderFinalizer(f.store, services.NewReferenceGenerator("CHP", f.store), notifier, "FCFA")
	catalog := services.NewCatalog(services.StaticMenuSource{
		{Name: "Ndole", Price: 2500, Available: true},
	})
	engine := services.NewConversationEngine(services.EngineConfig{
		Sessions:  f.sessions,
		Catalog:   catalog,
		Phones:    phones,
		Finalizer: finalizer,
		Store:     f.store,
		Notifier:  notifier,
		Greetings: []string{"hi"},
		Currency:  "FCFA",
	})
	commands := services.NewCommandRouter([]string{adminPhone}, f.store, notifier, services.PolicyStrict)
	service := services.NewWhatsAppService(phones, commands, services.NewStorefrontRelay(notifier), engine)

	wa := NewWhatsAppHandler(service, "verify-me")
	orders := NewOrderHandler(finalizer, phones)
	admin := NewAdminHandler(f.store, commands, catalog, f.sessions)
	analytics := NewAnalyticsHandler(f.store)
	health := NewHealthHandler("test", f.store)

	app := fiber.New()
	app.Get("/health", health.Check)
	app.Get("/webhook", wa.VerifyWebhook)
	app.Post("/webhook", wa.HandleCloudWebhook)
	app.Post("/webhook/whatsapp", wa.HandleTwilioWebhook)
	app.Post("/ultramsg-webhook", wa.HandleUltraMsgWebhook)
	app.Post("/test/whatsapp", wa.HandleTestWebhook)
	app.Post("/api/place-order", orders.PlaceOrder)
	app.Get("/admin/orders", admin.ListOrders)
	app.Get("/admin/orders/:reference", admin.GetOrder)
	app.Post("/admin/orders/:reference/status", admin.UpdateOrderStatus)
	app.Get("/admin/partners", admin.ListPartners)
	app.Get("/admin/menu", admin.GetMenu)
	app.Post("/admin/menu", admin.CreateMenuItem)
	app.Get("/admin/sessions", admin.GetSessionStats)
	app.Get("/admin/stats", analytics.GetOrderStats)
	app.Get("/admin/stats/weekly", analytics.GetWeeklySummary)
	f.app = app
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) (int, string) {
	t.Helper()
	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (f *fixture) seedOrder(t *testing.T, ref string) {
	t.Helper()
	order := &models.Order{
		Reference: ref,
		UserPhone: customerPhone,
		Items:     []models.OrderItem{{Name: "Ndole", Quantity: 1, UnitPrice: 2500}},
	}
	order.ComputeTotal()
	if err := f.store.CreateOrder(context.Background(), order); err != nil {
		t.Fatal(err)
	}
}

func TestVerifyWebhook(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil))
	if code != http.StatusOK || body != "12345" {
		t.Errorf("handshake = %d %q", code, body)
	}

	code, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=1", nil))
	if code != http.StatusForbidden {
		t.Errorf("wrong token = %d, want 403", code)
	}
}

func TestCloudWebhookStartsConversation(t *testing.T) {
	f := newFixture(t)

	payload := `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{
		"messaging_product":"whatsapp",
		"messages":[
			{"id":"a","from":"237670000001","type":"text","text":{"body":"hi"}},
			{"id":"b","from":"237670000002","type":"image"}
		]}}]}]}`
	code, _ := f.do(t, jsonRequest(http.MethodPost, "/webhook", payload))
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	replies := f.messenger.SentTo(customerPhone)
	if len(replies) != 1 || !strings.Contains(replies[0].Body, "Ndole") {
		t.Errorf("replies = %+v", replies)
	}
	if len(f.messenger.SentTo("237670000002")) != 0 {
		t.Error("non-text message got a reply")
	}
	if f.sessions.Count() != 1 {
		t.Errorf("sessions = %d", f.sessions.Count())
	}
}

func TestCloudWebhookInvalidBody(t *testing.T) {
	f := newFixture(t)
	code, _ := f.do(t, jsonRequest(http.MethodPost, "/webhook", "{not json"))
	if code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func TestTwilioWebhookCommand(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "CHP-12345")

	code, _ := f.do(t, formRequest("/webhook/whatsapp", url.Values{
		"From": {"whatsapp:+" + adminPhone},
		"Body": {"CONFIRM CHP-12345"},
	}))
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	order, _ := f.store.GetOrder(context.Background(), "CHP-12345")
	if order.Status != models.OrderStatusConfirmed {
		t.Errorf("status = %q", order.Status)
	}
	if len(f.messenger.SentTo(customerPhone)) != 1 {
		t.Errorf("customer notifications = %d", len(f.messenger.SentTo(customerPhone)))
	}
}

func TestTwilioWebhookStatusCallbackIgnored(t *testing.T) {
	f := newFixture(t)
	code, _ := f.do(t, formRequest("/webhook/whatsapp", url.Values{"MessageSid": {"SM1"}, "MessageStatus": {"delivered"}}))
	if code != http.StatusOK || len(f.messenger.Sent()) != 0 {
		t.Errorf("status = %d sent = %d", code, len(f.messenger.Sent()))
	}
}

func TestUltraMsgWebhookFormats(t *testing.T) {
	f := newFixture(t)

	wrapped := `{"event_type":"message_received","data":{"from":"237670000001@c.us","body":"hi","type":"chat"}}`
	if code, _ := f.do(t, jsonRequest(http.MethodPost, "/ultramsg-webhook", wrapped)); code != http.StatusOK {
		t.Fatalf("wrapped status = %d", code)
	}
	flat := `{"from":"237670000003@c.us","body":"hi","type":"chat"}`
	if code, _ := f.do(t, jsonRequest(http.MethodPost, "/ultramsg-webhook", flat)); code != http.StatusOK {
		t.Fatalf("flat status = %d", code)
	}
	echo := `{"data":{"from":"237670000004@c.us","body":"hi","fromMe":true}}`
	f.do(t, jsonRequest(http.MethodPost, "/ultramsg-webhook", echo))

	if len(f.messenger.SentTo(customerPhone)) != 1 || len(f.messenger.SentTo("237670000003")) != 1 {
		t.Errorf("sent = %+v", f.messenger.Sent())
	}
	if len(f.messenger.SentTo("237670000004")) != 0 {
		t.Error("own echo was processed")
	}
}

func TestTestWebhookReturnsResult(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, jsonRequest(http.MethodPost, "/test/whatsapp", `{"from":"237670000001","message":"hi"}`))
	if code != http.StatusOK {
		t.Fatalf("status = %d body = %s", code, body)
	}
	var resp struct {
		Success bool                   `json:"success"`
		Result  services.InboundResult `json:"result"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Result.Route != services.RouteConversation || resp.Result.Sender != customerPhone {
		t.Errorf("resp = %+v", resp)
	}

	code, _ = f.do(t, jsonRequest(http.MethodPost, "/test/whatsapp", `{"message":"hi"}`))
	if code != http.StatusBadRequest {
		t.Errorf("missing sender = %d", code)
	}
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, jsonRequest(http.MethodPost, "/api/place-order",
		`{"message":"2x Ndole for Molyko","town":"","userPhone":"670000001"}`))
	if code != http.StatusOK {
		t.Fatalf("status = %d body = %s", code, body)
	}
	if len(f.messenger.SentTo(adminPhone)) != 1 || len(f.messenger.SentTo(riderPhone)) != 1 {
		t.Errorf("fan-out = %+v", f.messenger.Sent())
	}
	if len(f.messenger.SentTo(customerPhone)) != 1 {
		t.Error("customer confirmation missing")
	}
	if orders, _ := f.store.GetOrdersByStatus(context.Background(), ""); len(orders) != 0 {
		t.Errorf("direct order was persisted: %d", len(orders))
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	if code, _ := f.do(t, jsonRequest(http.MethodPost, "/api/place-order", `{"message":"  "}`)); code != http.StatusBadRequest {
		t.Errorf("empty message = %d", code)
	}
	if code, _ := f.do(t, jsonRequest(http.MethodPost, "/api/place-order", `[`)); code != http.StatusBadRequest {
		t.Errorf("bad json = %d", code)
	}
}

func TestPlaceOrderAllDeliveriesFailed(t *testing.T) {
	f := newFixture(t)
	f.messenger.FailFor(adminPhone)
	f.messenger.FailFor(riderPhone)

	code, body := f.do(t, jsonRequest(http.MethodPost, "/api/place-order", `{"message":"1x Ndole"}`))
	if code != http.StatusInternalServerError || !strings.Contains(body, "Failed to send WhatsApp messages") {
		t.Errorf("status = %d body = %s", code, body)
	}
}

func TestAdminOrders(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "CHP-00001")
	f.seedOrder(t, "CHP-00002")

	code, body := f.do(t, httptest.NewRequest(http.MethodGet, "/admin/orders?status=pending", nil))
	if code != http.StatusOK || !strings.Contains(body, `"count":2`) {
		t.Errorf("list = %d %s", code, body)
	}
	if code, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/admin/orders?status=lost", nil)); code != http.StatusBadRequest {
		t.Errorf("bad status filter = %d", code)
	}

	if code, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/admin/orders/chp-00001", nil)); code != http.StatusOK {
		t.Errorf("get = %d", code)
	}
	if code, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/admin/orders/CHP-99999", nil)); code != http.StatusNotFound {
		t.Errorf("missing = %d", code)
	}
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "CHP-00001")

	tests := []struct {
		name string
		ref  string
		body string
		want int
	}{
		{"invalid status", "CHP-00001", `{"status":"eaten"}`, http.StatusBadRequest},
		{"not found", "CHP-00404", `{"status":"confirmed"}`, http.StatusNotFound},
		{"pending to delivered rejected", "CHP-00001", `{"status":"delivered"}`, http.StatusConflict},
		{"confirm", "CHP-00001", `{"status":"confirmed"}`, http.StatusOK},
		{"deliver", "CHP-00001", `{"status":"Delivered"}`, http.StatusOK},
		{"delivered is final", "CHP-00001", `{"status":"cancelled"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := f.do(t, jsonRequest(http.MethodPost, "/admin/orders/"+tt.ref+"/status", tt.body))
			if code != tt.want {
				t.Errorf("status = %d, want %d (%s)", code, tt.want, body)
			}
		})
	}

	order, _ := f.store.GetOrder(context.Background(), "CHP-00001")
	if order.Status != models.OrderStatusDelivered {
		t.Errorf("final status = %q", order.Status)
	}
}

func TestAdminMenu(t *testing.T) {
	f := newFixture(t)

	code, _ := f.do(t, jsonRequest(http.MethodPost, "/admin/menu", `{"name":"Koki","price":0}`))
	if code != http.StatusBadRequest {
		t.Errorf("zero price = %d", code)
	}
	code, body := f.do(t, jsonRequest(http.MethodPost, "/admin/menu", `{"name":"Koki","price":800,"available":true}`))
	if code != http.StatusCreated {
		t.Errorf("create = %d %s", code, body)
	}
	items, _ := f.store.GetAvailableMenuItems(context.Background())
	if len(items) != 1 || items[0].Name != "Koki" {
		t.Errorf("stored items = %+v", items)
	}

	code, body = f.do(t, httptest.NewRequest(http.MethodGet, "/admin/menu", nil))
	if code != http.StatusOK || !strings.Contains(body, "Ndole") {
		t.Errorf("menu = %d %s", code, body)
	}
}

func TestAdminPartnersAndSessions(t *testing.T) {
	f := newFixture(t)
	_ = f.store.CreatePartnerApplication(context.Background(), &models.PartnerApplication{Kind: models.PartnerKindRider, Name: "Paul"})
	_ = f.store.CreatePartnerApplication(context.Background(), &models.PartnerApplication{Kind: models.PartnerKindVendor, Name: "Ngozi"})

	code, body := f.do(t, httptest.NewRequest(http.MethodGet, "/admin/partners?kind=rider", nil))
	if code != http.StatusOK || !strings.Contains(body, `"count":1`) || !strings.Contains(body, "Paul") {
		t.Errorf("partners = %d %s", code, body)
	}

	f.do(t, jsonRequest(http.MethodPost, "/test/whatsapp", `{"from":"237670000001","message":"hi"}`))
	code, body = f.do(t, httptest.NewRequest(http.MethodGet, "/admin/sessions", nil))
	if code != http.StatusOK || !strings.Contains(body, `"active":1`) {
		t.Errorf("sessions = %d %s", code, body)
	}
}

func TestOrderStats(t *testing.T) {
	f := newFixture(t)
	f.seedOrder(t, "CHP-00001")
	f.seedOrder(t, "CHP-00002")
	_ = f.store.UpdateOrderStatus(context.Background(), "CHP-00002", models.OrderStatusDelivered)

	code, body := f.do(t, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var stats models.OrderStats
	if err := json.Unmarshal([]byte(body), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalOrders != 2 || stats.Revenue != 2500 || stats.PendingValue != 2500 || stats.ByTown["unrouted"] != 2 {
		t.Errorf("stats = %+v", stats)
	}

	code, body = f.do(t, httptest.NewRequest(http.MethodGet, "/admin/stats/weekly", nil))
	if code != http.StatusOK || !strings.Contains(body, `"since"`) {
		t.Errorf("weekly = %d %s", code, body)
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if code != http.StatusOK || !strings.Contains(body, `"status":"OK"`) {
		t.Errorf("health = %d %s", code, body)
	}
}
