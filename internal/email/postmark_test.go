package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mtmsolution/site/internal/model"
)

// rewriteTransport redirects all requests to a test server URL.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return t.base.RoundTrip(req)
}

func testClient(serverURL string) *Client {
	c := NewClient("test-token", "noreply@mtmsolution.com.br", "comercial@mtmsolution.com.br")
	c.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: serverURL}}
	return c
}

func TestSendLeadNotificationCreated(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	ld := &model.Lead{
		Name:      "Ana Souza",
		Company:   "Acme Eventos",
		Email:     "ana@example.com",
		PhoneE164: "+5511987654321",
		Source:    "materiais",
	}
	if err := testClient(server.URL).SendLeadNotification(ld, true); err != nil {
		t.Fatalf("send lead notification: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "comercial@mtmsolution.com.br" {
		t.Errorf("To = %q", received.To)
	}
	if received.Subject != "Novo lead: Ana Souza" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.TextBody, "+5511987654321") {
		t.Errorf("TextBody missing phone: %q", received.TextBody)
	}
}

func TestSendLeadNotificationUpdated(t *testing.T) {
	var received postmarkEmail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	ld := &model.Lead{Name: "Ana Souza"}
	if err := testClient(server.URL).SendLeadNotification(ld, false); err != nil {
		t.Fatalf("send lead notification: %v", err)
	}

	if received.Subject != "Lead atualizado: Ana Souza" {
		t.Errorf("Subject = %q", received.Subject)
	}
}

func TestSendLockoutNotification(t *testing.T) {
	var received postmarkEmail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	if err := testClient(server.URL).SendLockoutNotification("carla", "203.0.113.5"); err != nil {
		t.Fatalf("send lockout notification: %v", err)
	}

	if received.Subject != "Conta admin bloqueada: carla" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.TextBody, "203.0.113.5") {
		t.Errorf("TextBody missing IP: %q", received.TextBody)
	}
}

func TestSendNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@mtmsolution.com.br", "comercial@mtmsolution.com.br")

	if err := client.SendLeadNotification(&model.Lead{Name: "Ana"}, true); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	if err := testClient(server.URL).SendLockoutNotification("carla", "1.2.3.4"); err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient("token", "from@test.com", "notify@test.com").Configured() {
		t.Error("expected Configured() = true")
	}
	if NewClient("", "from@test.com", "notify@test.com").Configured() {
		t.Error("expected Configured() = false without token")
	}
	if NewClient("token", "from@test.com", "").Configured() {
		t.Error("expected Configured() = false without notify address")
	}
}
