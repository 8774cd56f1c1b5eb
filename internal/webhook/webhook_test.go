package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendLead(t *testing.T) {
	var received LeadPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.SendLead(context.Background(), EventLeadCreated,
		"Ana Souza", "Acme Eventos", "ana@example.com", "+5511987654321", "materiais", "magiclink")
	if err != nil {
		t.Fatalf("SendLead() error = %v", err)
	}

	if received.Event != EventLeadCreated {
		t.Errorf("event = %q, want %q", received.Event, EventLeadCreated)
	}
	if received.EventID == "" {
		t.Error("event_id should be set")
	}
	if received.Phone != "+5511987654321" {
		t.Errorf("phone = %q", received.Phone)
	}
	if received.Timestamp == "" {
		t.Error("timestamp should be set")
	}
}

func TestSendQualifier(t *testing.T) {
	var received QualifierPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.SendQualifier(context.Background(), "Ana Souza", "ana@example.com", "+5511987654321",
		QualifierAnswers{Idea: "festa corporativa", DealType: "locacao", RentalDetails: "200 cadeiras"})
	if err != nil {
		t.Fatalf("SendQualifier() error = %v", err)
	}

	if received.Channel != "site_form" {
		t.Errorf("channel = %q, want site_form", received.Channel)
	}
	if received.Status != "WAITING_CONTACT" {
		t.Errorf("status = %q, want WAITING_CONTACT", received.Status)
	}
	if received.Answers.Idea != "festa corporativa" {
		t.Errorf("answers.idea = %q", received.Answers.Idea)
	}
}

func TestSendLeadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetries(5, time.Millisecond))
	err := client.SendLead(context.Background(), EventLeadUpdated, "Ana", "", "ana@example.com", "", "login", "google")
	if err != nil {
		t.Fatalf("SendLead() error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestSendLeadDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetries(5, time.Millisecond))
	err := client.SendLead(context.Background(), EventLeadCreated, "Ana", "", "ana@example.com", "", "login", "magiclink")
	if err == nil {
		t.Fatal("expected error for rejected payload")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestSendLeadGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetries(2, time.Millisecond))
	err := client.SendLead(context.Background(), EventLeadCreated, "Ana", "", "ana@example.com", "", "login", "magiclink")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestNotConfigured(t *testing.T) {
	client := NewClient("")
	if client.Configured() {
		t.Error("expected Configured() = false")
	}
	if err := client.SendLead(context.Background(), EventLeadCreated, "Ana", "", "a@b.c", "", "login", "magiclink"); err == nil {
		t.Error("expected error for unconfigured client")
	}
}
