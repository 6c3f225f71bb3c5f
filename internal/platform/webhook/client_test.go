package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDiagnose_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type")
		}
		if r.Header.Get("X-Webhook-Signature") == "" {
			t.Error("expected signature header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"primary_diagnosis": "Acute bronchitis",
			"differential_diagnoses": ["Pneumonia", "Asthma exacerbation"],
			"recommended_actions": ["Chest X-ray"],
			"treatment": "Rest and fluids",
			"drug_suggestions": [{"drug_name": "Amoxicillin", "dosage": "500mg", "duration": "7 days", "priority": 1}],
			"severity_level": "moderate",
			"confidence_score": 0.82
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "shared-secret")
	result, err := c.Diagnose(context.Background(), &IntakeRequest{Complaint: "persistent cough"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PrimaryDiagnosis != "Acute bronchitis" {
		t.Errorf("unexpected primary diagnosis: %s", result.PrimaryDiagnosis)
	}
	if len(result.DifferentialDiagnoses) != 2 {
		t.Errorf("expected 2 differentials, got %d", len(result.DifferentialDiagnoses))
	}
	if len(result.DrugSuggestions) != 1 || result.DrugSuggestions[0].DrugName != "Amoxicillin" {
		t.Errorf("unexpected drug suggestions: %+v", result.DrugSuggestions)
	}
	if result.ConfidenceScore == nil || *result.ConfidenceScore != 0.82 {
		t.Errorf("unexpected confidence score: %v", result.ConfidenceScore)
	}
}

func TestDiagnose_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Diagnose(context.Background(), &IntakeRequest{Complaint: "headache"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", statusErr.Code)
	}
}

func TestDiagnose_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.Diagnose(context.Background(), &IntakeRequest{Complaint: "headache"}); err == nil {
		t.Error("expected error for non-JSON body")
	}
}

func TestDiagnose_Unconfigured(t *testing.T) {
	c := NewClient("", "")
	if _, err := c.Diagnose(context.Background(), &IntakeRequest{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSignPayload_RoundTrip(t *testing.T) {
	payload := []byte(`{"complaint":"fever"}`)
	sig := SignPayload(payload, "secret")
	if !VerifySignature(payload, "secret", sig) {
		t.Error("expected signature to verify")
	}
	if VerifySignature(payload, "other", sig) {
		t.Error("expected mismatch with wrong secret")
	}
}
