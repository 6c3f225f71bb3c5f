// Package webhook calls the external diagnosis workflow endpoint. The
// application only proxies intake data out and diagnostic suggestions back;
// any non-2xx status or non-JSON body is surfaced to the caller as a typed
// error, with no retries.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no webhook URL is set.
var ErrNotConfigured = errors.New("diagnosis webhook is not configured")

// StatusError reports a non-2xx response from the webhook.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("diagnosis webhook returned status %d", e.Code)
}

// IntakeRequest is the payload describing a patient complaint.
type IntakeRequest struct {
	PatientID        string   `json:"patient_id,omitempty"`
	PatientName      string   `json:"patient_name,omitempty"`
	Age              *int     `json:"age,omitempty"`
	Gender           string   `json:"gender,omitempty"`
	Complaint        string   `json:"complaint"`
	Symptoms         []string `json:"symptoms,omitempty"`
	MedicalHistory   string   `json:"medical_history,omitempty"`
	Allergies        []string `json:"allergies,omitempty"`
	Medications      []string `json:"medications,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	BloodPressure    string   `json:"blood_pressure,omitempty"`
	HeartRate        *int     `json:"heart_rate,omitempty"`
	RespiratoryRate  *int     `json:"respiratory_rate,omitempty"`
	OxygenSaturation *int     `json:"oxygen_saturation,omitempty"`
}

// DrugSuggestion is one AI-proposed medication.
type DrugSuggestion struct {
	DrugName     string `json:"drug_name"`
	Dosage       string `json:"dosage,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Priority     int    `json:"priority,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Result is the diagnosis returned by the workflow.
type Result struct {
	PrimaryDiagnosis       string           `json:"primary_diagnosis"`
	DifferentialDiagnoses  []string         `json:"differential_diagnoses"`
	RecommendedActions     []string         `json:"recommended_actions"`
	Treatment              string           `json:"treatment"`
	DrugSuggestions        []DrugSuggestion `json:"drug_suggestions"`
	SeverityLevel          string           `json:"severity_level"`
	ConfidenceScore        *float64         `json:"confidence_score"`
	AdditionalNotes        string           `json:"additional_notes,omitempty"`
	FollowUpRecommendation string           `json:"follow_up_recommendation,omitempty"`
}

// Client posts intake payloads to the configured workflow endpoint.
type Client struct {
	url    string
	secret string
	http   *http.Client
}

func NewClient(url, secret string) *Client {
	return &Client{
		url:    url,
		secret: secret,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SignPayload computes an HMAC-SHA256 signature of the payload using the
// given secret, hex encoded.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature returns true when the hex-encoded signature matches the
// HMAC-SHA256 of the payload.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Diagnose sends the intake payload and decodes the diagnosis result.
func (c *Client) Diagnose(ctx context.Context, intake *IntakeRequest) (*Result, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(intake)
	if err != nil {
		return nil, fmt.Errorf("marshal intake payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-Webhook-Signature", "sha256="+SignPayload(payload, c.secret))
	}
	req.Header.Set("X-Webhook-Timestamp", time.Now().UTC().Format(time.RFC3339))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call diagnosis webhook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode webhook response: %w", err)
	}
	return &result, nil
}
