package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nimas-seat-alert/internal/models"
)

const (
	// sampleSize bounds the identifiers listed in a not-found error
	sampleSize = 8

	maxResponseBytes = 16 << 20
)

// APIOptions configures the JSON availability endpoint
type APIOptions struct {
	URL     string
	Timeout time.Duration
	Payload PayloadOptions
	// EnvelopeFallback retries with the enveloped payload when the
	// minimal one yields no records
	EnvelopeFallback bool
}

// APIClient looks up availability through the JSON endpoint
type APIClient struct {
	client *http.Client
	opts   APIOptions
}

// NewAPIClient creates a new APIClient. A nil client gets a default one.
func NewAPIClient(opts APIOptions, client *http.Client) *APIClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Payload == (PayloadOptions{}) {
		opts.Payload = DefaultPayloadOptions()
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &APIClient{client: client, opts: opts}
}

// Lookup returns the "Available Seats" of the row whose "Serial No" equals
// identifier exactly.
func (s *APIClient) Lookup(ctx context.Context, identifier string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	bodies := []any{s.opts.Payload.minimal()}
	if s.opts.EnvelopeFallback {
		bodies = append(bodies, s.opts.Payload.enveloped())
	}

	var records models.RecordSet
	attempts := 0
	for _, body := range bodies {
		attempts++
		resp, err := s.post(ctx, body)
		if err != nil {
			return 0, err
		}
		records = ExtractRecords(resp)
		if len(records) > 0 {
			break
		}
	}
	if len(records) == 0 {
		return 0, &models.NoDataError{URL: s.opts.URL, Attempts: attempts}
	}

	return MatchRecord(records, identifier)
}

// MatchRecord finds the first record whose serial equals identifier
// (case-sensitive, untrimmed) and parses its seat count.
func MatchRecord(records models.RecordSet, identifier string) (int, error) {
	for _, rec := range records {
		serialVal, ok := rec.ValueOf(FieldSerialNo)
		if !ok {
			continue
		}
		serial, ok := serialVal.Str()
		if !ok || serial != identifier {
			continue
		}

		seats, ok := rec.ValueOf(FieldAvailableSeats)
		raw := "<absent>"
		if ok {
			raw = seats.Text()
		}
		n, err := ParseCount(raw)
		if err != nil {
			return 0, &models.ParseError{Identifier: identifier, Raw: raw, Err: err}
		}
		return n, nil
	}

	return 0, &models.NotFoundError{
		Identifier: identifier,
		Sample:     records.Sample(FieldSerialNo, sampleSize),
	}
}

func (s *APIClient) post(ctx context.Context, body any) (models.Value, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return models.Value{}, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.URL, bytes.NewReader(data))
	if err != nil {
		return models.Value{}, &models.TransportError{Op: "POST", URL: s.opts.URL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Value{}, &models.TransportError{Op: "POST", URL: s.opts.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return models.Value{}, &models.TransportError{Op: "POST", URL: s.opts.URL, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.Value{}, &models.TransportError{Op: "POST", URL: s.opts.URL, Err: fmt.Errorf("read response: %w", err)}
	}
	v, err := models.ParseValue(raw)
	if err != nil {
		return models.Value{}, &models.TransportError{Op: "POST", URL: s.opts.URL, Err: err}
	}
	return v, nil
}
