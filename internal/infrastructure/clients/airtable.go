package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultAirtableBaseURL = "https://api.airtable.com/v0"

var (
	// ErrStore wraps every failed store call so callers can classify
	// persistence failures without inspecting HTTP details.
	ErrStore = errors.New("store error")

	ErrRecordNotFound = errors.New("record not found")
)

type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// AirtableClient talks to the Airtable REST API. Upserts merge on a named
// unique field, so repeated calls with the same key never duplicate rows.
type AirtableClient struct {
	httpClient *http.Client
	logger     zerolog.Logger

	baseURL string
	apiKey  string
	baseID  string
}

func NewAirtableClient(logger zerolog.Logger, apiKey, baseID string, timeout time.Duration) *AirtableClient {
	return &AirtableClient{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "airtable").Logger(),
		baseURL:    defaultAirtableBaseURL,
		apiKey:     apiKey,
		baseID:     baseID,
	}
}

// WithBaseURL points the client at a different API root. Used by tests.
func (c *AirtableClient) WithBaseURL(baseURL string) *AirtableClient {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Upsert inserts or merges one record keyed by mergeField. Airtable bases
// created before the performUpsert API reject it with 422; that case
// falls back to find-then-update.
func (c *AirtableClient) Upsert(ctx context.Context, table, mergeField string, fields map[string]any) (Record, error) {
	payload := map[string]any{
		"records":  []map[string]any{{"fields": fields}},
		"typecast": true,
	}
	if mergeField != "" {
		payload["performUpsert"] = map[string]any{
			"fieldsToMergeOn": []string{mergeField},
		}
	}

	var resp struct {
		Records []Record `json:"records"`
	}
	status, err := c.do(ctx, http.MethodPost, c.tableURL(table, ""), payload, &resp)
	if err != nil {
		if status == http.StatusUnprocessableEntity && mergeField != "" {
			return c.manualUpsert(ctx, table, mergeField, fields)
		}
		return Record{}, err
	}

	if len(resp.Records) == 0 {
		return Record{}, fmt.Errorf("%w: upsert into %s returned no records", ErrStore, table)
	}
	return resp.Records[0], nil
}

func (c *AirtableClient) manualUpsert(ctx context.Context, table, mergeField string, fields map[string]any) (Record, error) {
	existing, err := c.FindBy(ctx, table, mergeField, fields[mergeField])
	switch {
	case err == nil:
		return c.Update(ctx, table, existing.ID, fields)
	case errors.Is(err, ErrRecordNotFound):
		return c.Upsert(ctx, table, "", fields)
	default:
		return Record{}, err
	}
}

// FindBy returns the first record whose field equals value.
func (c *AirtableClient) FindBy(ctx context.Context, table, field string, value any) (Record, error) {
	params := url.Values{}
	params.Set("filterByFormula", formulaEquals(field, value))
	params.Set("maxRecords", "1")

	var resp struct {
		Records []Record `json:"records"`
	}
	if _, err := c.do(ctx, http.MethodGet, c.tableURL(table, "")+"?"+params.Encode(), nil, &resp); err != nil {
		return Record{}, err
	}

	if len(resp.Records) == 0 {
		return Record{}, fmt.Errorf("%w: %s where %s=%v", ErrRecordNotFound, table, field, value)
	}
	return resp.Records[0], nil
}

// List pages through every record of a table, fetching only the named
// fields. Airtable caps pages at 100 records; offsets chain the pages.
func (c *AirtableClient) List(ctx context.Context, table string, fields ...string) ([]Record, error) {
	var all []Record
	offset := ""

	for {
		params := url.Values{}
		params.Set("pageSize", "100")
		for _, f := range fields {
			params.Add("fields[]", f)
		}
		if offset != "" {
			params.Set("offset", offset)
		}

		var resp struct {
			Records []Record `json:"records"`
			Offset  string   `json:"offset"`
		}
		if _, err := c.do(ctx, http.MethodGet, c.tableURL(table, "")+"?"+params.Encode(), nil, &resp); err != nil {
			return nil, err
		}

		all = append(all, resp.Records...)
		if resp.Offset == "" {
			return all, nil
		}
		offset = resp.Offset
	}
}

// Update patches an existing record by its Airtable record id.
func (c *AirtableClient) Update(ctx context.Context, table, recordID string, fields map[string]any) (Record, error) {
	payload := map[string]any{
		"fields":   fields,
		"typecast": true,
	}

	var rec Record
	if _, err := c.do(ctx, http.MethodPatch, c.tableURL(table, recordID), payload, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (c *AirtableClient) tableURL(table, recordID string) string {
	u := c.baseURL + "/" + c.baseID + "/" + url.PathEscape(table)
	if recordID != "" {
		u += "/" + recordID
	}
	return u
}

func (c *AirtableClient) do(ctx context.Context, method, rawURL string, payload, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("%w: encoding request: %v", ErrStore, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStore, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, fmt.Errorf("%w: %s %s: unexpected status %d: %s",
			ErrStore, method, rawURL, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: decoding response: %v", ErrStore, err)
		}
	}

	return resp.StatusCode, nil
}

// formulaEquals builds a filterByFormula equality check. Single quotes in
// values are escaped so customer input cannot break the formula.
func formulaEquals(field string, value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return fmt.Sprintf("{%s}=TRUE()", field)
		}
		return fmt.Sprintf("{%s}=FALSE()", field)
	case int:
		return fmt.Sprintf("{%s}=%d", field, v)
	case int64:
		return fmt.Sprintf("{%s}=%d", field, v)
	case float64:
		return fmt.Sprintf("{%s}=%s", field, strconv.FormatFloat(v, 'f', -1, 64))
	default:
		escaped := strings.ReplaceAll(fmt.Sprintf("%v", value), "'", `\'`)
		return fmt.Sprintf("{%s}='%s'", field, escaped)
	}
}
