// Package crm reads contacts, deals, notes, mail and pipeline stages from the
// Pipedrive v1 REST API.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"callcard-relay/internal/apperror"
	"callcard-relay/internal/model"
)

const (
	service = "pipedrive"

	// Pipedrive returns UTC timestamps without a zone designator.
	timeLayout = "2006-01-02 15:04:05"

	// maxErrorBody bounds how much of an error response is kept for logs.
	maxErrorBody = 512
)

// Client issues authenticated read requests against Pipedrive.
type Client struct {
	apiToken string
	baseURL  string
	appURL   string
	client   *http.Client
}

// NewClient creates a Pipedrive client. baseURL is the API root
// (https://api.pipedrive.com/v1), appURL the web app root used for links.
func NewClient(apiToken, baseURL, appURL string, timeout time.Duration) *Client {
	return &Client{
		apiToken: apiToken,
		baseURL:  baseURL,
		appURL:   appURL,
		client:   &http.Client{Timeout: timeout},
	}
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

type searchResult struct {
	Items []struct {
		Item struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"item"`
	} `json:"items"`
}

type dealItem struct {
	ID      int `json:"id"`
	StageID int `json:"stage_id"`
}

type noteItem struct {
	Content string `json:"content"`
	AddTime string `json:"add_time"`
}

type mailItem struct {
	Data struct {
		Subject      string `json:"subject"`
		MessageTime  string `json:"message_time"`
		MailThreadID int    `json:"mail_thread_id"`
	} `json:"data"`
}

type stageItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// FindPersonByPhone returns the first person whose phone exactly matches
// phone, or nil when nobody matches.
func (c *Client) FindPersonByPhone(ctx context.Context, phone string) (*model.Person, error) {
	q := url.Values{}
	q.Set("term", phone)
	q.Set("fields", "phone")
	q.Set("exact_match", "true")
	q.Set("limit", "1")

	var res envelope[searchResult]
	if err := c.get(ctx, "/persons/search", q, &res); err != nil {
		return nil, err
	}
	if len(res.Data.Items) == 0 {
		return nil, nil
	}

	item := res.Data.Items[0].Item
	return &model.Person{
		ID:         item.ID,
		Name:       item.Name,
		ProfileURL: fmt.Sprintf("%s/person/%d", c.appURL, item.ID),
	}, nil
}

// OpenDeal returns the person's open deal, or nil when there is none.
func (c *Client) OpenDeal(ctx context.Context, personID int) (*model.Deal, error) {
	q := url.Values{}
	q.Set("status", "open")
	q.Set("limit", "1")

	var res envelope[[]dealItem]
	if err := c.get(ctx, fmt.Sprintf("/persons/%d/deals", personID), q, &res); err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, nil
	}

	d := res.Data[0]
	return &model.Deal{
		ID:      d.ID,
		StageID: d.StageID,
		URL:     fmt.Sprintf("%s/deal/%d", c.appURL, d.ID),
	}, nil
}

// LatestNote returns the newest note on the person, or nil when there is none.
func (c *Client) LatestNote(ctx context.Context, personID int) (*model.Note, error) {
	q := url.Values{}
	q.Set("person_id", strconv.Itoa(personID))
	q.Set("limit", "1")
	q.Set("sort", "add_time DESC")

	var res envelope[[]noteItem]
	if err := c.get(ctx, "/notes", q, &res); err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, nil
	}

	n := res.Data[0]
	return &model.Note{
		Content:   n.Content,
		CreatedAt: parseTime(n.AddTime),
	}, nil
}

// RecentEmails returns up to limit mail summaries linked to the person.
// Message bodies are not requested.
func (c *Client) RecentEmails(ctx context.Context, personID, limit int) ([]model.EmailSummary, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("include_body", "0")

	var res envelope[[]mailItem]
	if err := c.get(ctx, fmt.Sprintf("/persons/%d/mailMessages", personID), q, &res); err != nil {
		return nil, err
	}

	emails := make([]model.EmailSummary, 0, len(res.Data))
	for _, m := range res.Data {
		if len(emails) == limit {
			break
		}
		e := model.EmailSummary{
			Subject:   m.Data.Subject,
			Timestamp: parseTime(m.Data.MessageTime),
		}
		if m.Data.MailThreadID != 0 {
			e.ViewURL = fmt.Sprintf("%s/mail/thread/%d", c.appURL, m.Data.MailThreadID)
		}
		emails = append(emails, e)
	}
	return emails, nil
}

// ListStages returns every pipeline stage visible to the token.
func (c *Client) ListStages(ctx context.Context) ([]model.Stage, error) {
	var res envelope[[]stageItem]
	if err := c.get(ctx, "/stages", nil, &res); err != nil {
		return nil, err
	}

	stages := make([]model.Stage, 0, len(res.Data))
	for _, s := range res.Data {
		stages = append(stages, model.Stage{ID: s.ID, Name: s.Name})
	}
	return stages, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_token", c.apiToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s GET %s: %w", service, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &apperror.APIError{
			Service:    service,
			Method:     http.MethodGet,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
