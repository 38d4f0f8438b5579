package clio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"clio-sync/internal/domain"
)

const maxRetries = 3

// Client implements ports.PracticeClient against the Clio Manage API v4.
type Client struct {
	baseURL string
	oauth   *oauth2.Config
	source  oauth2.TokenSource
	http    *http.Client
	log     *slog.Logger
}

// NewClient builds a client for the given deployment. accessToken may be a
// pre-existing bearer token; when set, the login flow is bypassed. A nil
// token source means "no credential", never an empty-string sentinel.
func NewClient(baseURL, clientID, clientSecret, redirectURL, accessToken string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://app.clio.com"
	}
	c := &Client{
		baseURL: baseURL,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  baseURL + "/oauth/authorize",
				TokenURL: baseURL + "/oauth/token",
			},
		},
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
	if accessToken != "" {
		c.source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	}
	return c
}

// Authenticate verifies the held credential against the API. Without a
// credential it reports what is missing: client credentials absent means the
// OAuth2 flow cannot run at all (ErrNotSupported), otherwise the login flow
// has simply not been completed yet.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.source == nil {
		if c.oauth.ClientID == "" || c.oauth.ClientSecret == "" {
			return domain.ErrNotSupported
		}
		return &domain.AuthError{Reason: "no access token held; complete the login flow first"}
	}
	var out whoAmIPage
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/v4/users/who_am_i.json", nil, nil, &out); err != nil {
		return err
	}
	c.log.Info("authenticated", slog.String("user", out.Data.Name))
	return nil
}

// ListMatters fetches all matters visible to the credential, following
// meta.paging.next until the last page.
func (c *Client) ListMatters(ctx context.Context) ([]domain.Matter, error) {
	if c.source == nil {
		return nil, &domain.AuthError{Reason: "no access token held"}
	}
	q := url.Values{}
	q.Set("fields", "id,display_number,description,status")
	next := c.baseURL + "/api/v4/matters.json?" + q.Encode()

	out := []domain.Matter{}
	for next != "" {
		var page mattersPage
		if err := c.doJSON(ctx, http.MethodGet, next, nil, nil, &page); err != nil {
			return nil, err
		}
		for _, m := range page.Data {
			out = append(out, domain.Matter{
				ID:            m.ID.String(),
				DisplayNumber: m.DisplayNumber,
				Description:   m.Description,
				Status:        m.Status,
			})
		}
		next = page.Meta.Paging.Next
	}
	return out, nil
}

// CreateTimeEntry validates the entry and posts it as a TimeEntry activity.
// Each call carries a client-generated idempotency key that stays constant
// across retries, so a retried create cannot produce a duplicate entry.
func (c *Client) CreateTimeEntry(ctx context.Context, entry domain.TimeEntry) (domain.TimeEntry, error) {
	if err := entry.Validate(); err != nil {
		return domain.TimeEntry{}, err
	}
	if c.source == nil {
		return domain.TimeEntry{}, &domain.AuthError{Reason: "no access token held"}
	}

	var payload activityPayload
	payload.Data.Type = "TimeEntry"
	payload.Data.Date = entry.Start.Format("2006-01-02")
	payload.Data.Quantity = entry.DurationSec
	payload.Data.Note = entry.Description
	payload.Data.Matter.ID = entry.MatterID
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.TimeEntry{}, err
	}

	headers := map[string]string{"Idempotency-Key": uuid.NewString()}
	var created activityPage
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/v4/activities.json", body, headers, &created); err != nil {
		return domain.TimeEntry{}, err
	}
	entry.ID = created.Data.ID.String()
	c.log.Debug("created time entry",
		slog.String("id", entry.ID),
		slog.String("matter_id", entry.MatterID),
	)
	return entry, nil
}

// doJSON performs one API call with bearer auth and decodes the JSON
// response into out. Retryable remote failures are retried with exponential
// backoff; everything else surfaces immediately.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, body []byte, headers map[string]string, out any) error {
	attempt := func() error {
		tok, err := c.source.Token()
		if err != nil {
			return &domain.AuthError{Reason: "acquiring access token", Err: err}
		}
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return &domain.RemoteError{Retryable: true, Err: err}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return &domain.RemoteError{Err: fmt.Errorf("decoding response: %w", err)}
			}
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &domain.AuthError{Reason: fmt.Sprintf("api rejected credential (status %d): %s", resp.StatusCode, excerpt)}
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &domain.RemoteError{StatusCode: resp.StatusCode, Body: string(excerpt), Retryable: true}
		default:
			excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &domain.RemoteError{StatusCode: resp.StatusCode, Body: string(excerpt)}
		}
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	return backoff.Retry(func() error {
		err := attempt()
		if err == nil {
			return nil
		}
		var re *domain.RemoteError
		if errors.As(err, &re) && re.Retryable {
			return err
		}
		return backoff.Permanent(err)
	}, bo)
}

// Wire DTOs mirror the Clio v4 JSON envelope.

type rawMatter struct {
	ID            json.Number `json:"id"`
	DisplayNumber string      `json:"display_number"`
	Description   string      `json:"description"`
	Status        string      `json:"status"`
}

type mattersPage struct {
	Data []rawMatter `json:"data"`
	Meta struct {
		Paging struct {
			Next string `json:"next"`
		} `json:"paging"`
	} `json:"meta"`
}

type activityPayload struct {
	Data struct {
		Type     string  `json:"type"`
		Date     string  `json:"date"`
		Quantity float64 `json:"quantity"`
		Note     string  `json:"note,omitempty"`
		Matter   struct {
			ID string `json:"id"`
		} `json:"matter"`
	} `json:"data"`
}

type activityPage struct {
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

type whoAmIPage struct {
	Data struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	} `json:"data"`
}
