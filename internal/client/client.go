package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/saxenaaman628/krathong-voting/internal/models"
	redishandler "github.com/saxenaaman628/krathong-voting/internal/redisHandler"
)

var ErrUnauthenticated = errors.New("please sign in first")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server answered %d", e.Status)
	}
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

// Client talks to the krathong HTTP API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), token: token, http: httpClient}
}

func (c *Client) Login(ctx context.Context, uid, email, name string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"uid": uid, "email": email, "name": name}
	if err := c.do(ctx, http.MethodPost, "/login", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) Me(ctx context.Context) (models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodGet, "/api/me", nil, &envelope{Data: &user})
	return user, err
}

func (c *Client) ListEntries(ctx context.Context) ([]models.Krathong, error) {
	var entries []models.Krathong
	err := c.do(ctx, http.MethodGet, "/api/krathongs", nil, &envelope{Data: &entries})
	return entries, err
}

func (c *Client) Settings(ctx context.Context) (models.AppConfig, error) {
	var cfg models.AppConfig
	err := c.do(ctx, http.MethodGet, "/api/settings", nil, &envelope{Data: &cfg})
	return cfg, err
}

func (c *Client) MyVote(ctx context.Context) (models.VoteRecord, error) {
	var record models.VoteRecord
	err := c.do(ctx, http.MethodGet, "/api/me/vote", nil, &envelope{Data: &record})
	return record, err
}

// CastVote returns the ledger outcome. Rejections the server classifies
// (already voted, closed, own team, unknown entry) are outcomes, not errors.
func (c *Client) CastVote(ctx context.Context, entryID string) (redishandler.Outcome, error) {
	err := c.do(ctx, http.MethodPost, "/api/krathongs/"+url.PathEscape(entryID)+"/vote", nil, nil)
	return outcomeOf(err, redishandler.Voted)
}

func (c *Client) AdjustScore(ctx context.Context, entryID string, delta int64) (int64, error) {
	var out struct {
		Score int64 `json:"score"`
	}
	path := "/api/admin/krathongs/" + url.PathEscape(entryID) + "/score"
	err := c.do(ctx, http.MethodPost, path, map[string]int64{"delta": delta}, &envelope{Data: &out})
	return out.Score, err
}

func (c *Client) CancelVote(ctx context.Context, userID, entryID string) (redishandler.Outcome, error) {
	path := "/api/admin/votes/" + url.PathEscape(userID) + "/cancel"
	err := c.do(ctx, http.MethodPost, path, map[string]string{"krathongId": entryID}, nil)
	return outcomeOf(err, redishandler.Cancelled)
}

func (c *Client) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (models.AppConfig, error) {
	var cfg models.AppConfig
	err := c.do(ctx, http.MethodPut, "/api/admin/settings", patch, &envelope{Data: &cfg})
	return cfg, err
}

func (c *Client) Stats(ctx context.Context) (models.VotingStats, error) {
	var stats models.VotingStats
	err := c.do(ctx, http.MethodGet, "/api/admin/stats", nil, &envelope{Data: &stats})
	return stats, err
}

type envelope struct {
	Data interface{} `json:"data"`
}

func outcomeOf(err error, success redishandler.Outcome) (redishandler.Outcome, error) {
	if err == nil {
		return success, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if outcome, ok := redishandler.ParseOutcome(apiErr.Code); ok {
			return outcome, nil
		}
	}
	return 0, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Code, apiErr.Message = payload.Code, payload.Error
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ErrUnauthenticated, apiErr.Error())
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
