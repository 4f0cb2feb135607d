package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"blurt-quest/internal/domain"
)

// TokenSource supplies the bearer credential for authorized calls. An empty
// token means the call goes out bare and the backend rejects it.
type TokenSource interface {
	Token() string
}

// Client talks to the quest backend REST API. It implements both the login
// contract used by the session gate and the data-fetch surface the game
// machine plays against.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
}

func NewClient(base string, tokens TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: timeout},
		tokens: tokens,
	}
}

type loginRequest struct {
	Username   string `json:"username"`
	PostingKey string `json:"posting_key"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Login exchanges a username and posting key for a session token.
func (c *Client) Login(ctx context.Context, username, postingKey string) (domain.Session, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Username: username, PostingKey: postingKey}, &resp, false)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Username: resp.Username, Token: resp.AccessToken}, nil
}

// FetchProfile returns the caller's progress.
func (c *Client) FetchProfile(ctx context.Context) (domain.UserProfile, error) {
	var profile domain.UserProfile
	if err := c.do(ctx, http.MethodGet, "/user/profile", nil, &profile, true); err != nil {
		return domain.UserProfile{}, err
	}
	return profile, nil
}

type leaderboardResponse struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

// FetchLeaderboard returns the ranked player list. No auth required.
func (c *Client) FetchLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	var resp leaderboardResponse
	if err := c.do(ctx, http.MethodGet, "/game/leaderboard", nil, &resp, false); err != nil {
		return nil, err
	}
	return resp.Leaderboard, nil
}

type levelResponse struct {
	Level          int               `json:"level"`
	Questions      []domain.Question `json:"questions"`
	TotalQuestions int               `json:"total_questions"`
}

// FetchLevel returns the question set for a level.
func (c *Client) FetchLevel(ctx context.Context, level int) ([]domain.Question, error) {
	var resp levelResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/game/level/%d", level), nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

type submitRequest struct {
	Answers   []int `json:"answers"`
	TimeTaken int   `json:"time_taken"`
}

// SubmitLevel sends the answer set and elapsed time for scoring.
func (c *Client) SubmitLevel(ctx context.Context, level int, answers []int, timeTaken int) (domain.LevelResult, error) {
	var result domain.LevelResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/game/level/%d/submit", level), submitRequest{Answers: answers, TimeTaken: timeTaken}, &result, true)
	if err != nil {
		return domain.LevelResult{}, err
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authorized bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return domain.ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Detail != "" {
			return fmt.Errorf("%s", apiErr.Detail)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
