// Package captcha talks to the anti-captcha.com solving service: it
// submits a NoCaptcha job for the claim page and polls until a token is
// ready or the configured timeout elapses.
package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/packtgrab/packtgrab/pkg/logger"
)

// DefaultEndpoint is the solver API root.
const DefaultEndpoint = "https://api.anti-captcha.com"

const taskTypeNoCaptcha = "NoCaptchaTaskProxyless"

// ErrSolverTimeout is returned by Solve when the job is still unfinished
// after PollPolicy.Timeout.
var ErrSolverTimeout = errors.New("captcha solver timed out")

// APIError is an error reported by the solver itself (errorId != 0).
type APIError struct {
	ID          int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("anti-captcha error %d %s: %s", e.ID, e.Code, e.Description)
	}
	return fmt.Sprintf("anti-captcha error %d %s", e.ID, e.Code)
}

// Task describes the reCAPTCHA to solve.
type Task struct {
	WebsiteURL string
	WebsiteKey string
}

type Client struct {
	endpoint string
	key      string
	http     *http.Client
	policy   PollPolicy
	log      logger.Logger
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = strings.TrimRight(endpoint, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithPollPolicy(p PollPolicy) Option {
	return func(c *Client) { c.policy = p }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a solver client authenticated with clientKey.
func NewClient(clientKey string, opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		key:      clientKey,
		http:     &http.Client{Timeout: 30 * time.Second},
		policy:   DefaultPollPolicy(),
		log:      logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiStatus struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode,omitempty"`
	ErrorDescription string `json:"errorDescription,omitempty"`
}

func (s apiStatus) err() error {
	if s.ErrorID == 0 {
		return nil
	}
	return &APIError{ID: s.ErrorID, Code: s.ErrorCode, Description: s.ErrorDescription}
}

type createTaskRequest struct {
	ClientKey string  `json:"clientKey"`
	Task      apiTask `json:"task"`
}

type apiTask struct {
	Type       string `json:"type"`
	WebsiteURL string `json:"websiteURL"`
	WebsiteKey string `json:"websiteKey"`
}

type createTaskResponse struct {
	apiStatus
	TaskID int64 `json:"taskId"`
}

type taskResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    int64  `json:"taskId"`
}

type taskResultResponse struct {
	apiStatus
	Status   string `json:"status"`
	Solution struct {
		GRecaptchaResponse string `json:"gRecaptchaResponse"`
	} `json:"solution"`
}

func (c *Client) call(ctx context.Context, method string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("anti-captcha %s: unexpected status %d", method, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("anti-captcha %s: decode response: %w", method, err)
	}
	return nil
}

// CreateTask submits a job and returns its id.
func (c *Client) CreateTask(ctx context.Context, task Task) (int64, error) {
	var resp createTaskResponse
	err := c.call(ctx, "createTask", createTaskRequest{
		ClientKey: c.key,
		Task: apiTask{
			Type:       taskTypeNoCaptcha,
			WebsiteURL: task.WebsiteURL,
			WebsiteKey: task.WebsiteKey,
		},
	}, &resp)
	if err != nil {
		return 0, err
	}
	if err := resp.err(); err != nil {
		return 0, err
	}
	return resp.TaskID, nil
}

// TaskResult checks a job once. ready is false while the solver is still
// working.
func (c *Client) TaskResult(ctx context.Context, taskID int64) (token string, ready bool, err error) {
	var resp taskResultResponse
	err = c.call(ctx, "getTaskResult", taskResultRequest{ClientKey: c.key, TaskID: taskID}, &resp)
	if err != nil {
		return "", false, err
	}
	if err := resp.err(); err != nil {
		return "", false, err
	}
	if resp.Status != "ready" {
		return "", false, nil
	}
	if resp.Solution.GRecaptchaResponse == "" {
		return "", false, &APIError{Code: "EMPTY_SOLUTION", Description: "ready task carried no token"}
	}
	return resp.Solution.GRecaptchaResponse, true, nil
}

// Solve submits task and blocks until the token is ready. The wait is
// bounded by the poll policy's Timeout; exceeding it returns an error
// matching ErrSolverTimeout.
func (c *Client) Solve(ctx context.Context, task Task) (string, error) {
	parent := ctx
	if c.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.Timeout)
		defer cancel()
	}

	id, err := c.CreateTask(ctx, task)
	if err != nil {
		return "", c.timeoutOr(parent, ctx, 0, err)
	}
	c.log.Info("Captcha task %d submitted", id)

	for attempt := 1; ; attempt++ {
		if err := wait(ctx, c.policy.Delay(attempt)); err != nil {
			return "", c.timeoutOr(parent, ctx, id, err)
		}
		token, ready, err := c.TaskResult(ctx, id)
		switch {
		case err == nil && ready:
			return token, nil
		case err == nil:
			continue
		case retryable(err):
			c.log.Warning("Captcha task %d: result check failed, retrying: %v", id, err)
			continue
		default:
			return "", c.timeoutOr(parent, ctx, id, err)
		}
	}
}

// timeoutOr converts a failure caused by the solve deadline into
// ErrSolverTimeout. Cancellation of the caller's context passes through.
func (c *Client) timeoutOr(parent, ctx context.Context, id int64, err error) error {
	if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: task %d unfinished after %s", ErrSolverTimeout, id, c.policy.Timeout)
	}
	return err
}
