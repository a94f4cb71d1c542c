package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://app.asana.com/api/1.0"

type Client struct {
	token        string
	baseURL      string
	client       *http.Client
	userCache    sync.Map
	apiCallCount int64
	apiCallMutex sync.Mutex
}

// Result is the uniform envelope every API call resolves to. On success Data
// holds the parsed "data" field of the response; on failure Details carries
// the raw response body.
type Result struct {
	Success      bool
	Data         json.RawMessage
	Error        string
	Details      string
	ResponseCode int
}

type Membership struct {
	Section *Section `json:"section"`
}

type Assignee struct {
	Gid  string `json:"gid"`
	Name string `json:"name"`
}

type Task struct {
	Gid          string       `json:"gid"`
	Name         string       `json:"name"`
	Completed    bool         `json:"completed"`
	Notes        string       `json:"notes"`
	StartOn      string       `json:"start_on"`
	DueOn        string       `json:"due_on"`
	Assignee     *Assignee    `json:"assignee"`
	Memberships  []Membership `json:"memberships"`
	PermalinkURL string       `json:"permalink_url"`
}

type Section struct {
	Gid  string `json:"gid"`
	Name string `json:"name"`
}

type User struct {
	Gid   string `json:"gid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Project struct {
	Gid  string `json:"gid"`
	Name string `json:"name"`
}

// NewTask carries the fields accepted when creating a task.
type NewTask struct {
	Name     string
	Notes    string
	DueOn    string
	Section  string
	Assignee string // email
}

type cachedUser struct {
	user      *User
	timestamp time.Time
}

type Option func(*Client)

// WithBaseURL points the client at an alternate API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IncrementAPICall safely increments the API call counter
func (c *Client) IncrementAPICall() {
	c.apiCallMutex.Lock()
	c.apiCallCount++
	c.apiCallMutex.Unlock()
}

// GetAPICallCount returns the current API call count
func (c *Client) GetAPICallCount() int64 {
	c.apiCallMutex.Lock()
	defer c.apiCallMutex.Unlock()
	return c.apiCallCount
}

// ResetAPICallCount resets the API call counter to zero
func (c *Client) ResetAPICallCount() {
	c.apiCallMutex.Lock()
	c.apiCallCount = 0
	c.apiCallMutex.Unlock()
}

// call performs one request against the API. Any 2xx status is success; the
// parsed "data" field is returned in the envelope. No retries, no pagination:
// callers receive exactly one page of results.
func (c *Client) call(ctx context.Context, method, endpoint string, payload interface{}, query url.Values) Result {
	reqURL := c.baseURL + "/" + strings.TrimPrefix(endpoint, "/")
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return Result{Error: fmt.Sprintf("failed to encode payload: %v", err)}
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return Result{Error: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Increment API call counter
	c.IncrementAPICall()

	log.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("Calling task API")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{Error: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{ResponseCode: resp.StatusCode, Error: fmt.Sprintf("failed to read response body: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().
			Int("status_code", resp.StatusCode).
			Str("endpoint", endpoint).
			Msg("Non-2xx response from task API")
		return Result{
			ResponseCode: resp.StatusCode,
			Error:        fmt.Sprintf("API request failed (HTTP %d)", resp.StatusCode),
			Details:      string(respBody),
		}
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return Result{
			ResponseCode: resp.StatusCode,
			Error:        fmt.Sprintf("failed to decode response: %v", err),
			Details:      string(respBody),
		}
	}

	return Result{
		Success:      true,
		Data:         envelope.Data,
		ResponseCode: resp.StatusCode,
	}
}

// TasksForProject fetches the open tasks of a project, with the field
// selection the dashboard grouping needs.
func (c *Client) TasksForProject(ctx context.Context, projectID string) ([]Task, error) {
	query := url.Values{}
	query.Set("opt_fields", "name,completed,due_on,notes,assignee.name,memberships.section.name")
	query.Set("completed", "false")

	result := c.call(ctx, http.MethodGet, fmt.Sprintf("projects/%s/tasks", projectID), nil, query)
	if !result.Success {
		return nil, fmt.Errorf("failed to fetch tasks for project %s: %s", projectID, result.Error)
	}

	var tasks []Task
	if err := json.Unmarshal(result.Data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// TasksForGantt fetches a project's tasks with the timeline field selection
// (start and due dates plus permalink).
func (c *Client) TasksForGantt(ctx context.Context, projectID string) ([]Task, error) {
	query := url.Values{}
	query.Set("opt_fields", "gid,name,completed,start_on,due_on,memberships.section.name,permalink_url")

	result := c.call(ctx, http.MethodGet, fmt.Sprintf("projects/%s/tasks", projectID), nil, query)
	if !result.Success {
		return nil, fmt.Errorf("failed to fetch tasks for project %s: %s", projectID, result.Error)
	}

	var tasks []Task
	if err := json.Unmarshal(result.Data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

func (c *Client) SectionsForProject(ctx context.Context, projectID string) ([]Section, error) {
	result := c.call(ctx, http.MethodGet, fmt.Sprintf("projects/%s/sections", projectID), nil, nil)
	if !result.Success {
		return nil, fmt.Errorf("failed to fetch sections for project %s: %s", projectID, result.Error)
	}

	var sections []Section
	if err := json.Unmarshal(result.Data, &sections); err != nil {
		return nil, fmt.Errorf("failed to decode sections: %w", err)
	}
	return sections, nil
}

// CreateTask creates a task in the given project. Section and assignee
// placement are handled by the caller, since both are best-effort.
func (c *Client) CreateTask(ctx context.Context, projectID string, task NewTask) (*Task, error) {
	if task.Name == "" {
		return nil, fmt.Errorf("task name is required")
	}

	data := map[string]interface{}{
		"name":     task.Name,
		"projects": []string{projectID},
	}
	if task.Notes != "" {
		data["notes"] = task.Notes
	}
	if task.DueOn != "" {
		data["due_on"] = task.DueOn
	}

	result := c.call(ctx, http.MethodPost, "tasks", map[string]interface{}{"data": data}, nil)
	if !result.Success {
		return nil, fmt.Errorf("failed to create task: %s", result.Error)
	}

	var created Task
	if err := json.Unmarshal(result.Data, &created); err != nil {
		return nil, fmt.Errorf("failed to decode created task: %w", err)
	}
	return &created, nil
}

func (c *Client) AddTaskToSection(ctx context.Context, sectionGid, taskGid string) error {
	payload := map[string]interface{}{
		"data": map[string]string{"task": taskGid},
	}
	result := c.call(ctx, http.MethodPost, fmt.Sprintf("sections/%s/addTask", sectionGid), payload, nil)
	if !result.Success {
		return fmt.Errorf("failed to add task %s to section %s: %s", taskGid, sectionGid, result.Error)
	}
	return nil
}

func (c *Client) SetAssignee(ctx context.Context, taskGid, userGid string) error {
	payload := map[string]interface{}{
		"data": map[string]string{"assignee": userGid},
	}
	result := c.call(ctx, http.MethodPut, fmt.Sprintf("tasks/%s", taskGid), payload, nil)
	if !result.Success {
		return fmt.Errorf("failed to assign task %s: %s", taskGid, result.Error)
	}
	return nil
}

// FindUserByEmail scans the workspace user list for a matching email. The
// lookup is cached for an hour per address.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	// Check cache first
	if cached, ok := c.userCache.Load(email); ok {
		entry := cached.(cachedUser)
		// Cache valid for 1 hour
		if time.Since(entry.timestamp) < time.Hour {
			return entry.user, nil
		}
	}

	query := url.Values{}
	query.Set("opt_fields", "email")

	result := c.call(ctx, http.MethodGet, "users", nil, query)
	if !result.Success {
		return nil, fmt.Errorf("failed to fetch users: %s", result.Error)
	}

	var users []User
	if err := json.Unmarshal(result.Data, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			// Cache the result
			c.userCache.Store(email, cachedUser{
				user:      &users[i],
				timestamp: time.Now(),
			})
			return &users[i], nil
		}
	}
	return nil, fmt.Errorf("no user found with email %s", email)
}

// ValidateCredentials checks the token and project id by fetching the
// project, mapping the common failure statuses to human messages. It returns
// the project's display name on success.
func (c *Client) ValidateCredentials(ctx context.Context, projectID string) (string, error) {
	if c.token == "" || projectID == "" {
		return "", fmt.Errorf("token and project ID are required")
	}

	result := c.call(ctx, http.MethodGet, fmt.Sprintf("projects/%s", projectID), nil, nil)
	if !result.Success {
		switch result.ResponseCode {
		case http.StatusUnauthorized:
			return "", fmt.Errorf("invalid token, check your personal access token")
		case http.StatusNotFound:
			return "", fmt.Errorf("project not found, check your project ID")
		default:
			return "", fmt.Errorf("error validating credentials: %s", result.Error)
		}
	}

	var project Project
	if err := json.Unmarshal(result.Data, &project); err != nil {
		return "", fmt.Errorf("failed to decode project: %w", err)
	}
	if project.Name == "" {
		return "Unknown Project", nil
	}
	return project.Name, nil
}

// TaskURL builds the canonical web URL for a task when the API did not
// return a permalink.
func TaskURL(projectID, taskGid string) string {
	return fmt.Sprintf("https://app.asana.com/0/%s/%s", projectID, taskGid)
}
