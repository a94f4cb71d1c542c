package asana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-token", WithBaseURL(server.URL))
}

func TestTasksForProject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/123/tasks", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "false", r.URL.Query().Get("completed"))
		assert.Contains(t, r.URL.Query().Get("opt_fields"), "memberships.section.name")

		fmt.Fprint(w, `{"data":[
			{"gid":"t1","name":"Order sconces","due_on":"2026-09-01",
			 "memberships":[{"section":{"gid":"s1","name":"Lighting"}}]},
			{"gid":"t2","name":"Loose task"}
		]}`)
	})

	tasks, err := client.TasksForProject(context.Background(), "123")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Order sconces", tasks[0].Name)
	assert.Equal(t, "Lighting", tasks[0].Memberships[0].Section.Name)
	assert.Empty(t, tasks[1].Memberships)
	assert.Equal(t, int64(1), client.GetAPICallCount())
}

func TestCallNon2xxCarriesBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"errors":[{"message":"nope"}]}`)
	})

	_, err := client.TasksForProject(context.Background(), "123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestCreateTask(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload struct {
			Data map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Order rug", payload.Data["name"])
		assert.Equal(t, []interface{}{"123"}, payload.Data["projects"])
		assert.Equal(t, "2026-09-15", payload.Data["due_on"])
		_, hasNotes := payload.Data["notes"]
		assert.False(t, hasNotes)

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"gid":"t9","name":"Order rug"}}`)
	})

	task, err := client.CreateTask(context.Background(), "123", NewTask{Name: "Order rug", DueOn: "2026-09-15"})
	require.NoError(t, err)
	assert.Equal(t, "t9", task.Gid)
}

func TestCreateTaskRequiresName(t *testing.T) {
	client := NewClient("test-token")
	_, err := client.CreateTask(context.Background(), "123", NewTask{})
	require.Error(t, err)
}

func TestFindUserByEmailCaches(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/users", r.URL.Path)
		fmt.Fprint(w, `{"data":[
			{"gid":"u1","email":"ann@example.com"},
			{"gid":"u2","email":"bob@example.com"}
		]}`)
	})

	user, err := client.FindUserByEmail(context.Background(), "Bob@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u2", user.Gid)

	// Second lookup is served from cache.
	user, err = client.FindUserByEmail(context.Background(), "Bob@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u2", user.Gid)
	assert.Equal(t, 1, calls)

	_, err = client.FindUserByEmail(context.Background(), "nobody@example.com")
	require.Error(t, err)
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantName   string
		wantErrSub string
	}{
		{"valid", http.StatusOK, `{"data":{"gid":"123","name":"Lake House"}}`, "Lake House", ""},
		{"bad token", http.StatusUnauthorized, `{}`, "", "invalid token"},
		{"bad project", http.StatusNotFound, `{}`, "", "project not found"},
		{"server error", http.StatusInternalServerError, `{}`, "", "HTTP 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			name, err := client.ValidateCredentials(context.Background(), "123")
			if tt.wantErrSub != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrSub)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestTaskURL(t *testing.T) {
	assert.Equal(t, "https://app.asana.com/0/123/t1", TaskURL("123", "t1"))
}
