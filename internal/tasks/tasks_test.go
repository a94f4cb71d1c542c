package tasks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"studio_pm/internal/asana"
	"studio_pm/internal/projects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, mux *http.ServeMux) *Service {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewService(asana.NewClient("tok", asana.WithBaseURL(server.URL)))
}

func TestForProjectGroupsBySection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/projects/123/tasks", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"gid":"t1","name":"Order sconces","due_on":"2026-09-01",
			 "memberships":[{"section":{"gid":"s1","name":"Lighting"}}]},
			{"gid":"t2","name":"Approve fabric","assignee":{"gid":"u1","name":"Ann"},
			 "memberships":[{"section":{"gid":"s2","name":"Textiles"}}]},
			{"gid":"t3","name":"Loose end"},
			{"gid":"t4","name":"Already done","completed":true}
		]}`)
	})
	mux.HandleFunc("/projects/123/sections", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"gid":"s2","name":"Textiles"},
			{"gid":"s1","name":"Lighting"}
		]}`)
	})

	board, err := newService(t, mux).ForProject(context.Background(), "123")
	require.NoError(t, err)

	// Section order follows the API return order.
	assert.Equal(t, []string{"Textiles", "Lighting"}, board.SectionOrder)
	require.Len(t, board.Sections["Lighting"], 1)
	require.Len(t, board.Sections["Textiles"], 1)
	require.Len(t, board.Sections[UncategorizedSection], 1)

	assert.Equal(t, "Ann", board.Sections["Textiles"][0].Assignee)
	assert.Equal(t, "https://app.asana.com/0/123/t1", board.Sections["Lighting"][0].URL)

	// Completed tasks never appear.
	for _, tasks := range board.Sections {
		for _, task := range tasks {
			assert.NotEqual(t, "Already done", task.Name)
		}
	}
}

func TestForProjectSectionFetchFailureDegrades(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/projects/123/tasks", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"gid":"t1","name":"Order sconces"}]}`)
	})
	mux.HandleFunc("/projects/123/sections", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	board, err := newService(t, mux).ForProject(context.Background(), "123")
	require.NoError(t, err)
	assert.Empty(t, board.SectionOrder)
	assert.Len(t, board.Sections[UncategorizedSection], 1)
}

func TestForProjectRequiresID(t *testing.T) {
	_, err := newService(t, http.NewServeMux()).ForProject(context.Background(), "")
	require.Error(t, err)
}

func TestForGanttToleratesPartialFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/projects/111/tasks", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"gid":"a1","name":"Demo plan","start_on":"2026-09-01","due_on":"2026-09-05",
			 "permalink_url":"https://app.asana.com/perma/a1"},
			{"gid":"a2","name":"No dates"}
		]}`)
	})
	mux.HandleFunc("/projects/222/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/projects/333/tasks", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"gid":"c1","name":"Install","start_on":"2026-10-01","due_on":"2026-10-02"}
		]}`)
	})

	projectList := []projects.Project{
		{ID: 1, Name: "Alpha", AsanaProjectID: "111", Color: "#111111"},
		{ID: 2, Name: "Beta", AsanaProjectID: "222", Color: "#222222"},
		{ID: 3, Name: "Gamma", AsanaProjectID: "333", Color: "#333333"},
		{ID: 4, Name: "Unlinked"},
	}

	got, err := newService(t, mux).ForGantt(context.Background(), projectList)
	require.NoError(t, err)
	require.Len(t, got, 2, "failed project is skipped, undated tasks dropped")

	assert.Equal(t, "[Alpha] Demo plan", got[0].Name)
	assert.Equal(t, "https://app.asana.com/perma/a1", got[0].URL)
	assert.Equal(t, "#111111", got[0].ProjectColor)
	assert.Equal(t, "[Gamma] Install", got[1].Name)
	assert.Equal(t, "https://app.asana.com/0/333/c1", got[1].URL, "missing permalink falls back to built URL")
}

func TestForGanttNoLinkedProjects(t *testing.T) {
	_, err := newService(t, http.NewServeMux()).ForGantt(context.Background(), []projects.Project{{ID: 1, Name: "X"}})
	require.Error(t, err)
}

func TestCreateWithSectionAndAssignee(t *testing.T) {
	placed := false
	assigned := false

	mux := http.NewServeMux()
	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"gid":"t9","name":"Order rug"}}`)
	})
	mux.HandleFunc("/projects/123/sections", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"gid":"s1","name":"Rugs"}]}`)
	})
	mux.HandleFunc("/sections/s1/addTask", func(w http.ResponseWriter, r *http.Request) {
		placed = true
		fmt.Fprint(w, `{"data":{}}`)
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"gid":"u1","email":"ann@example.com"}]}`)
	})
	mux.HandleFunc("/tasks/t9", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assigned = true
		fmt.Fprint(w, `{"data":{}}`)
	})

	task, err := newService(t, mux).Create(context.Background(), "123", asana.NewTask{
		Name:     "Order rug",
		Section:  "Rugs",
		Assignee: "ann@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Order rug", task.Name)
	assert.True(t, placed)
	assert.True(t, assigned)
}

func TestCreateHelperFailuresDoNotFailCreate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"data":{"gid":"t9","name":"Order rug"}}`)
	})
	mux.HandleFunc("/projects/123/sections", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	task, err := newService(t, mux).Create(context.Background(), "123", asana.NewTask{
		Name:     "Order rug",
		Section:  "Rugs",
		Assignee: "ann@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Order rug", task.Name)
}
