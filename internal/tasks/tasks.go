package tasks

import (
	"context"
	"fmt"

	"studio_pm/internal/asana"
	"studio_pm/internal/projects"

	"github.com/rs/zerolog/log"
)

// UncategorizedSection is the bucket for tasks carrying no section
// membership.
const UncategorizedSection = "Uncategorized"

// API is the slice of the remote task API the sync layer needs.
type API interface {
	TasksForProject(ctx context.Context, projectID string) ([]asana.Task, error)
	TasksForGantt(ctx context.Context, projectID string) ([]asana.Task, error)
	SectionsForProject(ctx context.Context, projectID string) ([]asana.Section, error)
	CreateTask(ctx context.Context, projectID string, task asana.NewTask) (*asana.Task, error)
	AddTaskToSection(ctx context.Context, sectionGid, taskGid string) error
	SetAssignee(ctx context.Context, taskGid, userGid string) error
	FindUserByEmail(ctx context.Context, email string) (*asana.User, error)
}

// Task is the dashboard-facing shape of one open task.
type Task struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	DueDate   string `json:"dueDate"`
	Notes     string `json:"notes"`
	Assignee  string `json:"assignee"`
	URL       string `json:"url"`
}

// Board groups a project's open tasks by section. SectionOrder follows the
// order the API returned sections, not alphabetical order.
type Board struct {
	Sections     map[string][]Task `json:"tasks"`
	SectionOrder []string          `json:"sectionOrder"`
}

// GanttTask is one dated task in the flattened multi-project timeline view.
type GanttTask struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	StartDate    string `json:"startDate"`
	DueDate      string `json:"dueDate"`
	SectionName  string `json:"sectionName"`
	URL          string `json:"url"`
	ProjectID    int    `json:"projectId"`
	ProjectName  string `json:"projectName"`
	ProjectColor string `json:"projectColor"`
}

type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

// ForProject fetches a project's open tasks and groups them by section. A
// section fetch failure degrades to grouping under task memberships alone.
func (s *Service) ForProject(ctx context.Context, remoteProjectID string) (*Board, error) {
	if remoteProjectID == "" {
		return nil, fmt.Errorf("no remote project ID provided")
	}

	tasks, err := s.api.TasksForProject(ctx, remoteProjectID)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("tasks", len(tasks)).Str("project", remoteProjectID).Msg("Fetched open tasks")

	var sectionOrder []string
	sections, err := s.api.SectionsForProject(ctx, remoteProjectID)
	if err != nil {
		log.Warn().Err(err).Str("project", remoteProjectID).Msg("Failed to fetch sections, using fallback grouping")
	} else {
		for _, sec := range sections {
			sectionOrder = append(sectionOrder, sec.Name)
		}
	}

	board := &Board{
		Sections:     make(map[string][]Task),
		SectionOrder: sectionOrder,
	}

	for _, task := range tasks {
		// The completed=false filter should exclude these already.
		if task.Completed {
			continue
		}

		sectionName := sectionNameOf(task)
		assignee := ""
		if task.Assignee != nil {
			assignee = task.Assignee.Name
		}

		board.Sections[sectionName] = append(board.Sections[sectionName], Task{
			Name:     task.Name,
			DueDate:  task.DueOn,
			Notes:    task.Notes,
			Assignee: assignee,
			URL:      asana.TaskURL(remoteProjectID, task.Gid),
		})
	}

	log.Debug().
		Int("sections", len(board.Sections)).
		Strs("section_order", board.SectionOrder).
		Msg("Grouped tasks by section")
	return board, nil
}

// ForGantt flattens dated tasks across every project with a linked remote
// id. One project's fetch failure is logged and skipped; the rest proceed.
func (s *Service) ForGantt(ctx context.Context, projectList []projects.Project) ([]GanttTask, error) {
	var out []GanttTask
	attempted := 0

	for _, p := range projectList {
		if p.AsanaProjectID == "" {
			continue
		}
		attempted++

		tasks, err := s.api.TasksForGantt(ctx, p.AsanaProjectID)
		if err != nil {
			log.Warn().Err(err).Str("project", p.Name).Msg("Skipping project in timeline fetch")
			continue
		}

		for _, task := range tasks {
			if task.Completed || task.StartOn == "" || task.DueOn == "" {
				continue
			}

			taskURL := task.PermalinkURL
			if taskURL == "" {
				taskURL = asana.TaskURL(p.AsanaProjectID, task.Gid)
			}

			out = append(out, GanttTask{
				ID:           task.Gid,
				Name:         fmt.Sprintf("[%s] %s", p.Name, task.Name),
				StartDate:    task.StartOn,
				DueDate:      task.DueOn,
				SectionName:  sectionNameOf(task),
				URL:          taskURL,
				ProjectID:    p.ID,
				ProjectName:  p.Name,
				ProjectColor: p.Color,
			})
		}
	}

	if attempted == 0 {
		return nil, fmt.Errorf("no projects have a linked remote project ID")
	}

	log.Debug().Int("tasks", len(out)).Int("projects", attempted).Msg("Built timeline task list")
	return out, nil
}

// Create makes a task in the remote project, then attempts section placement
// and assignee resolution. Both helpers are best-effort: their failure is
// logged and does not fail the create.
func (s *Service) Create(ctx context.Context, remoteProjectID string, task asana.NewTask) (*Task, error) {
	if remoteProjectID == "" {
		return nil, fmt.Errorf("no remote project ID configured")
	}

	created, err := s.api.CreateTask(ctx, remoteProjectID, task)
	if err != nil {
		return nil, err
	}
	log.Info().Str("gid", created.Gid).Str("name", created.Name).Msg("Created task")

	if task.Section != "" {
		s.placeInSection(ctx, remoteProjectID, created.Gid, task.Section)
	}
	if task.Assignee != "" {
		s.assignByEmail(ctx, created.Gid, task.Assignee)
	}

	return &Task{
		Name:    created.Name,
		DueDate: task.DueOn,
		URL:     asana.TaskURL(remoteProjectID, created.Gid),
	}, nil
}

func (s *Service) placeInSection(ctx context.Context, remoteProjectID, taskGid, sectionName string) {
	sections, err := s.api.SectionsForProject(ctx, remoteProjectID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch sections for task placement")
		return
	}

	for _, sec := range sections {
		if sec.Name == sectionName {
			if err := s.api.AddTaskToSection(ctx, sec.Gid, taskGid); err != nil {
				log.Warn().Err(err).Str("section", sectionName).Msg("Failed to place task in section")
			}
			return
		}
	}
	log.Warn().Str("section", sectionName).Msg("Section not found, task left unplaced")
}

func (s *Service) assignByEmail(ctx context.Context, taskGid, email string) {
	user, err := s.api.FindUserByEmail(ctx, email)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("Failed to resolve assignee")
		return
	}
	if err := s.api.SetAssignee(ctx, taskGid, user.Gid); err != nil {
		log.Warn().Err(err).Str("email", email).Msg("Failed to set assignee")
	}
}

func sectionNameOf(task asana.Task) string {
	for _, m := range task.Memberships {
		if m.Section != nil && m.Section.Name != "" {
			return m.Section.Name
		}
	}
	return UncategorizedSection
}
