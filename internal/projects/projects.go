package projects

import (
	"context"
	"fmt"
	"strings"

	"studio_pm/internal/tabular"

	"github.com/rs/zerolog/log"
)

const (
	TableName     = "Projects"
	DefaultColor  = "#26717D"
	DefaultStatus = "Not Started"
)

// Canonical header layout used when the Projects table has to be created
// from scratch. Existing tables may carry these columns in any order.
var canonicalHeaders = []string{
	"Project_name", "Client_name", "Client_email", "Client_address", "Status",
	"AsanaProjectID", "SheetID", "FolderID", "ProjectColor",
	"Architect", "Architect_email", "Contractor", "Contractor_email",
}

// Columns that are auto-created at the right edge when absent. Every other
// column must pre-exist.
var standardColumns = []string{
	"ProjectColor", "Architect", "Architect_email", "Contractor", "Contractor_email",
}

// Project is one row of the Projects table. ID is the row-derived ordinal
// (first data row = 1); deleting or reordering rows changes identity.
type Project struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Client          string `json:"client"`
	ClientEmail     string `json:"clientEmail"`
	ClientAddress   string `json:"clientAddress"`
	Status          string `json:"status"`
	AsanaProjectID  string `json:"asanaProjectId"`
	SheetID         string `json:"sheetId"`
	FolderID        string `json:"folderId"`
	Color           string `json:"projectColor"`
	Architect       string `json:"architect"`
	ArchitectEmail  string `json:"architectEmail"`
	Contractor      string `json:"contractor"`
	ContractorEmail string `json:"contractorEmail"`
}

type Service struct {
	store tabular.Store
}

func NewService(store tabular.Store) *Service {
	return &Service{store: store}
}

// List reads every project from the Projects table. Column identity is
// resolved by header name; absent optional columns fall back to defaults.
func (s *Service) List(ctx context.Context) ([]Project, error) {
	grid, err := s.store.ReadTable(ctx, TableName)
	if err != nil {
		return nil, fmt.Errorf("projects table not found, create a sheet named %q: %w", TableName, err)
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("projects table is empty")
	}

	headers := tabular.HeaderMap(grid)
	if _, ok := headers["Project_name"]; !ok {
		return nil, fmt.Errorf("required column 'Project_name' not found in the projects table")
	}

	projects := make([]Project, 0, len(grid)-1)
	for i, row := range grid[1:] {
		projects = append(projects, projectFromRow(row, headers, i+1))
	}

	log.Debug().Int("count", len(projects)).Msg("Loaded projects")
	return projects, nil
}

// GetByID resolves one project by its row-derived ordinal.
func (s *Service) GetByID(ctx context.Context, id int) (*Project, error) {
	projects, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].ID == id {
			return &projects[i], nil
		}
	}
	return nil, fmt.Errorf("project %d not found", id)
}

// Add appends a project row, creating the table and any missing standard
// columns first, and returns the new project's id.
func (s *Service) Add(ctx context.Context, p Project) (int, error) {
	if strings.TrimSpace(p.Name) == "" {
		return 0, fmt.Errorf("project name is required")
	}

	if err := s.store.EnsureTable(ctx, TableName, canonicalHeaders, false); err != nil {
		return 0, err
	}

	grid, headers, err := s.ensureStandardColumns(ctx)
	if err != nil {
		return 0, err
	}

	width := len(grid[0])
	row := make([]interface{}, width)
	for i := range row {
		row[i] = ""
	}
	applyProjectToRow(row, headers, p)

	if err := s.store.AppendRows(ctx, TableName, [][]interface{}{row}); err != nil {
		return 0, fmt.Errorf("failed to append project: %w", err)
	}

	id := len(grid) // previous data rows + 1
	log.Info().Int("id", id).Str("name", p.Name).Msg("Added project")
	return id, nil
}

// Update rewrites an existing project's fields cell by cell. Fields whose
// column is absent from the sheet are silently dropped.
func (s *Service) Update(ctx context.Context, id int, p Project) error {
	grid, headers, err := s.ensureStandardColumns(ctx)
	if err != nil {
		return err
	}

	sheetRow := id + 1
	if id < 1 || sheetRow > len(grid) {
		return fmt.Errorf("project %d not found", id)
	}

	width := len(grid[0])
	row := make([]interface{}, width)
	for i := range row {
		if i < len(grid[sheetRow-1]) {
			row[i] = grid[sheetRow-1][i]
		} else {
			row[i] = ""
		}
	}
	applyProjectToRow(row, headers, p)

	for name, col := range headers {
		if !isProjectColumn(name) {
			continue
		}
		if err := s.store.WriteRange(ctx, TableName, sheetRow, col+1, [][]interface{}{{row[col]}}); err != nil {
			return fmt.Errorf("failed to update column %s: %w", name, err)
		}
	}

	log.Info().Int("id", id).Str("name", p.Name).Msg("Updated project")
	return nil
}

// ensureStandardColumns appends any missing standard column header, bolded,
// at the right edge, then returns the refreshed grid and header map.
func (s *Service) ensureStandardColumns(ctx context.Context) ([][]interface{}, map[string]int, error) {
	grid, err := s.store.ReadTable(ctx, TableName)
	if err != nil {
		return nil, nil, fmt.Errorf("projects table not found, create a sheet named %q: %w", TableName, err)
	}
	if len(grid) == 0 {
		return nil, nil, fmt.Errorf("projects table is empty")
	}

	headers := tabular.HeaderMap(grid)
	width := len(grid[0])

	for _, name := range standardColumns {
		if _, ok := headers[name]; ok {
			continue
		}
		width++
		log.Debug().Str("column", name).Int("col", width).Msg("Creating missing standard column")
		if err := s.store.WriteRange(ctx, TableName, 1, width, [][]interface{}{{name}}); err != nil {
			return nil, nil, fmt.Errorf("failed to create column %s: %w", name, err)
		}
		if err := s.store.BoldCell(ctx, TableName, 1, width); err != nil {
			log.Warn().Err(err).Str("column", name).Msg("Failed to bold new column header")
		}
		headers[name] = width - 1
		grid[0] = append(grid[0], name)
	}

	return grid, headers, nil
}

func projectFromRow(row []interface{}, headers map[string]int, id int) Project {
	cell := func(name string) string {
		col, ok := headers[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(tabular.CellString(row, col))
	}

	p := Project{
		ID:              id,
		Name:            cell("Project_name"),
		Client:          cell("Client_name"),
		ClientEmail:     cell("Client_email"),
		ClientAddress:   cell("Client_address"),
		Status:          cell("Status"),
		SheetID:         cell("SheetID"),
		FolderID:        cell("FolderID"),
		Color:           cell("ProjectColor"),
		Architect:       cell("Architect"),
		ArchitectEmail:  cell("Architect_email"),
		Contractor:      cell("Contractor"),
		ContractorEmail: cell("Contractor_email"),
	}
	// The id column historically held values entered with literal quotes.
	p.AsanaProjectID = strings.Trim(cell("AsanaProjectID"), `"'`)

	if p.Status == "" {
		p.Status = DefaultStatus
	}
	if p.Color == "" {
		p.Color = DefaultColor
	}
	return p
}

func applyProjectToRow(row []interface{}, headers map[string]int, p Project) {
	set := func(name, value string) {
		if col, ok := headers[name]; ok && col < len(row) {
			row[col] = value
		}
	}

	color := p.Color
	if color == "" {
		color = DefaultColor
	}
	status := p.Status
	if status == "" {
		status = DefaultStatus
	}

	set("Project_name", p.Name)
	set("Client_name", p.Client)
	set("Client_email", p.ClientEmail)
	set("Client_address", p.ClientAddress)
	set("Status", status)
	set("AsanaProjectID", p.AsanaProjectID)
	set("SheetID", p.SheetID)
	set("FolderID", p.FolderID)
	set("ProjectColor", color)
	set("Architect", p.Architect)
	set("Architect_email", p.ArchitectEmail)
	set("Contractor", p.Contractor)
	set("Contractor_email", p.ContractorEmail)
}

func isProjectColumn(name string) bool {
	for _, h := range canonicalHeaders {
		if h == name {
			return true
		}
	}
	return false
}
