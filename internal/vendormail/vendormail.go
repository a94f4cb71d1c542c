// Package vendormail composes price-request emails to vendors from the
// Sourcing table.
package vendormail

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"studio_pm/internal/mail"
	"studio_pm/internal/tabular"

	"github.com/rs/zerolog/log"
)

// Config is the Sourcing table layout and sending policy.
type Config struct {
	Company       string
	Table         string
	SubjectPrefix string
	MaxItems      int
	VendorColumn  string
	EmailColumn   string
	RequestColumn string
	StatusColumn  string
}

// DefaultConfig matches the studio's standard Sourcing layout.
func DefaultConfig(company string) Config {
	return Config{
		Company:       company,
		Table:         "Sourcing",
		SubjectPrefix: "Price Request",
		MaxItems:      50,
		VendorColumn:  "Vendor",
		EmailColumn:   "Email",
		RequestColumn: "Request",
		StatusColumn:  "Status",
	}
}

// Item is one Sourcing row attributed to a vendor. Row is the 1-based
// physical row, kept so the status stamp lands back on the right line.
type Item struct {
	Row          int    `json:"row"`
	Room         string `json:"room"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	Quantity     string `json:"quantity"`
	Manufacturer string `json:"manufacturer"`
	SKU          string `json:"sku"`
	Dimensions   string `json:"dimensions"`
}

// Vendor is a vendor with all of its Sourcing rows.
type Vendor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Items []Item `json:"items"`
}

// SendResult reports what went out and which row stamps failed.
type SendResult struct {
	Recipient   string `json:"recipient"`
	Subject     string `json:"subject"`
	ItemCount   int    `json:"itemCount"`
	StampedRows int    `json:"stampedRows"`
	DraftID     string `json:"draftId,omitempty"`
	DraftURL    string `json:"draftUrl,omitempty"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Service struct {
	store  tabular.Store
	mailer mail.Mailer
	cfg    Config
}

func NewService(store tabular.Store, mailer mail.Mailer, cfg Config) *Service {
	return &Service{store: store, mailer: mailer, cfg: cfg}
}

// Vendors groups the Sourcing rows by vendor, in first-appearance order.
// A vendor's email is the first non-empty Email cell among its rows.
func (s *Service) Vendors(ctx context.Context) ([]Vendor, error) {
	grid, err := s.store.ReadTable(ctx, s.cfg.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.cfg.Table, err)
	}
	headers := tabular.HeaderMap(grid)
	if err := tabular.RequireHeaders(headers, []string{s.cfg.VendorColumn}); err != nil {
		return nil, fmt.Errorf("%s: %w", s.cfg.Table, err)
	}

	col := func(row []interface{}, name string) string {
		idx, ok := headers[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(tabular.CellString(row, idx))
	}

	byName := make(map[string]int)
	var vendors []Vendor
	for i := 1; i < len(grid); i++ {
		row := grid[i]
		name := col(row, s.cfg.VendorColumn)
		if name == "" {
			continue
		}
		idx, ok := byName[name]
		if !ok {
			idx = len(vendors)
			byName[name] = idx
			vendors = append(vendors, Vendor{Name: name})
		}
		if vendors[idx].Email == "" {
			vendors[idx].Email = col(row, s.cfg.EmailColumn)
		}
		vendors[idx].Items = append(vendors[idx].Items, Item{
			Row:          i + 1,
			Room:         col(row, "Room"),
			Description:  col(row, "Description"),
			Type:         col(row, "Type"),
			Quantity:     col(row, "Quantity"),
			Manufacturer: col(row, "Manufacturer"),
			SKU:          col(row, "SKU"),
			Dimensions:   col(row, "Dimensions"),
		})
	}

	log.Debug().Int("vendors", len(vendors)).Msg("Grouped sourcing rows by vendor")
	return vendors, nil
}

// Send composes and sends the price request for one vendor, then stamps
// each of its rows. Row stamping is best-effort: a failed stamp is logged
// and the rest proceed.
func (s *Service) Send(ctx context.Context, vendorName, recipient, customMessage string) (*SendResult, error) {
	vendor, msg, err := s.compose(ctx, vendorName, recipient, customMessage)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.Send(ctx, *msg); err != nil {
		return nil, fmt.Errorf("failed to send to %s: %w", recipient, err)
	}

	stamp := fmt.Sprintf("Emailed %s", time.Now().Format("2006-01-02 15:04"))
	stamped := s.stampRows(ctx, vendor.Items, stamp)

	return &SendResult{
		Recipient:   recipient,
		Subject:     msg.Subject,
		ItemCount:   len(vendor.Items),
		StampedRows: stamped,
	}, nil
}

// Draft composes the same email but saves it as a Gmail draft instead of
// sending, stamping the rows with the draft timestamp.
func (s *Service) Draft(ctx context.Context, vendorName, recipient, customMessage string) (*SendResult, error) {
	vendor, msg, err := s.compose(ctx, vendorName, recipient, customMessage)
	if err != nil {
		return nil, err
	}

	draftID, err := s.mailer.CreateDraft(ctx, *msg)
	if err != nil {
		return nil, fmt.Errorf("failed to create draft for %s: %w", recipient, err)
	}

	stamp := fmt.Sprintf("Draft created %s", time.Now().Format("2006-01-02 15:04"))
	stamped := s.stampRows(ctx, vendor.Items, stamp)

	return &SendResult{
		Recipient:   recipient,
		Subject:     msg.Subject,
		ItemCount:   len(vendor.Items),
		StampedRows: stamped,
		DraftID:     draftID,
		DraftURL:    fmt.Sprintf("https://mail.google.com/mail/u/0/#drafts?compose=%s", draftID),
	}, nil
}

func (s *Service) compose(ctx context.Context, vendorName, recipient, customMessage string) (*Vendor, *mail.Message, error) {
	if !emailPattern.MatchString(recipient) {
		return nil, nil, fmt.Errorf("invalid recipient email address %q", recipient)
	}

	vendors, err := s.Vendors(ctx)
	if err != nil {
		return nil, nil, err
	}
	var vendor *Vendor
	for i := range vendors {
		if strings.EqualFold(vendors[i].Name, vendorName) {
			vendor = &vendors[i]
			break
		}
	}
	if vendor == nil {
		return nil, nil, fmt.Errorf("vendor %q not found in %s", vendorName, s.cfg.Table)
	}
	if len(vendor.Items) == 0 {
		return nil, nil, fmt.Errorf("vendor %q has no items", vendorName)
	}
	if s.cfg.MaxItems > 0 && len(vendor.Items) > s.cfg.MaxItems {
		return nil, nil, fmt.Errorf("vendor %q has %d items, over the %d per-email limit", vendorName, len(vendor.Items), s.cfg.MaxItems)
	}

	title, err := s.store.Title(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read spreadsheet name: %w", err)
	}

	text, html, err := renderBodies(vendor.Items, customMessage, s.cfg.Company)
	if err != nil {
		return nil, nil, err
	}

	msg := &mail.Message{
		To:       recipient,
		FromName: s.cfg.Company,
		Subject:  fmt.Sprintf("%s - %s - %s", s.cfg.SubjectPrefix, title, s.cfg.Company),
		TextBody: text,
		HTMLBody: html,
	}
	return vendor, msg, nil
}

func (s *Service) stampRows(ctx context.Context, items []Item, stamp string) int {
	grid, err := s.store.ReadTable(ctx, s.cfg.Table)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to re-read sourcing table for stamping")
		return 0
	}
	headers := tabular.HeaderMap(grid)
	statusCol, hasStatus := headers[s.cfg.StatusColumn]
	requestCol, hasRequest := headers[s.cfg.RequestColumn]

	stamped := 0
	for _, item := range items {
		ok := true
		if hasStatus {
			if err := s.store.WriteRange(ctx, s.cfg.Table, item.Row, statusCol+1, [][]interface{}{{stamp}}); err != nil {
				log.Warn().Err(err).Int("row", item.Row).Msg("Failed to stamp sourcing row")
				ok = false
			}
		}
		if hasRequest {
			if err := s.store.WriteRange(ctx, s.cfg.Table, item.Row, requestCol+1, [][]interface{}{{false}}); err != nil {
				log.Warn().Err(err).Int("row", item.Row).Msg("Failed to clear request checkbox")
				ok = false
			}
		}
		if ok {
			stamped++
		}
	}
	return stamped
}
