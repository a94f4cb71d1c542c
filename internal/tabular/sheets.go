package tabular

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsStore implements Store against one Google Sheets document.
type SheetsStore struct {
	service       *sheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

func NewSheetsStore(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsStore, error) {
	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsStore{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// NewSheetsStoreWithService wraps an already-constructed service, sharing one
// authenticated client across stores for multiple documents.
func NewSheetsStoreWithService(service *sheets.Service, spreadsheetID string) *SheetsStore {
	return &SheetsStore{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}
}

func (s *SheetsStore) ReadTable(ctx context.Context, table string) ([][]interface{}, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, table).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	return resp.Values, nil
}

func (s *SheetsStore) WriteRange(ctx context.Context, table string, row, col int, values [][]interface{}) error {
	anchor := fmt.Sprintf("%s!%s%d", table, ColumnLetter(col), row)
	valueRange := &sheets.ValueRange{Values: values}

	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, anchor, valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update range %s: %w", anchor, err)
	}
	return nil
}

func (s *SheetsStore) AppendRows(ctx context.Context, table string, rows [][]interface{}) error {
	valueRange := &sheets.ValueRange{Values: rows}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, table+"!A1", valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append rows to %s: %w", table, err)
	}
	return nil
}

func (s *SheetsStore) ClearRows(ctx context.Context, table string, fromRow int) error {
	clearRange := fmt.Sprintf("%s!A%d:ZZ", table, fromRow)
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", clearRange, err)
	}
	return nil
}

func (s *SheetsStore) EnsureTable(ctx context.Context, table string, headers []string, hidden bool) error {
	exists, err := s.TableExists(ctx, table)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	log.Debug().Str("table", table).Bool("hidden", hidden).Msg("Creating table")
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title:  table,
					Hidden: hidden,
				},
			},
		}},
	}
	resp, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	s.mu.Lock()
	for _, r := range resp.Replies {
		if r.AddSheet != nil && r.AddSheet.Properties != nil {
			s.sheetIDs[table] = r.AddSheet.Properties.SheetId
		}
	}
	s.mu.Unlock()

	if len(headers) == 0 {
		return nil
	}

	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := s.WriteRange(ctx, table, 1, 1, [][]interface{}{headerRow}); err != nil {
		return err
	}
	return s.boldRange(ctx, table, 1, 1, 1, len(headers))
}

func (s *SheetsStore) DeleteTable(ctx context.Context, table string) error {
	sheetID, err := s.sheetID(ctx, table)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteSheet: &sheets.DeleteSheetRequest{SheetId: sheetID},
		}},
	}
	if _, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete table %s: %w", table, err)
	}

	s.mu.Lock()
	delete(s.sheetIDs, table)
	s.mu.Unlock()
	return nil
}

func (s *SheetsStore) CopyTable(ctx context.Context, src, dst string, hidden bool) error {
	if exists, err := s.TableExists(ctx, dst); err != nil {
		return err
	} else if exists {
		if err := s.DeleteTable(ctx, dst); err != nil {
			return err
		}
	}

	srcID, err := s.sheetID(ctx, src)
	if err != nil {
		return err
	}

	copied, err := s.service.Spreadsheets.Sheets.CopyTo(s.spreadsheetID, srcID, &sheets.CopySheetToAnotherSpreadsheetRequest{
		DestinationSpreadsheetId: s.spreadsheetID,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to copy table %s: %w", src, err)
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: copied.SheetId,
					Title:   dst,
					Hidden:  hidden,
				},
				Fields: "title,hidden",
			},
		}},
	}
	if _, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to rename copied table to %s: %w", dst, err)
	}

	s.mu.Lock()
	s.sheetIDs[dst] = copied.SheetId
	s.mu.Unlock()
	return nil
}

func (s *SheetsStore) TableExists(ctx context.Context, table string) (bool, error) {
	s.mu.Lock()
	_, cached := s.sheetIDs[table]
	s.mu.Unlock()
	if cached {
		return true, nil
	}

	if err := s.refreshSheetIDs(ctx); err != nil {
		return false, err
	}

	s.mu.Lock()
	_, ok := s.sheetIDs[table]
	s.mu.Unlock()
	return ok, nil
}

func (s *SheetsStore) SetColumnValidation(ctx context.Context, table string, col, fromRow, toRow int, allowed []string) error {
	sheetID, err := s.sheetID(ctx, table)
	if err != nil {
		return err
	}

	values := make([]*sheets.ConditionValue, 0, len(allowed))
	for _, v := range allowed {
		values = append(values, &sheets.ConditionValue{UserEnteredValue: v})
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			SetDataValidation: &sheets.SetDataValidationRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(fromRow - 1),
					EndRowIndex:      int64(toRow),
					StartColumnIndex: int64(col - 1),
					EndColumnIndex:   int64(col),
				},
				Rule: &sheets.DataValidationRule{
					Condition: &sheets.BooleanCondition{
						Type:   "ONE_OF_LIST",
						Values: values,
					},
					ShowCustomUi: true,
					Strict:       true,
				},
			},
		}},
	}
	if _, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to set validation on %s: %w", table, err)
	}
	return nil
}

func (s *SheetsStore) BoldCell(ctx context.Context, table string, row, col int) error {
	return s.boldRange(ctx, table, row, col, row, col)
}

func (s *SheetsStore) boldRange(ctx context.Context, table string, fromRow, fromCol, toRow, toCol int) error {
	sheetID, err := s.sheetID(ctx, table)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    int64(fromRow - 1),
					EndRowIndex:      int64(toRow),
					StartColumnIndex: int64(fromCol - 1),
					EndColumnIndex:   int64(toCol),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat.bold",
			},
		}},
	}
	if _, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to bold cells on %s: %w", table, err)
	}
	return nil
}

func (s *SheetsStore) CopyFormatting(ctx context.Context, src, dst string, rows, cols int) error {
	srcID, err := s.sheetID(ctx, src)
	if err != nil {
		return err
	}
	dstID, err := s.sheetID(ctx, dst)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			CopyPaste: &sheets.CopyPasteRequest{
				Source: &sheets.GridRange{
					SheetId:        srcID,
					StartRowIndex:  0,
					EndRowIndex:    int64(rows),
					EndColumnIndex: int64(cols),
				},
				Destination: &sheets.GridRange{
					SheetId:        dstID,
					StartRowIndex:  0,
					EndRowIndex:    int64(rows),
					EndColumnIndex: int64(cols),
				},
				PasteType: "PASTE_FORMAT",
			},
		}},
	}
	if _, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to copy formatting %s -> %s: %w", src, dst, err)
	}
	return nil
}

func (s *SheetsStore) Title(ctx context.Context) (string, error) {
	doc, err := s.service.Spreadsheets.Get(s.spreadsheetID).Fields("properties.title").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to read spreadsheet title: %w", err)
	}
	return doc.Properties.Title, nil
}

func (s *SheetsStore) sheetID(ctx context.Context, table string) (int64, error) {
	s.mu.Lock()
	id, ok := s.sheetIDs[table]
	s.mu.Unlock()
	if ok {
		return id, nil
	}

	if err := s.refreshSheetIDs(ctx); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok = s.sheetIDs[table]
	if !ok {
		return 0, fmt.Errorf("table %s not found", table)
	}
	return id, nil
}

func (s *SheetsStore) refreshSheetIDs(ctx context.Context) error {
	doc, err := s.service.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheetIDs = make(map[string]int64, len(doc.Sheets))
	for _, sh := range doc.Sheets {
		if sh.Properties != nil {
			s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	return nil
}
