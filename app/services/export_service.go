package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mmsi/orderdesk/app/models"
	"github.com/mmsi/orderdesk/app/repositories"
	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/mmsi/orderdesk/pkg/rbac"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	ExportOrders     = "orders"
	ExportExecutions = "executions"
	ExportRechecks   = "rechecks"
	ExportActivity   = "activity"

	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	activityExportCap = 1000
)

// ExportKinds lists every report Render accepts.
var ExportKinds = []string{ExportOrders, ExportExecutions, ExportRechecks, ExportActivity}

// Export is a rendered spreadsheet.
type Export struct {
	Kind        string
	Filename    string
	ContentType string
	Body        *bytes.Buffer
}

type ExportService struct {
	db       *gorm.DB
	activity *repositories.ActivityRepository
}

func NewExportService(db *gorm.DB) *ExportService {
	return &ExportService{db: db, activity: repositories.NewActivityRepository(db)}
}

// authorizeExport lets admins render any report for archiving.
func authorizeExport(id auth.Identity, action rbac.Action) error {
	if rbac.Can(id.Role, rbac.ArchiveExport) {
		return nil
	}
	return rbac.Authorize(id, action)
}

// Render builds the named report. Strategists get their own orders and
// executions; admins get everything.
func (s *ExportService) Render(ctx context.Context, id auth.Identity, kind string) (Export, error) {
	var (
		sheet   string
		headers []string
		rows    [][]any
		err     error
	)
	switch kind {
	case ExportOrders:
		if err = authorizeExport(id, rbac.ExportOrders); err == nil {
			sheet, headers = "Orders", []string{"Order ID", "Stock", "Price", "Lots", "Order Type", "Status", "Strategist Name", "Nominee Name", "Created At"}
			rows, err = s.orderRows(ctx, id)
		}
	case ExportExecutions:
		if err = authorizeExport(id, rbac.ExportOrders); err == nil {
			sheet, headers = "Executions", []string{"ID", "Nominee", "Stock", "Price", "Lots", "Status", "Executed At", "Execution Type"}
			rows, err = s.executionRows(ctx, id)
		}
	case ExportRechecks:
		if err = authorizeExport(id, rbac.ExportRechecks); err == nil {
			sheet, headers = "Rechecks", []string{"Tanggal", "Kas", "Portofolio", "Admin", "Nominee", "Verifikasi"}
			rows, err = s.recheckRows(ctx)
		}
	case ExportActivity:
		if err = authorizeExport(id, rbac.ExportActivity); err == nil {
			sheet, headers = "Activity Logs", []string{"ID", "Nama User", "Email", "User ID", "Action Type", "Detail", "Timestamp"}
			rows, err = s.activityRows(ctx)
		}
	default:
		return Export{}, invalid("kind", fmt.Sprintf("The selected kind is invalid. Use one of: %s.", strings.Join(ExportKinds, ", ")))
	}
	if err != nil {
		return Export{}, wrapUnlessDomain("export "+kind, err)
	}

	body, err := writeSheet(sheet, headers, rows)
	if err != nil {
		return Export{}, fmt.Errorf("export %s: %w", kind, err)
	}
	return Export{Kind: kind, Filename: kind + ".xlsx", ContentType: xlsxContentType, Body: body}, nil
}

func (s *ExportService) orderRows(ctx context.Context, id auth.Identity) ([][]any, error) {
	q := s.db.WithContext(ctx).Preload("Strategist").Preload("Breakdowns", inSelectionOrder).Preload("Breakdowns.Nominee").Order("created_at desc")
	if !id.Is(auth.RoleAdmin) {
		q = q.Where("strategist_id = ?", id.ID)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}

	rows := make([][]any, len(orders))
	for i, o := range orders {
		strategist := "N/A"
		if o.Strategist != nil {
			strategist = o.Strategist.Name
		}
		var nominees []string
		for _, b := range o.Breakdowns {
			nominees = append(nominees, b.NomineeName())
		}
		nomineeCol := "N/A"
		if len(nominees) > 0 {
			nomineeCol = strings.Join(nominees, ", ")
		}
		price, _ := o.Price.Float64()
		rows[i] = []any{o.ID, o.Stock, price, o.Lots, o.OrderType, o.Status, strategist, nomineeCol, o.CreatedAt.Format("2006-01-02 15:04:05")}
	}
	return rows, nil
}

func (s *ExportService) executionRows(ctx context.Context, id auth.Identity) ([][]any, error) {
	q := s.db.WithContext(ctx).Preload("Nominee").Order("execution_time desc")
	if !id.Is(auth.RoleAdmin) {
		q = q.Where("order_id IN (?)", s.db.Model(&models.Order{}).Select("id").Where("strategist_id = ?", id.ID))
	}
	var breakdowns []models.OrderBreakdown
	if err := q.Find(&breakdowns).Error; err != nil {
		return nil, err
	}

	rows := make([][]any, len(breakdowns))
	for i, b := range breakdowns {
		executedAt := "-"
		if b.ExecutionTime != nil {
			executedAt = b.ExecutionTime.Format("2006-01-02 15:04")
		}
		mode := "Manual"
		if b.AutoExecuted {
			mode = "Auto"
		}
		price, _ := b.Price.Float64()
		rows[i] = []any{b.ID, b.NomineeName(), b.Stock, price, b.Lots, b.Status, executedAt, mode}
	}
	return rows, nil
}

func (s *ExportService) recheckRows(ctx context.Context) ([][]any, error) {
	var rechecks []models.Recheck
	if err := s.db.WithContext(ctx).Preload("Nominee").Order("date desc").Find(&rechecks).Error; err != nil {
		return nil, err
	}

	rows := make([][]any, len(rechecks))
	for i, r := range rechecks {
		portfolio, _ := json.Marshal(r.Portfolio)
		admin, nominee := "-", "-"
		if r.AdminName != nil {
			admin = *r.AdminName
		}
		if r.Nominee != nil {
			nominee = r.Nominee.Name
		}
		verified := "❌"
		if r.Verified {
			verified = "✅"
		}
		cash, _ := r.Cash.Float64()
		rows[i] = []any{r.Date, cash, string(portfolio), admin, nominee, verified}
	}
	return rows, nil
}

func (s *ExportService) activityRows(ctx context.Context) ([][]any, error) {
	logs, err := s.activity.Recent(ctx, "", activityExportCap)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, len(logs))
	for i, l := range logs {
		var name, email, userID string
		if l.User != nil {
			name, email = l.User.Name, l.User.Email
		}
		if l.UserID != nil {
			userID = *l.UserID
		}
		rows[i] = []any{l.ID, name, email, userID, l.ActionType, l.Detail, l.Timestamp.Format("2006-01-02 15:04:05")}
	}
	return rows, nil
}

// writeSheet renders one bold-header sheet into an xlsx buffer.
func writeSheet(sheet string, headers []string, rows [][]any) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if _, err := f.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
