// Package export renders reimbursement statements as xlsx workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/garyjia/training-reimbursement/internal/application/port"
	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Sheet layout
const (
	sheetName = "Statement"

	cellEmployee   = "B1"
	cellDepartment = "B2"
	cellPending    = "B3"
	cellAwarded    = "B4"

	headerRow    = 6
	dataRowStart = 7
)

var columns = []string{
	"Request ID", "Event", "Type", "Start Date", "Cost", "Granted", "Final Amount", "Status", "Grade",
}

// StatementWriter renders a user's requests and balances into one worksheet.
// Implements port.StatementRenderer.
type StatementWriter struct {
	logger *zap.Logger
}

// NewStatementWriter creates a new statement writer
func NewStatementWriter(logger *zap.Logger) *StatementWriter {
	return &StatementWriter{logger: logger}
}

// Render returns the workbook bytes
func (w *StatementWriter) Render(user *entity.User, requests []*entity.ReimbursementRequest) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := w.fillHeaderSection(file, user); err != nil {
		return nil, fmt.Errorf("failed to fill header: %w", err)
	}
	if err := w.fillRequestRows(file, requests); err != nil {
		return nil, fmt.Errorf("failed to fill requests: %w", err)
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Debug("Statement rendered",
		zap.String("username", user.Username),
		zap.Int("request_count", len(requests)))
	return buf.Bytes(), nil
}

func (w *StatementWriter) fillHeaderSection(file *excelize.File, user *entity.User) error {
	labels := map[string]interface{}{
		"A1": "Employee", cellEmployee: fmt.Sprintf("%s %s (%s)", user.FirstName, user.LastName, user.Username),
		"A2": "Department", cellDepartment: user.DepartmentName,
		"A3": "Pending", cellPending: user.PendingBalance,
		"A4": "Awarded", cellAwarded: user.AwardedBalance,
	}
	for cell, value := range labels {
		if err := file.SetCellValue(sheetName, cell, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", cell, err)
		}
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := file.SetCellStyle(sheetName, "A1", "A4", bold); err != nil {
		return err
	}

	for i, title := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheetName, cell, title); err != nil {
			return fmt.Errorf("failed to set column %s: %w", title, err)
		}
	}
	last, err := excelize.CoordinatesToCellName(len(columns), headerRow)
	if err != nil {
		return err
	}
	return file.SetCellStyle(sheetName, fmt.Sprintf("A%d", headerRow), last, bold)
}

func (w *StatementWriter) fillRequestRows(file *excelize.File, requests []*entity.ReimbursementRequest) error {
	for i, req := range requests {
		row := dataRowStart + i
		values := []interface{}{
			req.ID.String(),
			req.Name,
			string(req.EventType),
			req.StartDate.Format("2006-01-02"),
			req.Cost,
			req.ReimburseAmount,
			req.FinalReimburseAmount,
			string(req.Status),
			req.FinalGrade,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to set row %d: %w", row, err)
		}
	}
	return nil
}

var _ port.StatementRenderer = (*StatementWriter)(nil)
