package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestStatementWriter_Render(t *testing.T) {
	user := &entity.User{
		Username:       "mary-khan",
		FirstName:      "Mary",
		LastName:       "Khan",
		DepartmentName: "Mailing",
		PendingBalance: 400,
		AwardedBalance: 250,
	}
	first := &entity.ReimbursementRequest{
		ID:              uuid.New(),
		Name:            "Go course",
		EventType:       entity.EventTypeUniversityCourse,
		StartDate:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Cost:            500,
		ReimburseAmount: 400,
		Status:          entity.RequestStatusActive,
	}
	second := &entity.ReimbursementRequest{
		ID:                   uuid.New(),
		Name:                 "Cert exam",
		EventType:            entity.EventTypeCertification,
		StartDate:            time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Cost:                 250,
		ReimburseAmount:      250,
		FinalReimburseAmount: 250,
		Status:               entity.RequestStatusAwarded,
		FinalGrade:           "PASS",
	}

	data, err := NewStatementWriter(zap.NewNop()).Render(user, []*entity.ReimbursementRequest{first, second})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	name, err := f.GetCellValue(sheetName, cellEmployee)
	require.NoError(t, err)
	assert.Equal(t, "Mary Khan (mary-khan)", name)

	pending, err := f.GetCellValue(sheetName, cellPending)
	require.NoError(t, err)
	assert.Equal(t, "400", pending)

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, dataRowStart+1)
	assert.Equal(t, columns, rows[headerRow-1])
	assert.Equal(t, first.ID.String(), rows[dataRowStart-1][0])
	assert.Equal(t, "AWARDED", rows[dataRowStart][7])
	assert.Equal(t, "PASS", rows[dataRowStart][8])
}

func TestStatementWriter_RenderEmpty(t *testing.T) {
	data, err := NewStatementWriter(zap.NewNop()).Render(&entity.User{Username: "luke"}, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, headerRow)
}
