package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"returns-backend/internal/domains/returns/model"
	"returns-backend/internal/domains/returns/repository"
	"returns-backend/internal/shared/apperr"
	"returns-backend/internal/shared/utils"
)

const exportBatchSize = 500

// =====================================================
// EXPORT SERVICE (admin spreadsheet)
// =====================================================
type ExportService interface {
	// ExportXLSX writes every request matching status ("" for all) as of now
	ExportXLSX(ctx context.Context, status string) ([]byte, error)
}

type exportService struct {
	repo  repository.ReturnRepository
	clock utils.Clock
}

func NewExportService(repo repository.ReturnRepository, clock utils.Clock) ExportService {
	return &exportService{repo: repo, clock: clock}
}

var exportHeaders = []string{
	"ID", "Order ID", "User ID", "Status", "Reason", "Items",
	"Refund Amount", "Requested At", "Approved At", "Rejected At",
	"Cancelled At", "Picked At", "Refunded At", "Failure Reason", "Provider Refund ID",
}

func (s *exportService) ExportXLSX(ctx context.Context, status string) ([]byte, error) {
	asOf := s.clock.Now()
	filter := repository.ListFilter{AsOf: &asOf}
	if status != "" {
		st := model.Status(status)
		if !st.Valid() {
			return nil, model.NewReturnError(model.ErrCodeInvalidRequest, "unknown status "+status, apperr.ErrValidation)
		}
		filter.Status = &st
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Returns"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, fmt.Errorf("create stream writer: %w", err)
	}

	header := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := 2
	for offset := 0; ; offset += exportBatchSize {
		batch, err := s.repo.List(ctx, filter, offset, exportBatchSize)
		if err != nil {
			return nil, err
		}

		for _, rr := range batch {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := sw.SetRow(cell, exportRow(&rr)); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
			row++
		}

		if len(batch) < exportBatchSize {
			break
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func exportRow(rr *model.ReturnRequest) []interface{} {
	amount := ""
	if rr.RefundAmount != nil {
		amount = rr.RefundAmount.StringFixed(2)
	}

	qty := 0
	for _, it := range rr.Items {
		qty += it.Quantity
	}

	return []interface{}{
		rr.ID.String(),
		rr.OrderID.String(),
		rr.UserID.String(),
		string(rr.Status),
		rr.Reason,
		qty,
		amount,
		rr.RequestedAt.Format("2006-01-02 15:04:05"),
		formatTime(rr.ApprovedAt),
		formatTime(rr.RejectedAt),
		formatTime(rr.CancelledAt),
		formatTime(rr.PickedAt),
		formatTime(rr.RefundedAt),
		deref(rr.RefundFailureReason),
		deref(rr.ProviderRefundID),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
