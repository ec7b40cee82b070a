// Package export renders expenses into spreadsheet files.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"nuxo/internal/core"
	"nuxo/internal/log"
	"nuxo/internal/report"
)

const (
	SheetExpenses   = "Gastos"
	SheetByCategory = "Resumo por Categoria"
	SheetByPayment  = "Resumo por Pagamento"

	moneyFormat = "#,##0.00"
)

var expenseHeader = []any{"Data", "Valor (R$)", "Forma de Pagamento", "Parcelas", "Valor da Parcela (R$)", "Categoria", "Local", "Registrado em"}

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// XLSX writes one workbook per export into Dir.
type XLSX struct {
	Dir    string
	Label  func(core.PaymentMethod) string
	Now    func() time.Time
	logger *log.Logger
}

func NewXLSX(dir string, label func(core.PaymentMethod) string, logger *log.Logger) *XLSX {
	return &XLSX{
		Dir:    dir,
		Label:  label,
		Now:    time.Now,
		logger: logger.WithComponent(log.ComponentExport),
	}
}

// FileName is gastos_<owner>_<timestamp>_<8 hex>.xlsx with the owner made
// safe for file systems.
func FileName(owner string, at time.Time) string {
	safe := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(owner), "_"), "_")
	if safe == "" {
		safe = "usuario"
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("gastos_%s_%s_%s.xlsx", safe, at.Format("20060102_150405"), id)
}

// Render writes rows to a new workbook and returns its path.
func (x *XLSX) Render(ctx context.Context, rows []core.Expense, owner string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(x.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(moneyFormat)})
	if err != nil {
		return "", fmt.Errorf("create money style: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#2E7D32"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetExpenses); err != nil {
		return "", err
	}
	if err := x.writeExpenses(f, rows, header, money); err != nil {
		return "", fmt.Errorf("write %s: %w", SheetExpenses, err)
	}
	if err := writeGroups(f, SheetByCategory, "Categoria", report.ByCategory(rows), header, money); err != nil {
		return "", fmt.Errorf("write %s: %w", SheetByCategory, err)
	}
	if err := writeGroups(f, SheetByPayment, "Forma de Pagamento", report.ByPaymentMethod(rows, x.Label), header, money); err != nil {
		return "", fmt.Errorf("write %s: %w", SheetByPayment, err)
	}

	path := filepath.Join(x.Dir, FileName(owner, x.Now()))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	x.logger.InfoContext(ctx, "Spreadsheet rendered",
		log.FieldOperation, log.OpRender, log.FieldRows, len(rows), log.FieldFile, path)
	return path, nil
}

func (x *XLSX) writeExpenses(f *excelize.File, rows []core.Expense, header, money int) error {
	if err := f.SetSheetRow(SheetExpenses, "A1", &expenseHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetExpenses, "A1", "H1", header); err != nil {
		return err
	}

	for i, e := range rows {
		var installments, perInstallment any
		if e.Installments != nil {
			installments = *e.Installments
		}
		if per, ok := e.InstallmentAmount(); ok {
			perInstallment = per.InexactFloat64()
		}
		created := ""
		if !e.CreatedAt.IsZero() {
			created = e.CreatedAt.Local().Format("02/01/2006 15:04")
		}
		values := []any{
			e.Date.Display(),
			e.Amount.InexactFloat64(),
			x.Label(e.PaymentMethod),
			installments,
			perInstallment,
			e.Category,
			e.Location,
			created,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetExpenses, cell, &values); err != nil {
			return err
		}
	}

	last := len(rows) + 1
	totalRow := last + 2
	if err := f.SetCellValue(SheetExpenses, fmt.Sprintf("A%d", totalRow), "TOTAL"); err != nil {
		return err
	}
	if err := f.SetCellValue(SheetExpenses, fmt.Sprintf("B%d", totalRow), report.Total(rows).InexactFloat64()); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetExpenses, "B2", fmt.Sprintf("B%d", totalRow), money); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetExpenses, "E2", fmt.Sprintf("E%d", max(last, 2)), money); err != nil {
		return err
	}

	widths := map[string]float64{"A": 12, "B": 14, "C": 20, "D": 10, "E": 20, "F": 18, "G": 30, "H": 18}
	for col, w := range widths {
		if err := f.SetColWidth(SheetExpenses, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

func writeGroups(f *excelize.File, sheet, keyTitle string, groups []report.Group, header, money int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &[]any{keyTitle, "Total (R$)", "Percentual (%)"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", header); err != nil {
		return err
	}
	for i, g := range groups {
		values := []any{g.Key, g.Total.InexactFloat64(), g.Percent.InexactFloat64()}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, "B2", fmt.Sprintf("B%d", max(len(groups)+1, 2)), money); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "A", 24)
}

func strPtr(s string) *string { return &s }
