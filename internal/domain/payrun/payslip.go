package payrun

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"payadmin/internal/domain/deduction"
	"payadmin/internal/platform/crypto"
)

// NameLookup resolves an employee's display name for the payslip header.
type NameLookup interface {
	EmployeeName(ctx context.Context, tenantID, employeeID string) (string, string, error)
}

// PayslipRenderer writes itemized payslip PDFs to disk. When an encryption
// key is configured the file is stored encrypted with a .enc suffix.
type PayslipRenderer struct {
	Dir    string
	Store  StoreAPI
	Names  NameLookup
	Crypto *crypto.Service
}

func NewPayslipRenderer(dir string, store StoreAPI, names NameLookup, crypt *crypto.Service) *PayslipRenderer {
	return &PayslipRenderer{Dir: dir, Store: store, Names: names, Crypto: crypt}
}

// RenderPayrun generates a payslip for every item in the payrun and records
// each file path on the item. Returns the number of payslips written.
func (r *PayslipRenderer) RenderPayrun(ctx context.Context, tenantID, payrunID string) (int, error) {
	run, err := r.Store.GetByID(ctx, tenantID, payrunID)
	if err != nil {
		return 0, err
	}
	items, err := r.Store.ListPayItems(ctx, tenantID, payrunID)
	if err != nil {
		return 0, err
	}

	rendered := 0
	for _, item := range items {
		first, last, err := r.Names.EmployeeName(ctx, tenantID, item.EmployeeID)
		if err != nil {
			return rendered, err
		}
		path, err := r.render(run, item, first+" "+last)
		if err != nil {
			return rendered, err
		}
		if err := r.Store.SetPayslipURL(ctx, tenantID, item.ID, path); err != nil {
			return rendered, err
		}
		rendered++
	}
	return rendered, nil
}

func (r *PayslipRenderer) render(run Payrun, item PayItem, employeeName string) (string, error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", err
	}
	filePath := filepath.Join(r.Dir, item.ID+".pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", employeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s",
		run.PeriodStart.Format("2006-01-02"), run.PeriodEnd.Format("2006-01-02")))
	pdf.Ln(10)
	pdf.Cell(0, 8, fmt.Sprintf("Gross: %s %s", formatMoney(item.Gross), run.Currency))
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Deductions")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range item.Deductions {
		pdf.Cell(100, 7, line.RuleName)
		pdf.CellFormat(40, 7, fmt.Sprintf("%s %s", formatMoney(line.Amount), run.Currency), "", 0, "R", false, 0, "")
		pdf.Ln(6)
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total deductions: %s %s", formatMoney(item.TotalDeductions), run.Currency))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Net pay: %s %s", formatMoney(item.Net), run.Currency))
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Employer contributions: %s %s", formatMoney(item.EmployerContributions), run.Currency))

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", err
	}

	if r.Crypto != nil && r.Crypto.Configured() {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		encrypted, err := r.Crypto.Encrypt(data)
		if err != nil {
			return "", err
		}
		encryptedPath := filePath + ".enc"
		if err := os.WriteFile(encryptedPath, encrypted, 0o600); err != nil {
			return "", err
		}
		if err := os.Remove(filePath); err != nil {
			return "", err
		}
		return encryptedPath, nil
	}

	return filePath, nil
}

func formatMoney(m deduction.Money) string {
	s := fmt.Sprintf("%d", m)
	if m < 0 {
		return s
	}
	n := len(s)
	if n <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}
