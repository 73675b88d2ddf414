package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"loanportal/internal/models"
	"loanportal/internal/views"
)

// Generator renders documents; an interface so handlers can be tested
// without producing real PDFs.
type Generator interface {
	LoanStatement(w io.Writer, data StatementData) error
}

// StatementGenerator draws loan statements with gofpdf. Without a font
// path it uses the core Helvetica font, which covers Latin-1 only.
type StatementGenerator struct {
	FontPath string
	fontName string
}

type StatementData struct {
	Loan        models.Entity
	Financials  models.Financials
	Account     models.Entity
	Contact     models.Entity
	GeneratedAt time.Time
}

func NewStatementGenerator(fontPath string) *StatementGenerator {
	g := &StatementGenerator{FontPath: fontPath, fontName: "Helvetica"}
	if fontPath != "" {
		g.fontName = "DejaVu"
	}
	return g
}

func (g *StatementGenerator) LoanStatement(w io.Writer, data StatementData) error {
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}
	loan := data.Loan
	title := "Loan statement " + loan.Label(models.KindLoan)

	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("Loan Portal", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	g.addFont(pdf)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, "LOAN STATEMENT", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 7, "Generated "+data.GeneratedAt.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	g.hr(pdf)

	g.sectionTitle(pdf, "Loan")
	g.kvLine(pdf, "Contract", loan.FirstString("contract_number", "loan_number"))
	g.kvLine(pdf, "Type", loan.String("loan_type"))
	g.kvLine(pdf, "Status", loan.FirstString("status", "loan_status"))
	g.kvLine(pdf, "Next payment", views.Date(loan["next_payment_date"]))
	g.kvLine(pdf, "Monthly payment", views.Currency(loan["monthly_payment"]))
	if data.Account != nil {
		g.kvLine(pdf, "Account", data.Account.Label(models.KindAccount))
	}
	if data.Contact != nil {
		g.kvLine(pdf, "Borrower", data.Contact.Label(models.KindContact))
	}
	if vin := loan.FirstString(models.VINFields...); vin != "" {
		g.kvLine(pdf, "Vehicle", fmt.Sprintf("%s %s %s (VIN %s)",
			loan.FirstString(models.YearFields...), loan.FirstString(models.MakeFields...),
			loan.FirstString(models.ModelFields...), vin))
	}
	pdf.Ln(2)
	g.hr(pdf)

	f := data.Financials
	g.sectionTitle(pdf, "Balances")
	g.kvLine(pdf, "Loan amount", views.Currency(f.LoanAmount))
	g.kvLine(pdf, "Principal balance", views.Currency(f.PrincipalBalance))
	g.kvLine(pdf, "Amount paid", views.Currency(f.AmountPaid))
	g.kvLine(pdf, "Progress", views.Percent(f.ProgressPercent))
	g.kvLine(pdf, "Past due", views.Currency(f.PastDueAmount))
	g.kvLine(pdf, "Past due fees", views.Currency(f.PastDueFees))
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(55, 8, "Total due:", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, views.Currency(f.TotalDue), "T", 1, "L", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont(g.fontName, "", 9)
	pdf.MultiCell(0, 5, "Figures reflect the servicing system at the time this statement was generated. "+
		"Payments in transit may not be included.", "", "L", false)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	return pdf.Output(w)
}

func (g *StatementGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *StatementGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	if val == "" {
		val = "-"
	}
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(55, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *StatementGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 195, y)
	pdf.SetY(y + 2)
}

func (g *StatementGenerator) addFont(pdf *gofpdf.Fpdf) {
	if g.FontPath == "" {
		return
	}
	pdf.AddUTF8Font(g.fontName, "", g.FontPath)
	pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
}
