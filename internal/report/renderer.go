// Package report renders the userhub PDF reports: users filtered by a birth date
// range and the per-record log of an integration run.
package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/userhub-io/userhub/internal/integration"
	"github.com/userhub-io/userhub/internal/users"
)

const (
	pageMargin   = 50.0
	cellPadding  = 4.0
	rowHeight    = 18.0
	tableTopSlot = 90.0

	fontFamily    = "Helvetica"
	tableFontSize = 10.0

	generatedAtLayout = "02/01/2006 15:04:05"
	emptyCell         = "-"

	MsgNoUsersInRange = "Nenhum usuario encontrado para o periodo informado."
	MsgNoRowsInRun    = "Nenhum registro processado nesta integracao."
)

// ErrLayoutOverflow is returned when a table's columns are wider than the page content area.
var ErrLayoutOverflow = errors.New("report table wider than page content area")

type (
	// Renderer draws reports with the presentation settings of one Config.
	Renderer struct {
		cfg *Config
		loc *time.Location
		now func() time.Time
	}

	// Option configures a Renderer.
	Option func(*Renderer)

	// BirthReportData is the input of a birth range report.
	BirthReportData struct {
		Range BirthRange
		Users []users.User
	}

	column struct {
		header string
		width  float64
		align  string
	}

	document struct {
		pdf *fpdf.Fpdf
		tr  func(string) string
	}
)

var (
	birthColumns = []column{
		{header: "ID", width: 35, align: "R"},
		{header: "Nome", width: 70, align: "L"},
		{header: "Sobrenome", width: 80, align: "L"},
		{header: "Email", width: 150, align: "L"},
		{header: "Nascimento", width: 70, align: "L"},
		{header: "Celular", width: 90, align: "L"},
	}

	integrationColumns = []column{
		{header: "Status", width: 50, align: "L"},
		{header: "ID", width: 35, align: "R"},
		{header: "Nome", width: 60, align: "L"},
		{header: "Sobrenome", width: 70, align: "L"},
		{header: "Email", width: 130, align: "L"},
		{header: "Nascimento", width: 60, align: "L"},
		{header: "Erro", width: 90, align: "L"},
	}
)

// WithClock sets the clock used for the "Gerado em" line and document dates.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

// NewRenderer creates a Renderer. A nil cfg uses DefaultConfig.
func NewRenderer(cfg *Config, opts ...Option) *Renderer {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	r := &Renderer{
		cfg: cfg,
		loc: cfg.Location(),
		now: time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// BirthReport writes the birth range report for data to w.
func (r *Renderer) BirthReport(w io.Writer, data BirthReportData) error {
	doc, err := r.birthDocument(data)
	if err != nil {
		return err
	}

	return doc.output(w)
}

// IntegrationReport writes the report of one integration run to w.
func (r *Renderer) IntegrationReport(w io.Writer, result *integration.Result) error {
	doc, err := r.integrationDocument(result)
	if err != nil {
		return err
	}

	return doc.output(w)
}

func (r *Renderer) birthDocument(data BirthReportData) (*document, error) {
	doc := r.newDocument(r.cfg.Report.BirthTitle)

	doc.line(fmt.Sprintf("Filtro por data de nascimento: %s ate %s", data.Range.Start, data.Range.End))
	doc.line(fmt.Sprintf("Total: %d", len(data.Users)))
	doc.line("Gerado em: " + r.generatedAt())
	doc.pdf.Ln(rowHeight)

	if len(data.Users) == 0 {
		doc.notice(MsgNoUsersInRange)

		return doc, doc.pdf.Error()
	}

	rows := make([][]string, 0, len(data.Users))
	for _, u := range data.Users {
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10),
			u.Nome,
			u.Sobrenome,
			u.Email,
			deref(u.DataNascimento),
			deref(u.Celular),
		})
	}

	if err := doc.table(birthColumns, rows); err != nil {
		return nil, err
	}

	return doc, doc.pdf.Error()
}

func (r *Renderer) integrationDocument(result *integration.Result) (*document, error) {
	if result == nil {
		return nil, errors.New("integration report requires a result")
	}

	doc := r.newDocument(r.cfg.Report.IntegrationTitle)
	s := result.Summary

	doc.line("Execucao: " + result.RunID)
	doc.line(fmt.Sprintf("Parametros: idade minima %d, maximo de registros %d",
		result.Params.IdadeMin, result.Params.MaxRegistros))
	doc.line(fmt.Sprintf("Registros obtidos: %d", result.TotalFetched))
	doc.line(fmt.Sprintf("Resumo: tentados %d, inseridos %d, atualizados %d, sucesso %d, erros %d",
		s.Attempted, s.Inserted, s.Updated, s.Success, s.Errors))
	doc.line("Gerado em: " + r.generatedAt())
	doc.pdf.Ln(rowHeight)

	if len(result.Rows) == 0 {
		doc.notice(MsgNoRowsInRun)

		return doc, doc.pdf.Error()
	}

	rows := make([][]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		id := ""
		if row.ID != nil {
			id = strconv.FormatInt(*row.ID, 10)
		}

		rows = append(rows, []string{
			string(row.Status),
			id,
			row.Nome,
			row.Sobrenome,
			row.Email,
			deref(row.DataNascimento),
			row.Error,
		})
	}

	if err := doc.table(integrationColumns, rows); err != nil {
		return nil, err
	}

	return doc, doc.pdf.Error()
}

func (r *Renderer) generatedAt() string {
	return r.now().In(r.loc).Format(generatedAtLayout)
}

func (r *Renderer) newDocument(title string) *document {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetCellMargin(cellPadding)

	now := r.now()
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetTitle(title, true)
	pdf.SetAuthor(r.cfg.Report.Author, true)
	pdf.SetCreator("userhub", true)

	doc := &document{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}

	pdf.AddPage()
	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(0, 24, doc.tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(9)

	return doc
}

func (d *document) line(text string) {
	d.pdf.SetFont(fontFamily, "", 11)
	d.pdf.CellFormat(0, 14, d.tr(text), "", 1, "L", false, 0, "")
	d.pdf.Ln(4)
}

func (d *document) notice(text string) {
	d.pdf.SetFont(fontFamily, "", 12)
	d.pdf.CellFormat(0, 16, d.tr(text), "", 1, "L", false, 0, "")
}

// table draws a bordered table, starting a new page and repeating the header
// whenever the next row would cross the bottom margin.
func (d *document) table(columns []column, rows [][]string) error {
	pageWidth, pageHeight := d.pdf.GetPageSize()

	var total float64
	for _, col := range columns {
		total += col.width
	}

	if total > pageWidth-2*pageMargin {
		return fmt.Errorf("%w: %.0fpt of %.0fpt", ErrLayoutOverflow, total, pageWidth-2*pageMargin)
	}

	d.pdf.SetY(math.Max(d.pdf.GetY(), pageMargin+tableTopSlot))
	d.header(columns)

	for _, row := range rows {
		if d.pdf.GetY()+rowHeight > pageHeight-pageMargin {
			d.pdf.AddPage()
			d.header(columns)
		}

		d.row(columns, row)
	}

	return nil
}

func (d *document) header(columns []column) {
	d.pdf.SetFont(fontFamily, "B", tableFontSize)
	d.pdf.SetFillColor(0xee, 0xee, 0xee)

	for _, col := range columns {
		d.pdf.CellFormat(col.width, rowHeight, d.tr(col.header), "1", 0, col.align, true, 0, "")
	}

	d.pdf.Ln(rowHeight)
	d.pdf.SetFont(fontFamily, "", tableFontSize)
}

func (d *document) row(columns []column, values []string) {
	measure := func(s string) float64 {
		return d.pdf.GetStringWidth(d.tr(s))
	}

	for i, col := range columns {
		value := emptyCell
		if i < len(values) && values[i] != "" {
			value = values[i]
		}

		text := FitText(value, col.width-2*cellPadding, measure)
		d.pdf.CellFormat(col.width, rowHeight, d.tr(text), "1", 0, col.align, false, 0, "")
	}

	d.pdf.Ln(rowHeight)
}

func (d *document) output(w io.Writer) error {
	if err := d.pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}

	return nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}

	return *value
}
