// Package pdf gera os PDFs do consultório (prontuário exportado e documentos
// emitidos) com fpdf. As fontes padrão são cp1252; os textos passam pelo
// tradutor Unicode antes de ir para a página.
package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

const margin = 20.0

var monthNames = [12]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"}

type doc struct {
	*fpdf.Fpdf
	tr func(string) string
}

func newDoc() *doc {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetMargins(margin, margin, margin)
	p.SetAutoPageBreak(true, margin)
	return &doc{Fpdf: p, tr: p.UnicodeTranslatorFromDescriptor("")}
}

func (d *doc) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *doc) centered(h float64, s string) {
	d.CellFormat(0, h, d.tr(s), "", 1, "C", false, 0, "")
}

func (d *doc) line(h float64, s string) {
	d.CellFormat(0, h, d.tr(s), "", 1, "L", false, 0, "")
}

func (d *doc) para(h float64, s string) {
	d.MultiCell(0, h, d.tr(s), "", "L", false)
}

func (d *doc) divider() {
	w, _ := d.GetPageSize()
	y := d.GetY()
	d.SetDrawColor(200, 200, 200)
	d.Line(margin, y, w-margin, y)
	d.Ln(6)
}

// footer numera as páginas: "Página N de M - Documento confidencial".
func (d *doc) footer(text string) {
	d.AliasNbPages("{nb}")
	d.SetFooterFunc(func() {
		d.SetY(-15)
		d.SetFont("Helvetica", "", 8)
		d.SetTextColor(150, 150, 150)
		d.CellFormat(0, 10, d.tr(fmt.Sprintf("Página %d de {nb}%s", d.PageNo(), text)), "", 0, "C", false, 0, "")
	})
}

// LongDateBR: "10 de junho de 2025".
func LongDateBR(t time.Time) string {
	return fmt.Sprintf("%02d de %s de %d", t.Day(), monthNames[t.Month()-1], t.Year())
}

// LongDateTimeBR: "10 de junho de 2025 às 14:05".
func LongDateTimeBR(t time.Time) string {
	return LongDateBR(t) + " às " + t.Format("15:04")
}

func shortDateBR(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}
