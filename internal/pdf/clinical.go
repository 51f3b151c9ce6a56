package pdf

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// ClinicalEntry é um registro de evolução já decifrado.
type ClinicalEntry struct {
	SessionDate    string // YYYY-MM-DD
	Content        string
	Observations   string
	Goals          string
	WellbeingScore *int
	Sentiment      string
}

type ClinicalSummary struct {
	Total        int     `json:"total"`
	AvgWellbeing float64 `json:"avgWellbeing"`
	FirstSession string  `json:"firstSession"`
	LastSession  string  `json:"lastSession"`
}

// SentimentLabel traduz o sentimento; ausente ou desconhecido vale Neutro.
func SentimentLabel(s string) string {
	switch s {
	case "positive":
		return "Positivo"
	case "negative":
		return "Negativo"
	}
	return "Neutro"
}

// SummarizeClinical espera entries em ordem decrescente de data (como a listagem).
// A média considera só registros com nota e sai com 1 casa.
func SummarizeClinical(entries []ClinicalEntry) ClinicalSummary {
	s := ClinicalSummary{Total: len(entries)}
	if len(entries) == 0 {
		return s
	}
	s.LastSession = entries[0].SessionDate
	s.FirstSession = entries[len(entries)-1].SessionDate
	sum, n := 0, 0
	for _, e := range entries {
		if e.WellbeingScore != nil {
			sum += *e.WellbeingScore
			n++
		}
	}
	if n > 0 {
		s.AvgWellbeing = math.Round(float64(sum)/float64(n)*10) / 10
	}
	return s
}

// BuildClinicalRecordsPDF monta o prontuário: cabeçalho, resumo e os registros
// do mais antigo para o mais recente.
func BuildClinicalRecordsPDF(patientName string, entries []ClinicalEntry, generatedAt time.Time) ([]byte, error) {
	d := newDoc()
	d.footer(" - Documento confidencial")
	d.AddPage()

	d.SetFont("Helvetica", "B", 20)
	d.centered(10, "Prontuário Eletrônico")
	d.SetFont("Helvetica", "", 14)
	d.centered(8, "Paciente: "+patientName)
	d.SetFont("Helvetica", "", 10)
	d.SetTextColor(100, 100, 100)
	d.centered(6, "Gerado em: "+LongDateTimeBR(generatedAt))
	d.Ln(2)
	d.divider()

	sum := SummarizeClinical(entries)
	d.SetTextColor(0, 0, 0)
	d.SetFont("Helvetica", "B", 12)
	d.line(7, "Resumo")
	d.SetFont("Helvetica", "", 10)
	d.line(5, fmt.Sprintf("Total de registros: %d", sum.Total))
	if sum.AvgWellbeing > 0 {
		d.line(5, fmt.Sprintf("Média de bem-estar: %s/10", strings.TrimSuffix(fmt.Sprintf("%.1f", sum.AvgWellbeing), ".0")))
	}
	if sum.FirstSession != "" {
		d.line(5, "Primeira sessão: "+shortDateBR(sum.FirstSession))
	}
	if sum.LastSession != "" && len(entries) > 1 {
		d.line(5, "Última sessão: "+shortDateBR(sum.LastSession))
	}
	d.Ln(6)
	d.divider()

	d.SetFont("Helvetica", "B", 12)
	d.line(10, "Registros de Evolução")

	w, _ := d.GetPageSize()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		idx := len(entries) - i
		_, pageH := d.GetPageSize()
		if d.GetY()+50 > pageH-margin {
			d.AddPage()
		}
		dateText := e.SessionDate
		if t, err := time.Parse("2006-01-02", e.SessionDate); err == nil {
			dateText = LongDateBR(t)
		}
		d.SetFillColor(245, 245, 245)
		d.SetFont("Helvetica", "B", 11)
		y := d.GetY()
		d.CellFormat(0, 10, d.tr(fmt.Sprintf("%d. %s", idx, dateText)), "", 0, "L", true, 0, "")
		if e.WellbeingScore != nil {
			d.SetFont("Helvetica", "", 9)
			d.SetXY(margin, y)
			d.CellFormat(w-2*margin-3, 10, d.tr(fmt.Sprintf("Bem-estar: %d/10", *e.WellbeingScore)), "", 0, "R", false, 0, "")
		}
		d.Ln(12)
		d.SetFont("Helvetica", "", 9)
		d.SetTextColor(100, 100, 100)
		d.line(6, "Sentimento: "+SentimentLabel(e.Sentiment))
		d.SetTextColor(0, 0, 0)
		section(d, "Conteúdo da Sessão:", e.Content)
		section(d, "Observações:", e.Observations)
		section(d, "Metas e Próximos Passos:", e.Goals)
		d.Ln(4)
		if i > 0 {
			d.SetDrawColor(220, 220, 220)
			d.SetDashPattern([]float64{2, 2}, 0)
			y := d.GetY()
			d.Line(margin+10, y, w-margin-10, y)
			d.SetDashPattern([]float64{}, 0)
			d.Ln(6)
		}
	}
	return d.bytes()
}

func section(d *doc, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	d.SetFont("Helvetica", "B", 9)
	d.SetTextColor(80, 80, 80)
	d.line(5, title)
	d.SetFont("Helvetica", "", 9)
	d.SetTextColor(0, 0, 0)
	d.para(4.5, body)
	d.Ln(3)
}

var nonWord = regexp.MustCompile(`\s+`)

// ClinicalFilename: prontuario_<nome>_<data>.pdf
func ClinicalFilename(patientName string, at time.Time) string {
	name := strings.ToLower(nonWord.ReplaceAllString(strings.TrimSpace(patientName), "_"))
	return fmt.Sprintf("prontuario_%s_%s.pdf", name, at.Format("2006-01-02"))
}
