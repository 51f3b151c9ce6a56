package pdf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestSummarizeClinical(t *testing.T) {
	entries := []ClinicalEntry{
		{SessionDate: "2025-06-10", WellbeingScore: intp(7)},
		{SessionDate: "2025-05-20"},
		{SessionDate: "2025-05-01", WellbeingScore: intp(6)},
		{SessionDate: "2025-04-01", WellbeingScore: intp(6)},
	}
	s := SummarizeClinical(entries)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 6.3, s.AvgWellbeing)
	assert.Equal(t, "2025-04-01", s.FirstSession)
	assert.Equal(t, "2025-06-10", s.LastSession)

	empty := SummarizeClinical(nil)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.AvgWellbeing)
}

func TestSentimentLabel(t *testing.T) {
	assert.Equal(t, "Positivo", SentimentLabel("positive"))
	assert.Equal(t, "Negativo", SentimentLabel("negative"))
	assert.Equal(t, "Neutro", SentimentLabel("neutral"))
	assert.Equal(t, "Neutro", SentimentLabel(""))
}

func TestBuildClinicalRecordsPDF(t *testing.T) {
	var entries []ClinicalEntry
	for i := 0; i < 12; i++ {
		entries = append(entries, ClinicalEntry{
			SessionDate:    time.Date(2025, 6, 30-i, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			Content:        strings.Repeat("Paciente relatou ansiedade e evolução no sono. ", 8),
			Observations:   "Observação",
			Goals:          "Manter diário",
			WellbeingScore: intp(5 + i%5),
			Sentiment:      "positive",
		})
	}
	out, err := BuildClinicalRecordsPDF("João da Silva", entries, time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Greater(t, bytes.Count(out, []byte("/Type /Page\n")), 1)
}

func TestBuildClinicalRecordsPDFEmpty(t *testing.T) {
	out, err := BuildClinicalRecordsPDF("Ana", nil, time.Now())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestClinicalFilename(t *testing.T) {
	at := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "prontuario_joão_da_silva_2025-07-01.pdf", ClinicalFilename(" João da  Silva ", at))
}

func TestLongDateBR(t *testing.T) {
	at := time.Date(2025, 3, 5, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, "05 de março de 2025", LongDateBR(at))
	assert.Equal(t, "05 de março de 2025 às 14:05", LongDateTimeBR(at))
}

func TestContentHashAndURL(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHash(""))
	assert.Equal(t, "https://app.exemplo.com/verify/abc", VerificationURL("https://app.exemplo.com/", "abc"))
	assert.Empty(t, VerificationURL("", "abc"))
	assert.Empty(t, VerificationURL("https://app.exemplo.com", ""))
}

func TestBuildDocumentPDF(t *testing.T) {
	gen := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	body := "<p>Atesto que o paciente compareceu à sessão.</p>"
	draft, err := BuildDocumentPDF(DocumentPage{Title: "Atestado", Type: "Atestado", Body: body})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(draft, []byte("%PDF")))

	final, err := BuildDocumentPDF(DocumentPage{
		Title: "Atestado", Type: "Atestado", PatientName: "Ana", TherapistName: "Dra. Maria", TherapistCRP: "06/12345",
		Body: body, GeneratedAt: &gen, VerificationToken: "tok",
		VerificationURL: VerificationURL("https://app.exemplo.com", "tok"), ContentHash: ContentHash(body),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(final, []byte("%PDF")))
	assert.Contains(t, string(final), "/Subtype /Image")
	assert.NotContains(t, string(draft), "/Subtype /Image")
}

func TestPlainText(t *testing.T) {
	in := "<h1>Relatório</h1><p>Paciente &amp; família</p><p></p><br/><ul><li>item 1</li><li>item&nbsp;2</li></ul>"
	assert.Equal(t, "Relatório\n\nPaciente & família\n\nitem 1\n\nitem 2", PlainText(in))
	assert.Equal(t, "texto simples", PlainText("texto simples"))
	assert.Equal(t, "a < b", PlainText("a &lt; b"))
}
