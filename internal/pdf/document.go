package pdf

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

// DocumentPage reúne o que vai no PDF de um documento emitido.
type DocumentPage struct {
	Title         string
	Type          string
	PatientName   string
	TherapistName string
	TherapistCRP  string
	Body          string
	GeneratedAt   *time.Time
	// Preenchidos só para documentos finalizados.
	VerificationToken string
	VerificationURL   string
	ContentHash       string
}

// ContentHash é o SHA-256 (hex) do texto do documento.
func ContentHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// VerificationURL monta APP_PUBLIC_URL/verify/<token>; vazio se faltar algum dos dois.
func VerificationURL(appPublicURL, token string) string {
	if appPublicURL == "" || token == "" {
		return ""
	}
	return fmt.Sprintf("%s/verify/%s", strings.TrimRight(appPublicURL, "/"), token)
}

// BuildDocumentPDF gera cabeçalho + corpo e, se houver token, o bloco de
// verificação com QR code, link e hash.
func BuildDocumentPDF(p DocumentPage) ([]byte, error) {
	d := newDoc()
	d.footer("")
	d.AddPage()

	d.SetFont("Helvetica", "B", 16)
	d.centered(9, p.Title)
	d.SetFont("Helvetica", "", 10)
	d.SetTextColor(100, 100, 100)
	if p.Type != "" {
		d.centered(6, p.Type)
	}
	if p.TherapistName != "" {
		who := p.TherapistName
		if p.TherapistCRP != "" {
			who += " - CRP " + p.TherapistCRP
		}
		d.centered(6, who)
	}
	if p.PatientName != "" {
		d.centered(6, "Paciente: "+p.PatientName)
	}
	d.SetTextColor(0, 0, 0)
	d.Ln(2)
	d.divider()

	d.SetFont("Helvetica", "", 11)
	d.para(6, PlainText(p.Body))

	if p.GeneratedAt != nil {
		d.Ln(6)
		d.SetFont("Helvetica", "", 10)
		d.line(6, "Emitido em "+LongDateBR(*p.GeneratedAt))
	}

	if p.VerificationToken == "" {
		return d.bytes()
	}

	_, pageH := d.GetPageSize()
	if d.GetY()+60 > pageH-margin {
		d.AddPage()
	} else {
		d.Ln(8)
	}
	d.divider()
	d.SetFont("Helvetica", "B", 11)
	d.line(7, "Verificação de autenticidade")
	d.SetFont("Helvetica", "", 9)
	if p.VerificationURL != "" {
		png, err := qrcode.Encode(p.VerificationURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("qrcode: %w", err)
		}
		opt := fpdf.ImageOptions{ImageType: "PNG"}
		d.RegisterImageOptionsReader("verify-qr", opt, bytes.NewReader(png))
		if d.Ok() {
			y := d.GetY()
			d.ImageOptions("verify-qr", margin, y, 32, 32, false, opt, 0, "")
			d.SetY(y + 34)
		}
		d.para(5, "Link para verificação: "+p.VerificationURL)
	}
	d.para(5, "Token de verificação: "+p.VerificationToken)
	if p.ContentHash != "" {
		d.para(5, "Hash SHA-256 do conteúdo: "+p.ContentHash)
	}
	d.Ln(2)
	d.SetTextColor(100, 100, 100)
	d.para(4.5, "A autenticidade deste documento pode ser conferida pelo link acima. O hash corresponde ao texto do documento no momento da finalização.")
	return d.bytes()
}

// PlainText remove tags HTML simples e decodifica as entidades mais comuns,
// trocando blocos (<p>, <br>, <div>, <li>) por quebras de linha.
func PlainText(html string) string {
	var out strings.Builder
	for i := 0; i < len(html); i++ {
		c := html[i]
		if c == '<' {
			end := strings.IndexByte(html[i:], '>')
			if end < 0 {
				out.WriteString(html[i:])
				break
			}
			tag := strings.ToLower(strings.Trim(html[i+1:i+end], "/ "))
			if name, _, _ := strings.Cut(tag, " "); blockTags[name] {
				out.WriteByte('\n')
			}
			i += end
			continue
		}
		if c == '&' {
			if semi := strings.IndexByte(html[i:], ';'); semi > 0 && semi <= 6 {
				if r, ok := entities[html[i:i+semi+1]]; ok {
					out.WriteString(r)
					i += semi
					continue
				}
			}
		}
		out.WriteByte(c)
	}
	lines := strings.Split(out.String(), "\n")
	kept := lines[:0]
	blank := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if blank || len(kept) == 0 {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		kept = append(kept, l)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

var blockTags = map[string]bool{"p": true, "br": true, "div": true, "li": true, "h1": true, "h2": true, "h3": true, "tr": true}

var entities = map[string]string{
	"&lt;": "<", "&gt;": ">", "&amp;": "&", "&quot;": `"`, "&#39;": "'", "&nbsp;": " ",
}
