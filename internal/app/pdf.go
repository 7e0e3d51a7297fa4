package app

import (
	"bufio"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// writeResultPDF renders the extraction result as a minimal PDF: a header with
// the page URL and request, then the Markdown result line by line. Headings
// get a larger font and table rows become two bordered cells. This does not
// perform full Markdown layout.
func writeResultPDF(markdown, pageURL, request, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(20, 6, "Source:", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.WriteLinkString(6, tr(pageURL), pageURL)
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(20, 6, "Request:", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, tr(request), "", "L", false)
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 11)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right

	// Render line by line to avoid huge paragraphs
	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		switch {
		case s == "":
			pdf.Ln(5)
		case strings.HasPrefix(s, "#"):
			i := 0
			for i < len(s) && s[i] == '#' {
				i++
			}
			text := strings.TrimSpace(s[i:])
			if text == "" {
				continue
			}
			size := 14.0
			if i >= 2 {
				size = 12.0
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
		case strings.HasPrefix(s, "|"):
			cells := tableCells(s)
			if len(cells) < 2 || isSeparatorRow(cells) {
				continue
			}
			pdf.CellFormat(usable*0.35, 7, tr(cells[0]), "1", 0, "L", false, 0, "")
			pdf.CellFormat(usable*0.65, 7, tr(cells[1]), "1", 1, "L", false, 0, "")
		case strings.HasPrefix(s, ">"):
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 5, tr(strings.TrimSpace(strings.TrimPrefix(s, ">"))), "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
		default:
			pdf.MultiCell(0, 5, tr(s), "", "L", false)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	return pdf.OutputFileAndClose(outPath)
}

// tableCells splits a Markdown table row into trimmed cells, keeping escaped
// pipes inside cell text.
func tableCells(row string) []string {
	const placeholder = "\x00"
	row = strings.ReplaceAll(row, `\|`, placeholder)
	row = strings.TrimSuffix(strings.TrimPrefix(row, "|"), "|")
	parts := strings.Split(row, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(strings.ReplaceAll(p, placeholder, "|")))
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}
