package exportsvc

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core/flow"
)

const (
	pdfMargin = 15.0
	pdfFont   = "Helvetica"
)

// PDF writes cur as an A4 document: title, description, objectives, then one section per module.
func PDF(w io.Writer, cur flow.CurriculumOutput, creator string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252
	pdf.SetTitle(cur.Title, true)
	pdf.SetCreator(creator, true)
	pdf.AddPage()

	heading := func(size float64, text string) {
		pdf.SetFont(pdfFont, "B", size)
		pdf.MultiCell(0, size*0.5, tr(text), "", "L", false)
		pdf.Ln(2)
	}
	body := func(text string) {
		pdf.SetFont(pdfFont, "", 12)
		pdf.MultiCell(0, 6, tr(text), "", "L", false)
	}
	bullets := func(items []string) {
		pdf.SetFont(pdfFont, "", 12)
		for _, item := range items {
			pdf.MultiCell(0, 6, tr("- "+item), "", "L", false)
		}
		pdf.Ln(3)
	}

	heading(22, cur.Title)
	body(cur.Description)
	pdf.Ln(6)

	heading(14, "Key Learning Objectives")
	bullets(cur.LearningObjectives)

	for i, mod := range cur.Modules {
		if i > 0 && pdf.GetY() > 230 {
			pdf.AddPage()
		}
		pdf.Ln(4)
		heading(16, fmt.Sprintf("Module %d: %s", mod.ModuleNumber, mod.ModuleTitle))
		heading(13, "Topics Covered:")
		bullets(mod.Topics)
		heading(13, "Suggested Activities:")
		bullets(mod.Activities)
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "writing pdf")
	}
	return nil
}
