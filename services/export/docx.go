package exportsvc

import (
	"fmt"
	"io"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core/flow"
)

const bulletStyle = "List Bullet"

// DOCX writes cur as a Word document with the same structure as PDF.
func DOCX(w io.Writer, cur flow.CurriculumOutput) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return errors.Wrap(err, "creating docx")
	}

	if _, err = doc.AddHeading(cur.Title, 0); err != nil {
		return errors.Wrap(err, "adding title")
	}
	doc.AddParagraph(cur.Description)

	if _, err = doc.AddHeading("Key Learning Objectives", 1); err != nil {
		return errors.Wrap(err, "adding objectives heading")
	}
	bullets(doc, cur.LearningObjectives)
	doc.AddParagraph("")

	for _, mod := range cur.Modules {
		if _, err = doc.AddHeading(fmt.Sprintf("Module %d: %s", mod.ModuleNumber, mod.ModuleTitle), 2); err != nil {
			return errors.Wrapf(err, "adding module %d heading", mod.ModuleNumber)
		}
		label(doc, "Topics Covered:")
		bullets(doc, mod.Topics)
		doc.AddParagraph("")
		label(doc, "Suggested Activities:")
		bullets(doc, mod.Activities)
	}

	return errors.Wrap(doc.Write(w), "writing docx")
}

func label(doc *docx.RootDoc, text string) {
	doc.AddParagraph("").AddText(text).Bold(true)
}

func bullets(doc *docx.RootDoc, items []string) {
	for _, item := range items {
		doc.AddParagraph(item).Style(bulletStyle)
	}
}
