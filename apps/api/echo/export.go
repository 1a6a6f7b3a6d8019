package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/flow"
	exportsvc "github.com/trezcool/tutortrack/services/export"
)

var (
	errUnknownFormat = echo.NewHTTPError(http.StatusBadRequest, "format must be one of: pdf, docx")
	errNoEmail       = echo.NewHTTPError(http.StatusBadRequest, "your account has no email address")
)

type (
	exportApi struct {
		exporter *exportsvc.Exporter
		mail     core.EmailService
		validate *validator.Validate
	}

	curriculumMailData struct {
		Name  string
		Title string
	}
)

func registerExportAPI(teacher *echo.Group, exporter *exportsvc.Exporter, mailSvc core.EmailService, validate *validator.Validate) {
	api := exportApi{
		exporter: exporter,
		mail:     mailSvc,
		validate: validate,
	}

	teacher.POST("/curriculum/export", api.export)
	teacher.POST("/curriculum/email", api.email)
}

// Handlers

func (api *exportApi) export(ctx echo.Context) error {
	format, cur, err := api.bind(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	ct, err := api.exporter.Export(&buf, format, cur)
	if err != nil {
		return errors.Wrapf(err, "exporting curriculum to %s", format)
	}
	ctx.Response().Header().Set(
		echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", exportsvc.Filename(cur.Title, format)),
	)
	return ctx.Blob(http.StatusOK, ct, buf.Bytes())
}

// email sends the exported curriculum to the signed-in teacher.
func (api *exportApi) email(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if usr.Email == "" {
		return errNoEmail
	}
	format, cur, err := api.bind(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	ct, err := api.exporter.Export(&buf, format, cur)
	if err != nil {
		return errors.Wrapf(err, "exporting curriculum to %s", format)
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.DisplayName, Address: usr.Email}},
		Subject:      "Your curriculum: " + cur.Title,
		TemplateName: "curriculum",
		TemplateData: curriculumMailData{Name: usr.DisplayName, Title: cur.Title},
	}
	if err = msg.Attach(&buf, exportsvc.Filename(cur.Title, format), ct); err != nil {
		return errors.Wrap(err, "attaching curriculum")
	}
	api.mail.SendMessages(msg)
	return ctx.JSON(http.StatusAccepted, echo.Map{"message": "The curriculum has been sent to " + usr.Email + "."})
}

// Helpers

// bind reads the ?format= query param (pdf by default) and the curriculum body.
func (api *exportApi) bind(ctx echo.Context) (string, flow.CurriculumOutput, error) {
	format := ctx.QueryParam("format")
	if format == "" {
		format = exportsvc.FormatPDF
	}
	if exportsvc.ContentType(format) == "" {
		return "", flow.CurriculumOutput{}, errUnknownFormat
	}

	var cur flow.CurriculumOutput
	if err := ctx.Bind(&cur); err != nil {
		return "", cur, errors.Wrap(err, "binding to CurriculumOutput")
	}
	core.CleanStrings(&cur)
	if err := api.validate.Struct(cur); err != nil {
		return "", cur, err
	}
	return format, cur, nil
}
