package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tutortrack/core/dashboard"
)

func registerDashboardAPI(student, teacher *echo.Group) {
	student.GET("/dashboard", studentDashboard)
	teacher.GET("/dashboard", teacherDashboard)
}

func studentDashboard(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dashboard.StudentDashboard(usr))
}

func teacherDashboard(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dashboard.TeacherDashboard(usr))
}
