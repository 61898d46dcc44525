package bind

import (
	"github.com/labstack/echo/v4"
	"github.com/snapngo/snapngo/api/rest/controller/assignment"
	"github.com/snapngo/snapngo/api/rest/controller/task"
	"gorm.io/gorm"
)

func All(g *echo.Group, conn *gorm.DB, sender assignment.Sender) {
	Tasks(g, task.New(conn))
	Assignments(g, assignment.New(conn, sender))
}

func Tasks(g *echo.Group, ct *task.Controller) {
	g.POST("/tasks", ct.Post)
	g.GET("/tasks/:id", ct.Get)
}

func Assignments(g *echo.Group, ct *assignment.Controller) {
	g.POST("/batches", ct.PostBatch)
	g.GET("/workers/:id/assignments", ct.ListForWorker)
}
