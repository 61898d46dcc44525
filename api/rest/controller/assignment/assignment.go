package assignment

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	asvc "github.com/snapngo/snapngo/api/rest/service/assignment"
	"github.com/snapngo/snapngo/internal/dispatch"
	"github.com/snapngo/snapngo/internal/ledger"
	"gorm.io/gorm"
)

// Sender offers a batch of tasks to workers.
type Sender interface {
	SendBatch(ctx context.Context, batch dispatch.Batch) *dispatch.BatchReport
}

type Controller struct {
	db     *gorm.DB
	sender Sender
}

func New(conn *gorm.DB, sender Sender) *Controller {
	return &Controller{db: conn, sender: sender}
}

type BatchResponse struct {
	Sent     int      `json:"sent"`
	Skipped  []string `json:"skipped,omitempty"`
	Failures []string `json:"failures,omitempty"`
}

// PostBatch assigns tasks to workers and offers them.
func (ct *Controller) PostBatch(c echo.Context) error {
	var req asvc.BatchRequest

	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad request").SetInternal(err)
	}

	ctx := c.Request().Context()

	batch, err := asvc.Service(ctx).WithDatabase(ct.db).Assign(&req)
	switch {
	case errors.Is(err, asvc.ErrInvalid), errors.Is(err, ledger.ErrTaskNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}

	resp := BatchResponse{}
	if ct.sender != nil {
		report := ct.sender.SendBatch(ctx, batch)
		resp.Sent = report.Sent
		resp.Skipped = report.Skipped
		resp.Failures = report.Errors()
	}

	return c.JSON(http.StatusOK, resp)
}

// ListForWorker returns a worker's assignments ordered by task id.
func (ct *Controller) ListForWorker(c echo.Context) error {
	workerID := c.Param("id")
	if workerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "bad request")
	}

	assignments, err := asvc.Service(c.Request().Context()).WithDatabase(ct.db).List(workerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}

	return c.JSON(http.StatusOK, assignments)
}
