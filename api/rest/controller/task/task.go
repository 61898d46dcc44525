package task

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	tsvc "github.com/snapngo/snapngo/api/rest/service/task"
	"github.com/snapngo/snapngo/internal/ledger"
	"gorm.io/gorm"
)

type Controller struct {
	db *gorm.DB
}

func New(conn *gorm.DB) *Controller {
	return &Controller{db: conn}
}

func (ct *Controller) Post(c echo.Context) error {
	var req tsvc.CreateRequest

	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad request").SetInternal(err)
	}

	t, err := tsvc.Service(c.Request().Context()).WithDatabase(ct.db).Create(&req)
	switch {
	case errors.Is(err, tsvc.ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, tsvc.ErrExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}

	return c.JSON(http.StatusCreated, t)
}

func (ct *Controller) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad request").SetInternal(err)
	}

	t, err := tsvc.Service(c.Request().Context()).WithDatabase(ct.db).Get(id)
	switch {
	case errors.Is(err, ledger.ErrTaskNotFound):
		return echo.ErrNotFound
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	default:
		return c.JSON(http.StatusOK, t)
	}
}
