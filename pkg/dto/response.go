package dto

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/quillmarket/order-service/pkg/errs"
)

type Pagination struct {
	Previous *string     `json:"previous"`
	Next     *string     `json:"next"`
	Records  interface{} `json:"records"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

type ErrorResponse struct {
	Status  string      `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
	Errors  interface{} `json:"errors"`
}

func WriteSuccessResponse(c echo.Context, message string, data interface{}) error {
	resp := SuccessResponse{}
	resp.Status = "success"
	resp.Message = message
	resp.Data = data

	return c.JSON(http.StatusOK, resp)
}

func WriteErrorResponse(c echo.Context, err error, errors interface{}) error {
	statusCode := errs.GetErrorStatusCode(err)
	resp := ErrorResponse{}
	resp.Status = "error"
	resp.Code = errs.GetErrorCode(err)
	resp.Message = err.Error()
	resp.Errors = errors
	return c.JSON(statusCode, resp)
}
