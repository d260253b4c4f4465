package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-lending/internal/logging"
	"library-lending/library"
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs err and hides it from the client.
func respondInternalError(c *gin.Context, log logging.Logger, err error, op string) {
	log.Error(c.Request.Context(), "request failed", "op", op, "request_id", requestID(c), "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func respondSuccess(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message, Data: data})
}

// respondLibraryError maps library errors onto HTTP statuses.
func respondLibraryError(c *gin.Context, log logging.Logger, err error, op string) {
	var ve *library.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Code: "invalid_" + ve.Field})
	case errors.Is(err, library.ErrBookNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "book_not_found"})
	case errors.Is(err, library.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "user_not_found"})
	case errors.Is(err, library.ErrBookBorrowed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "book_borrowed"})
	case errors.Is(err, library.ErrBookNotBorrowed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "book_not_borrowed"})
	case errors.Is(err, library.ErrUserBanned):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "user_banned"})
	case errors.Is(err, library.ErrDuplicateStudentNumber):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "duplicate_student_number"})
	default:
		respondInternalError(c, log, err, op)
	}
}

// parseIDParam extracts a positive int64 id from the URL. On failure it
// responds with 400 and returns false.
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryFlag reads a boolean query parameter; anything unparsable is false.
func queryFlag(c *gin.Context, name string) bool {
	v, _ := strconv.ParseBool(c.Query(name))
	return v
}
