package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/questforge/platform-guard/internal/repository"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// defaultErrorCases cover the sentinels any guarded endpoint can surface: an
// upstream call that outlived its deadline and a storage backend that is down.
var defaultErrorCases = []ErrorCase{
	{Err: context.DeadlineExceeded, Status: http.StatusGatewayTimeout, Message: "upstream timed out"},
	{Err: repository.ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "service temporarily unavailable"},
}

// RespondWithMappedError resolves err against the handler's own cases first,
// then the shared defaults, then the fallback. Handler cases win so an
// endpoint can phrase a shared sentinel in its own terms.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if match(err, cs) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}
	for _, cs := range defaultErrorCases {
		if match(err, cs) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

func match(err error, cs ErrorCase) bool {
	return cs.Err != nil && errors.Is(err, cs.Err)
}
