package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/solutionsscriptware-cmd/billflow/ledger"
	"github.com/solutionsscriptware-cmd/billflow/logger"
)

const (
	codeValidation   = "ValidationError"
	codeNotFound     = "NotFoundError"
	codeInconsistent = "InconsistentStateError"
	codeInternal     = "InternalError"
)

// respondError maps a service error onto a status code and the
// {"error", "code"} body shared by every endpoint.
func respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, codeInternal
	switch {
	case errors.Is(err, ledger.ErrValidation):
		status, code = http.StatusBadRequest, codeValidation
	case errors.Is(err, ledger.ErrNotFound):
		status, code = http.StatusNotFound, codeNotFound
	case errors.Is(err, ledger.ErrInconsistentState):
		code = codeInconsistent
	}

	c.Error(err)
	body := gin.H{"error": err.Error(), "code": code}

	var verr *ledger.ValidationError
	if errors.As(err, &verr) && verr.Field != "" {
		body["field"] = verr.Field
	}
	if status == http.StatusInternalServerError && code == codeInternal {
		log := logger.WithComponent("http")
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		body["error"] = "Internal server error"
	}
	c.JSON(status, body)
}

// bindError answers a malformed request body.
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": codeValidation})
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found", "code": codeNotFound})
}

func errInvalidParam(name string) error {
	return fmt.Errorf("invalid %s parameter", name)
}
