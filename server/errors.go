package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/gallery"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Flow    string `json:"flow,omitempty"`
	Path    string `json:"path,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Fixed messages for failures whose detail stays in the logs.
const (
	msgContractViolation = "the generation backend returned output that does not match the flow's contract"
	msgToolExecution     = "a tool failed while serving the request"
	msgInternal          = "internal error"
)

// statusFor maps an error to its HTTP status and kind. Backend output and
// tool failures get a fixed message.
func statusFor(err error) (int, errorBody) {
	var (
		nf  *core.NotFoundError
		ii  *core.InvalidInputError
		gr  *core.GenerationRefusedError
		ocv *core.OutputContractViolationError
		te  *core.ToolExecutionError
		uu  *core.UpstreamUnavailableError
		um  *core.UnsupportedModalityError
	)
	body := errorBody{Message: err.Error()}
	switch {
	case errors.As(err, &nf):
		body.Kind, body.Flow = "NotFound", nf.Flow
		return http.StatusNotFound, body
	case errors.As(err, &ii):
		body.Kind, body.Flow, body.Path = "InvalidInput", ii.Flow, ii.Path
		return http.StatusBadRequest, body
	case errors.As(err, &gr):
		body.Kind, body.Flow = "GenerationRefused", gr.Flow
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &ocv):
		body.Kind, body.Flow, body.Path, body.Message = "OutputContractViolation", ocv.Flow, ocv.Path, msgContractViolation
		return http.StatusBadGateway, body
	case errors.As(err, &te):
		body.Kind, body.Code, body.Message = "ToolExecution", te.Code, msgToolExecution
		return http.StatusBadGateway, body
	case errors.As(err, &uu):
		body.Kind = "UpstreamUnavailable"
		return http.StatusServiceUnavailable, body
	case errors.As(err, &um):
		body.Kind = "UnsupportedModality"
		return http.StatusNotImplemented, body
	case errors.Is(err, gallery.ErrNotFound):
		body.Kind = "NotFound"
		return http.StatusNotFound, body
	}
	body.Kind, body.Message = "Internal", msgInternal
	return http.StatusInternalServerError, body
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, body := statusFor(err)
	if body.Message != err.Error() {
		s.logger.Error("http.request.failed", "path", c.FullPath(), "kind", body.Kind, "error", err.Error())
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "5")
	}
	c.JSON(status, gin.H{"error": body})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{Kind: "InvalidInput", Message: err.Error()}})
}
