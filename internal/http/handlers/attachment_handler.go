package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ServeAttachment godoc
// @ID          getAttachment
// @Summary     Download a complaint attachment
// @Description Only mounted when attachments are kept on local disk.
// @Tags        Complaints
// @Produce     octet-stream
// @Param       key  path  string  true  "Object key"
// @Success     200  {file}    file
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /attachments/{key} [get]
func (h *Handlers) ServeAttachment(c *gin.Context) {
	if h.opts.Files == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgNotFound)
		return
	}
	p, err := h.opts.Files.Path(strings.TrimPrefix(c.Param("key"), "/"))
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgNotFound)
		return
	}
	c.File(p)
}
