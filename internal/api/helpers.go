package api

import (
	"encoding/json"
	"net/http"

	"causalkv/internal/causal"

	"github.com/gin-gonic/gin"
)

// readRequestMetadata extracts the client's causal metadata for a GET
// request. Per spec.md §4.4 it may arrive either as a JSON body
// ({"causal-metadata": {...}}) or via the X-Causal-Metadata header,
// whichever a given client library prefers; an absent/empty value means
// "no known dependencies".
func (h *Handler) readRequestMetadata(c *gin.Context) (causal.Deps, bool) {
	if raw := c.GetHeader("X-Causal-Metadata"); raw != "" {
		var md causal.Deps
		if err := json.Unmarshal([]byte(raw), &md); err != nil {
			badRequest(c, "malformed X-Causal-Metadata header")
			return nil, false
		}
		if md == nil {
			md = causal.Deps{}
		}
		return md, true
	}

	if c.Request.ContentLength == 0 {
		return causal.Deps{}, true
	}

	var body causalMDBody
	if err := c.ShouldBindJSON(&body); err != nil {
		// A GET with no body at all is fine; anything present but
		// unparsable is a client error.
		badRequest(c, "malformed request body")
		return nil, false
	}
	if body.CausalMetadata == nil {
		return causal.Deps{}, true
	}
	return (*body.CausalMetadata).Copy(), true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
}

func notOnline(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "node is not part of an active view"})
}

func serviceUnavailable(c *gin.Context, msg string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg})
}
