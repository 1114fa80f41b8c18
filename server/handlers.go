package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/gallery"
	"github.com/hupe1980/decalflow/schema"
)

type flowInfo struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Kind         string         `json:"kind"`
	InputSchema  map[string]any `json:"inputSchema"`
	OutputSchema map[string]any `json:"outputSchema"`
}

func (s *Server) listFlows(c *gin.Context) {
	defs := s.invoker.Registry().List()
	out := make([]flowInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, flowInfo{
			Name:         d.Name,
			Description:  d.Description,
			Kind:         string(d.Kind()),
			InputSchema:  schema.ToMap(d.Input),
			OutputSchema: schema.ToMap(d.Output),
		})
	}
	c.JSON(http.StatusOK, gin.H{"flows": out})
}

func (s *Server) invokeFlow(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		s.writeError(c, &core.InvalidInputError{Flow: c.Param("name"), Path: "$", Err: err})
		return
	}
	var input any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &input); err != nil {
			s.writeError(c, &core.InvalidInputError{Flow: c.Param("name"), Path: "$", Err: err})
			return
		}
	}

	out, err := s.invoker.Invoke(c.Request.Context(), c.Param("name"), input)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"output": out})
}

func (s *Server) listDesigns(c *gin.Context) {
	f := gallery.Filter{
		Tag:      c.Query("tag"),
		AuthorID: c.Query("author"),
	}
	switch status := c.DefaultQuery("status", string(gallery.StatusApproved)); status {
	case "all":
	default:
		st, err := gallery.ParseStatus(status)
		if err != nil {
			badRequest(c, err)
			return
		}
		f.Status = st
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			badRequest(c, errors.New("limit must be a non-negative integer"))
			return
		}
		f.Limit = limit
	}

	designs, err := s.gallery.List(c.Request.Context(), f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"designs": designs})
}

func (s *Server) getDesign(c *gin.Context) {
	d, err := s.gallery.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

type moderationRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (s *Server) moderateDesign(c *gin.Context) {
	var req moderationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st, err := gallery.ParseStatus(req.Status)
	if err != nil {
		badRequest(c, err)
		return
	}
	d, err := s.gallery.UpdateStatus(c.Request.Context(), c.Param("id"), st, req.Reason)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Info("gallery.design.moderated", "design_id", d.ID, "status", d.Status)
	c.JSON(http.StatusOK, d)
}

func (s *Server) getCart(c *gin.Context) {
	sess, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) addToCart(c *gin.Context) {
	var item core.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		badRequest(c, err)
		return
	}
	if item.DesignID == "" {
		badRequest(c, errors.New("designId is required"))
		return
	}
	if item.ImageURI == "" || item.Title == "" {
		if d, err := s.gallery.Get(c.Request.Context(), item.DesignID); err == nil {
			if item.ImageURI == "" {
				item.ImageURI = d.ImageURI
			}
			if item.Title == "" {
				item.Title = d.Title
			}
		} else if errors.Is(err, gallery.ErrNotFound) {
			s.writeError(c, err)
			return
		}
	}
	sess, err := s.sessions.AddItem(c.Request.Context(), c.Param("id"), item)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// removeFromCart drops ?designId= from the cart, or empties it.
func (s *Server) removeFromCart(c *gin.Context) {
	ctx := c.Request.Context()
	if designID := c.Query("designId"); designID != "" {
		sess, err := s.sessions.RemoveItem(ctx, c.Param("id"), designID)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sess)
		return
	}
	if err := s.sessions.Clear(ctx, c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
