package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botloom/botloom/internal/engine"
	"github.com/botloom/botloom/internal/flow"
	"github.com/botloom/botloom/internal/store"
)

// actorHeader carries the acting user's id on write requests.
const actorHeader = "X-Actor"

func (s *Server) actor(c *gin.Context) (flow.Actor, bool) {
	id := c.GetHeader(actorHeader)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": actorHeader + " header is required"})
		return flow.Actor{}, false
	}
	return flow.Actor{ID: id}, true
}

// renderError maps the error taxonomy onto HTTP status codes.
// Reference conflicts carry the blocking set so clients can offer the
// cascade option with full context.
func (s *Server) renderError(c *gin.Context, err error) {
	var refConflict *flow.ReferenceConflictError
	if errors.As(err, &refConflict) {
		c.JSON(http.StatusConflict, gin.H{
			"error":         refConflict.Error(),
			"blocking_refs": refConflict.Refs,
			"target_id":     refConflict.TargetID,
		})
		return
	}
	var conflict *flow.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{
			"error":    conflict.Error(),
			"expected": conflict.Expected,
			"actual":   conflict.Actual,
		})
		return
	}
	switch {
	case flow.IsValidation(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case flow.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type createRequest struct {
	WorkspaceID string       `json:"workspace_id"`
	ParentID    string       `json:"parent_id"`
	Name        string       `json:"name"`
	Content     flow.Content `json:"content"`
}

func (s *Server) createInteraction(c *gin.Context) {
	actor, ok := s.actor(c)
	if !ok {
		return
	}
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := s.svc.Create(c.Request.Context(), engine.CreateParams{
		BotID:       c.Param("botId"),
		WorkspaceID: req.WorkspaceID,
		ParentID:    req.ParentID,
		Name:        req.Name,
		Content:     req.Content,
	}, actor)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) listInteractions(c *gin.Context) {
	filter := store.Filter{
		NameContains:   c.Query("name"),
		State:          flow.State(c.Query("state")),
		IncludeDeleted: c.Query("deleted") == "true",
	}
	items, err := s.svc.List(c.Request.Context(), c.Param("botId"), filter)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) getInteraction(c *gin.Context) {
	rec, err := s.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type updateRequest struct {
	Content         flow.Content `json:"content"`
	ExpectedVersion int64        `json:"expected_version"`
}

func (s *Server) updateInteraction(c *gin.Context) {
	actor, ok := s.actor(c)
	if !ok {
		return
	}
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := s.svc.Update(c.Request.Context(), c.Param("id"), req.Content, req.ExpectedVersion, actor)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteInteraction(c *gin.Context) {
	actor, ok := s.actor(c)
	if !ok {
		return
	}
	cascade := c.Query("cascade") == "true"

	res, err := s.svc.Delete(c.Request.Context(), c.Param("id"), cascade, actor)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type publishRequest struct {
	ExpectedVersion int64 `json:"expected_version"`
}

func (s *Server) publishInteraction(c *gin.Context) {
	actor, ok := s.actor(c)
	if !ok {
		return
	}
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := s.svc.Publish(c.Request.Context(), c.Param("id"), req.ExpectedVersion, actor)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) inboundRefs(c *gin.Context) {
	refs, err := s.svc.Inbound(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, refs)
}

func (s *Server) interactionPath(c *gin.Context) {
	path, err := s.svc.Path(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, path)
}

func (s *Server) interactionHistory(c *gin.Context) {
	revs, err := s.svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, revs)
}

type commentRequest struct {
	Body string `json:"body"`
}

func (s *Server) addComment(c *gin.Context) {
	actor, ok := s.actor(c)
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := s.svc.AddComment(c.Request.Context(), c.Param("id"), req.Body, actor)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) listComments(c *gin.Context) {
	comments, err := s.svc.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (s *Server) pendingPublication(c *gin.Context) {
	pending, err := s.svc.PendingPublication(c.Request.Context(), c.Param("botId"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

func (s *Server) publishErrors(c *gin.Context) {
	issues, err := s.svc.PublishErrors(c.Request.Context(), c.Param("botId"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"issues": issues,
		"clean":  len(issues) == 0,
	})
}

func (s *Server) pendingSummary(c *gin.Context) {
	summary, err := s.svc.PendingSummary(c.Request.Context(), c.Param("workspaceId"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
