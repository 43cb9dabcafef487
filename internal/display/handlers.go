package display

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/roach88/liftoff/internal/broadcast"
	"github.com/roach88/liftoff/internal/engine"
	"github.com/roach88/liftoff/internal/meet"
	"github.com/roach88/liftoff/internal/ordering"
	"github.com/roach88/liftoff/internal/protest"
)

// QueueView is the body of GET /queue.
type QueueView struct {
	Lift         meet.Lift        `json:"lift"`
	State        engine.State     `json:"state"`
	CurrentIndex int              `json:"current_index"`
	Entries      []ordering.Entry `json:"entries"`
}

type openRequest struct {
	CompetitionID string `json:"competition_id" binding:"required"`
}

type liftRequest struct {
	Lift meet.Lift `json:"lift" binding:"required"`
}

type declarationRequest struct {
	AthleteID     string    `json:"athlete_id" binding:"required"`
	Lift          meet.Lift `json:"lift" binding:"required"`
	AttemptNumber int       `json:"attempt_number"`
	WeightKg      float64   `json:"weight_kg"`
}

type resolveRequest struct {
	Decision meet.ProtestStatus `json:"decision" binding:"required"`
	Notes    string             `json:"notes"`
}

// do runs fn on the session loop with the request's context.
func (s *Server) do(c *gin.Context, fn func(ctx context.Context, sess *engine.Session) error) bool {
	if err := s.runner.Do(c.Request.Context(), fn); err != nil {
		abort(c, err)
		return false
	}
	return true
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: CodeBadRequest})
		return false
	}
	return true
}

// GET /state
func (s *Server) state(c *gin.Context) {
	var view engine.View
	ok := s.do(c, func(_ context.Context, sess *engine.Session) error {
		view = sess.Snapshot()
		return nil
	})
	if ok {
		c.JSON(http.StatusOK, view)
	}
}

// GET /queue
func (s *Server) queue(c *gin.Context) {
	var q QueueView
	ok := s.do(c, func(_ context.Context, sess *engine.Session) error {
		q = QueueView{Lift: sess.Lift(), State: sess.State(), CurrentIndex: sess.Index(), Entries: sess.Queue()}
		return nil
	})
	if ok {
		c.JSON(http.StatusOK, q)
	}
}

// GET /events/last/:type?n=1
func (s *Server) lastEvents(c *gin.Context) {
	t, ok := broadcast.ParseEventType(c.Param("type"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorBody{
			Error: "unknown event type " + strconv.Quote(c.Param("type")),
			Code:  CodeUnknownEventType,
		})
		return
	}
	n := 1
	if raw := c.Query("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: "n must be a positive integer", Code: CodeBadRequest})
			return
		}
		n = v
	}
	events := s.bus.Recent(t, n)
	if events == nil {
		events = []broadcast.Event{}
	}
	c.JSON(http.StatusOK, events)
}

// GET /events/since/:seq?limit=100
func (s *Server) eventsSince(c *gin.Context) {
	if s.outbox == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorBody{Error: "event replay is not configured", Code: CodeNotFound})
		return
	}
	seq, err := strconv.ParseInt(c.Param("seq"), 10, 64)
	if err != nil || seq < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: "seq must be a non-negative integer", Code: CodeBadRequest})
		return
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: "limit must be an integer", Code: CodeBadRequest})
			return
		}
	}
	events, err := s.outbox.EventsSince(c.Request.Context(), seq, limit)
	if err != nil {
		s.logger.Warn("outbox replay failed", "seq", seq, "error", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorBody{Error: err.Error(), Code: engine.CodePersistence, Retryable: true})
		return
	}
	c.JSON(http.StatusOK, events)
}

// POST /session/open
func (s *Server) open(c *gin.Context) {
	var req openRequest
	if !bind(c, &req) {
		return
	}
	s.command(c, func(ctx context.Context, sess *engine.Session) error {
		return sess.Open(ctx, req.CompetitionID)
	})
}

// simple adapts a session command without a body.
func (s *Server) simple(fn func(*engine.Session, context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.command(c, func(ctx context.Context, sess *engine.Session) error {
			return fn(sess, ctx)
		})
	}
}

// command runs fn and answers with the resulting queue.
func (s *Server) command(c *gin.Context, fn func(ctx context.Context, sess *engine.Session) error) {
	var q QueueView
	ok := s.do(c, func(ctx context.Context, sess *engine.Session) error {
		if err := fn(ctx, sess); err != nil {
			return err
		}
		q = QueueView{Lift: sess.Lift(), State: sess.State(), CurrentIndex: sess.Index(), Entries: sess.Queue()}
		return nil
	})
	if ok {
		c.JSON(http.StatusOK, q)
	}
}

// POST /session/lift
func (s *Server) changeLift(c *gin.Context) {
	var req liftRequest
	if !bind(c, &req) {
		return
	}
	s.command(c, func(ctx context.Context, sess *engine.Session) error {
		return sess.ChangeLift(ctx, req.Lift)
	})
}

// POST /session/judge
func (s *Server) judge(c *gin.Context) {
	var in engine.JudgeInput
	if !bind(c, &in) {
		return
	}
	var attempt meet.Attempt
	ok := s.do(c, func(ctx context.Context, sess *engine.Session) error {
		var err error
		attempt, err = sess.Judge(ctx, in)
		return err
	})
	if ok {
		c.JSON(http.StatusOK, attempt)
	}
}

// POST /declarations
func (s *Server) declare(c *gin.Context) {
	var req declarationRequest
	if !bind(c, &req) {
		return
	}
	var decl meet.Declaration
	ok := s.do(c, func(ctx context.Context, sess *engine.Session) error {
		var err error
		decl, err = sess.SetDeclaration(ctx, req.AthleteID, req.Lift, req.AttemptNumber, req.WeightKg)
		return err
	})
	if ok {
		c.JSON(http.StatusOK, decl)
	}
}

// POST /protests
func (s *Server) fileProtest(c *gin.Context) {
	var in protest.FileInput
	if !bind(c, &in) {
		return
	}
	var p meet.Protest
	ok := s.do(c, func(ctx context.Context, sess *engine.Session) error {
		var err error
		p, err = sess.FileProtest(ctx, in)
		return err
	})
	if ok {
		c.JSON(http.StatusCreated, p)
	}
}

// POST /protests/:id/resolve
func (s *Server) resolveProtest(c *gin.Context) {
	var req resolveRequest
	if !bind(c, &req) {
		return
	}
	id := c.Param("id")
	var p meet.Protest
	ok := s.do(c, func(ctx context.Context, sess *engine.Session) error {
		var err error
		p, err = sess.ResolveProtest(ctx, id, req.Decision, req.Notes)
		return err
	})
	if ok {
		c.JSON(http.StatusOK, p)
	}
}
