package display

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/roach88/liftoff/internal/broadcast"
)

// GET /events
//
// The subscription is registered before the snapshot is read so no event
// published in between is lost; events already sent as part of the
// snapshot are skipped when they arrive live.
func (s *Server) stream(c *gin.Context) {
	ch := make(chan broadcast.Event, s.streamBuffer)
	unsubscribe := s.bus.Subscribe(func(e broadcast.Event) {
		select {
		case ch <- e:
		default:
			s.logger.Warn("satellite stream lagging, event dropped", "seq", e.Seq, "type", e.Type)
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sent := make(map[int64]bool, 2)
	for _, e := range s.bus.Snapshot() {
		c.SSEvent(string(e.Type), e.ToWire())
		sent[e.Seq] = true
	}
	c.Writer.Flush()

	done := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-done:
			return false
		case e := <-ch:
			if sent[e.Seq] {
				delete(sent, e.Seq)
				return true
			}
			c.SSEvent(string(e.Type), e.ToWire())
			return true
		}
	})
}
