package handler

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin"

	"zenly/internal/model"
)

var errSinkClosed = errors.New("sse sink closed")

// sseSink 将有序事件流适配为 SSE 推送
// 终态事件（complete/error）发送后不再接受新事件
type sseSink struct {
	c *gin.Context

	mu     sync.Mutex
	closed bool
}

func newSSESink(c *gin.Context) *sseSink {
	return &sseSink{c: c}
}

// Send 推送单个事件并立即 flush
func (s *sseSink) Send(event model.StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errSinkClosed
	}

	// 客户端断开后写入无意义
	select {
	case <-s.c.Request.Context().Done():
		s.closed = true
		return errSinkClosed
	default:
	}

	s.c.SSEvent(event.Type.String(), event.Data)
	s.c.Writer.Flush()

	if event.Type.IsTerminal() {
		s.closed = true
	}
	return nil
}

// Closed 通道是否已终结（终态事件已发或客户端断开）
func (s *sseSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return true
	}
	select {
	case <-s.c.Request.Context().Done():
		s.closed = true
		return true
	default:
		return false
	}
}
