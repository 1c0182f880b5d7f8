package service

import (
	"sync/atomic"
	"time"
)

// Clock это часы симуляции, показывают время последней обработанной свечи.
// Их отдают сайзеру, чтобы дневные лимиты жили в симулированном времени.
// До первой свечи Now возвращает нулевое время.
type Clock struct {
	now atomic.Pointer[time.Time]
}

func NewClock() *Clock { return &Clock{} }

func (c *Clock) Set(t time.Time) {
	t = t.UTC()
	c.now.Store(&t)
}

func (c *Clock) Now() time.Time {
	if t := c.now.Load(); t != nil {
		return *t
	}
	return time.Time{}
}
