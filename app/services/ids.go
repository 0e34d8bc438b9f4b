package services

import (
	"strconv"
	"sync"
	"time"

	"postboard/app/models"
)

// IDGenerator derives post ids from the millisecond clock. Ids never repeat
// within a process and never collide with an id already in the collection:
// when the clock has not moved on, the next free millisecond is used.
type IDGenerator struct {
	mutex sync.Mutex
	last  int64
}

func (g *IDGenerator) Next(now time.Time, existing []*models.Post) models.PostID {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	candidate := now.UnixMilli()
	if candidate <= g.last {
		candidate = g.last + 1
	}

	taken := make(map[models.PostID]struct{}, len(existing))
	for _, p := range existing {
		taken[p.ID] = struct{}{}
	}
	for {
		if _, ok := taken[models.PostID(strconv.FormatInt(candidate, 10))]; !ok {
			break
		}
		candidate++
	}

	g.last = candidate
	return models.PostID(strconv.FormatInt(candidate, 10))
}
