package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"postboard/app/models"
)

var fixedNow = time.UnixMilli(1700000000000)

func freezeClock(t *testing.T) {
	t.Helper()
	orig := now
	now = func() time.Time { return fixedNow }
	t.Cleanup(func() { now = orig })
}

// recordingPublisher remembers every notification it receives
type recordingPublisher struct {
	mutex    sync.Mutex
	posts    []*models.Post
	comments []*models.Post
}

func (p *recordingPublisher) PostCreated(post *models.Post) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.posts = append(p.posts, post)
}

func (p *recordingPublisher) CommentCreated(post *models.Post) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.comments = append(p.comments, post)
}

func requireValidationError(t *testing.T, err error, message string) {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, message, verr.Message)
}
