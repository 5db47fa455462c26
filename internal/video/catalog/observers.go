package catalog

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/romariotrain/visiguard/internal/video/models"
)

type observers struct {
	mu     sync.RWMutex
	next   int
	fns    map[int]func(models.Update)
	logger zerolog.Logger
}

func (o *observers) add(fn func(models.Update)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func(models.Update))
	}
	id := o.next
	o.next++
	o.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.fns, id)
		})
	}
}

// notify runs every observer on the caller's goroutine, outside any catalog lock.
func (o *observers) notify(u models.Update) {
	o.mu.RLock()
	fns := make([]func(models.Update), 0, len(o.fns))
	for _, fn := range o.fns {
		fns = append(fns, fn)
	}
	o.mu.RUnlock()

	for _, fn := range fns {
		o.call(fn, u)
	}
}

func (o *observers) call(fn func(models.Update), u models.Update) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Interface("panic", r).Str("video_id", u.VideoID).Msg("observer panicked")
		}
	}()
	fn(u)
}
