package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		run  Runner
		want int
	}{
		{name: "clean return", run: func(context.Context) error { return nil }, want: 0},
		{name: "failure", run: func(context.Context) error { return errors.New("listen: address in use") }, want: 1},
		{name: "cancelled", run: func(context.Context) error { return context.Canceled }, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Run(context.Background(), zerolog.Nop(), time.Second, tt.run))
		})
	}
}

func TestRun_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code := Run(ctx, zerolog.Nop(), time.Second, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.Equal(t, 0, code)
}

func TestRun_GraceExpires(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	block := make(chan struct{})
	defer close(block)

	code := Run(ctx, zerolog.Nop(), 10*time.Millisecond, func(context.Context) error {
		<-block
		return nil
	})
	assert.Equal(t, 1, code)
}
