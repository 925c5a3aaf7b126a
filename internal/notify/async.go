package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Async ставит сообщения в очередь и отправляет их из своей горутины,
// чтобы медленный мессенджер не тормозил циклы раннеров.
// При переполненной очереди сообщение теряется с предупреждением в логе.
type Async struct {
	next  Notifier
	queue chan string
	done  chan struct{}
	log   *zap.Logger
}

func NewAsync(next Notifier, size int, log *zap.Logger) *Async {
	if size <= 0 {
		size = 1
	}
	return &Async{
		next:  next,
		queue: make(chan string, size),
		done:  make(chan struct{}),
		log:   log.Named("notify"),
	}
}

func (a *Async) Send(msg string) {
	select {
	case a.queue <- msg:
	default:
		a.log.Warn("notification queue is full, message dropped", zap.String("msg", msg))
	}
}

func (a *Async) Sendf(format string, args ...any) { a.Send(fmt.Sprintf(format, args...)) }

// Run разгребает очередь до отмены ctx, затем досылает то, что уже в очереди.
func (a *Async) Run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case msg := <-a.queue:
			a.next.Send(msg)
		case <-ctx.Done():
			for {
				select {
				case msg := <-a.queue:
					a.next.Send(msg)
				default:
					return
				}
			}
		}
	}
}

// Wait ждёт выхода Run или отмены ctx.
func (a *Async) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
