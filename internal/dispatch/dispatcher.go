// Package dispatch последовательная обработка задач одного пользователя
// при параллельной обработке разных пользователей.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrClosed = errors.New("dispatcher is closed")

// Job одна единица работы; ctx отменяется при закрытии диспетчера
type Job func(ctx context.Context)

// Dispatcher держит по очереди FIFO на ключ. Для ключа с задачами работает
// ровно одна горутина; она завершается, когда очередь пуста.
type Dispatcher struct {
	mu     sync.Mutex
	queues map[string][]Job
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *logrus.Logger
}

func NewDispatcher(logger *logrus.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		queues: make(map[string][]Job),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Enqueue ставит задачу в очередь ключа и не ждет ее выполнения
func (d *Dispatcher) Enqueue(key string, job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	queue, active := d.queues[key]
	d.queues[key] = append(queue, job)
	if !active {
		d.wg.Add(1)
		go d.drain(key)
	}
	return nil
}

func (d *Dispatcher) drain(key string) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		queue := d.queues[key]
		if len(queue) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		job := queue[0]
		d.queues[key] = queue[1:]
		d.mu.Unlock()

		d.run(key, job)
	}
}

func (d *Dispatcher) run(key string, job Job) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithFields(logrus.Fields{
				"key":   key,
				"panic": r,
			}).Error("Паника при обработке задачи")
		}
	}()
	job(d.ctx)
}

// Active количество ключей, для которых сейчас работает горутина
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// Close перестает принимать задачи и ждет завершения уже принятых.
// Если ctx истекает раньше, контекст задач отменяется.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
