package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dropDatabas3/meshconsole/internal/clock"
)

// ErrCanceled marca el resultado de una operación cuyo dueño ya la
// descartó. No es un error real: se filtra antes de cualquier manejo.
var ErrCanceled = errors.New("session: operation canceled")

func IsCanceled(err error) bool { return errors.Is(err, ErrCanceled) }

// Registry es el conjunto de operaciones en vuelo atadas a la vida de un
// dueño (el controller). La cancelación es lógica: la operación sigue
// corriendo pero su resultado se descarta.
type Registry struct {
	mu   sync.Mutex
	next uint64
	live map[uint64]*Handle
	wg   sync.WaitGroup
}

// Handle es una operación registrada.
type Handle struct {
	r        *Registry
	id       uint64
	canceled atomic.Bool

	mu    sync.Mutex
	timer clock.Timer
}

func NewRegistry() *Registry {
	return &Registry{live: map[uint64]*Handle{}}
}

func (r *Registry) add(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h.id = r.next
	r.live[h.id] = h
}

func (r *Registry) remove(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, h.id)
}

// Go corre fn en una goroutine y entrega su resultado a done. Si el handle
// fue cancelado antes de terminar, done recibe ErrCanceled en lugar del
// resultado real.
func (r *Registry) Go(ctx context.Context, fn func(ctx context.Context) error, done func(err error)) *Handle {
	h := &Handle{r: r}
	r.add(h)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.remove(h)
		err := fn(ctx)
		if h.Canceled() {
			err = ErrCanceled
		}
		if done != nil {
			done(err)
		}
	}()
	return h
}

// After programa f en clock. Cancelar el handle detiene el timer y, si ya
// estaba disparando, evita que f corra.
func (r *Registry) After(clk clock.Clock, d time.Duration, f func()) *Handle {
	h := &Handle{r: r}
	r.add(h)
	h.mu.Lock()
	h.timer = clk.AfterFunc(d, func() {
		defer r.remove(h)
		if h.Canceled() {
			return
		}
		f()
	})
	h.mu.Unlock()
	return h
}

// CancelAll cancela todo lo que está en vuelo. El registry sigue usable.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.live))
	for _, h := range r.live {
		handles = append(handles, h)
	}
	r.live = map[uint64]*Handle{}
	r.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
}

// Len cuenta las operaciones en vuelo.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Wait bloquea hasta que terminen todas las goroutines lanzadas con Go.
func (r *Registry) Wait() { r.wg.Wait() }

func (h *Handle) Canceled() bool { return h.canceled.Load() }

// Cancel cancela solo este handle.
func (h *Handle) Cancel() {
	h.cancel()
	h.r.remove(h)
}

func (h *Handle) cancel() {
	h.canceled.Store(true)
	h.mu.Lock()
	t := h.timer
	h.mu.Unlock()
	if t != nil {
		t.Stop()
	}
}
