// Package asyncx tiene primitivas genéricas de concurrencia usadas por el
// resolver de sesiones y los health checks.
package asyncx

import (
	"context"
	"sync"
	"time"
)

// ─── Future ──────────────────────────────────────────────────────────────────

type result[T any] struct {
	value T
	err   error
}

// Future es un valor que estará disponible más tarde. Se crea con Run.
type Future[T any] struct {
	done chan struct{}
	res  result[T]
}

// Run ejecuta fn en una goroutine y devuelve su Future
func Run[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.res.value, f.res.err = fn()
	}()
	return f
}

// Await bloquea hasta que el Future termina. Puede llamarse muchas veces y
// desde varias goroutines.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.res.value, f.res.err
}

// AwaitContext es Await pero respeta la cancelación de ctx
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.res.value, f.res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ─── All ─────────────────────────────────────────────────────────────────────

// Result es el resultado de una operación asíncrona ya resuelta
type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) OK() bool { return r.Err == nil }

// AllSettled corre todas las fns y espera a cada una, sin cortar por error.
// Los resultados mantienen el orden de entrada.
func AllSettled[T any](ctx context.Context, fns ...func(context.Context) (T, error)) []Result[T] {
	results := make([]Result[T], len(fns))

	var wg sync.WaitGroup
	wg.Add(len(fns))
	for i, fn := range fns {
		go func() {
			defer wg.Done()
			v, err := fn(ctx)
			results[i] = Result[T]{Value: v, Err: err}
		}()
	}
	wg.Wait()

	return results
}

// ─── Timeout ─────────────────────────────────────────────────────────────────

// WithTimeout corre fn con un deadline d. Si fn no vuelve a tiempo devuelve
// context.DeadlineExceeded; fn recibe el ctx con deadline y debe respetarlo.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	ch := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
