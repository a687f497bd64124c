package services

import "fmt"

// Degradation records why a pipeline step fell back to its empty stand-in.
type Degradation struct {
	Step string
	Err  error
}

func (d *Degradation) Error() string {
	return fmt.Sprintf("%s: %v", d.Step, d.Err)
}

func (d *Degradation) Unwrap() error {
	return d.Err
}

// Result holds either a computed value or the stand-in used after a failure.
// Value is always usable; Degraded is non-nil when it is a stand-in.
type Result[T any] struct {
	Value    T
	Degraded *Degradation
}

func Ok[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

func Degrade[T any](step string, err error, standIn T) Result[T] {
	return Result[T]{Value: standIn, Degraded: &Degradation{Step: step, Err: err}}
}

func (r Result[T]) OK() bool {
	return r.Degraded == nil
}
