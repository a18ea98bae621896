package di

import (
	"context"
	"fmt"
)

// Resolve resolves a binding with type safety.
//
// Example:
//
//	repo, err := di.Resolve[*config.Repository](ctx, c, di.Kernel.Config)
//	if err != nil {
//	    return err
//	}
func Resolve[T any](ctx context.Context, c Container, key string) (T, error) {
	var zero T
	instance, err := c.Resolve(ctx, key)
	if err != nil {
		return zero, err
	}
	result, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("di: %s is %T, expected %T", key, instance, zero)
	}
	return result, nil
}

// MustResolve is Resolve that panics on failure. Use it only for bindings
// the kernel itself guarantees.
func MustResolve[T any](ctx context.Context, c Container, key string) T {
	result, err := Resolve[T](ctx, c, key)
	if err != nil {
		panic(err.Error())
	}
	return result
}
