// Package di provides the dependency container the kernel hands to
// service providers.
//
// The kernel binds its own collaborators under the keys in Kernel. Providers
// bind what they build during Register and resolve what they need in Boot.
//
// # Binding
//
//	err := c.Bind("cache.client", func(ctx context.Context, c di.Container) (any, error) {
//	    return cache.NewClient(), nil
//	})
//
// # Resolution
//
//	client, err := di.Resolve[*cache.Client](ctx, c, "cache.client")
package di
