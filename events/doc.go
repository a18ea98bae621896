// Package events is the kernel's in-process event dispatcher.
//
// Listeners are attached to a topic with Listen, which returns an explicit
// Subscription the caller owns and may Unsubscribe. Dispatch is synchronous:
// every listener for the topic runs to completion before Dispatch returns,
// and a failing or panicking listener never prevents the others from running.
//
//	d := events.NewDispatcher()
//	sub := d.Listen(events.BlockApplied, func(ctx context.Context, ev events.Event) error {
//	    return reevaluate(ctx)
//	})
//	defer sub.Unsubscribe()
//	err := d.Dispatch(ctx, events.BlockApplied, block)
package events
