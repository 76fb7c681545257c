// Package dispatch implements the caller side of extension dispatch.
//
// A Caller sends an event to a target extension and waits for the single
// reply correlated to that call. Correlation uses a reply channel name that
// is unique per call: the Caller subscribes on it before sending, and the
// extension publishes its reply using that name as the event.
//
// Every Call settles exactly once, on whichever comes first of the reply,
// the timeout, a send failure or caller context cancellation. Settlement
// stops the timer and removes the subscription; later attempts are no-ops.
//
// Example usage:
//
//	caller := dispatch.NewCaller(log, hub, &config.Options{})
//
//	reply, err := caller.Dispatch(ctx, "calc", "add", map[string]int{"a": 2, "b": 3})
//	if err != nil {
//	    return err
//	}
//
//	var sum int
//	err = reply.Decode(&sum)
package dispatch
