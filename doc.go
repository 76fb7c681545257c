// Package ipc dispatches events from a host to extension processes over a
// shared WebSocket broker and correlates each reply with its caller.
//
// # Calling an extension
//
// A caller sends an event to a target extension and waits for one reply on a
// private reply channel. The call fails fast when the target is not
// connected and times out after 2000ms by default:
//
//	reply, err := ipc.Dispatch(ctx, hub, "calc", "add", map[string]int{"a": 2, "b": 3})
//	if err != nil {
//	    return err
//	}
//
//	var sum int
//	if err := reply.Decode(&sum); err != nil {
//	    return err
//	}
//
// NewDispatcher binds the target once:
//
//	calc := ipc.NewDispatcher(hub, "calc", ipc.WithTimeout(5*time.Second))
//	reply, err := calc(ctx, "add", map[string]int{"a": 2, "b": 3})
//
// # Writing an extension
//
// An extension process reads its bootstrap record from stdin, dials the
// host and routes inbound events to handlers. Serve blocks until the
// connection closes, then exits the process:
//
//	func main() {
//	    err := ipc.Serve(context.Background(), []ipc.Route{
//	        ipc.Handle("add", func(ctx context.Context, req *ipc.Request, res *ipc.Response) {
//	            var args struct{ A, B int }
//	            if err := req.Decode(&args); err != nil {
//	                return
//	            }
//
//	            _ = res.Send(ctx, args.A+args.B)
//	        }),
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Hosting extensions
//
// StartHost and WithHost run the broker, launch the extensions listed in a
// Manifest and expose a Dispatch bound to them.
//
// # Error Handling
//
// Rejections before any send are ExtensionStateError values matching
// ErrLoadedNotConnected or ErrNotLoadedNotConnected. Timeouts match
// ErrDispatchTimeout. Extension startup failures are ConstructionError.
package ipc
