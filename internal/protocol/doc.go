// Package protocol defines the wire vocabulary shared by callers, the host
// broker and extension processes.
//
// Correlation has no call IDs on the wire. Instead every call gets its own
// reply channel name, derived as:
//
//	replyChannelName = replyChannelId + "-" + event
//
// The outbound call carries that name inside its payload under the key
// "chanel"; the extension echoes the reply using the same string as the
// envelope's event, so the caller's subscription on that name matches:
//
//	caller -> extension:  {"event": "add", "data": {"chanel": "<id>-add", "data": {...}}}
//	extension -> host:    {"id": "...", "method": "app.broadcast", "accessToken": "...",
//	                       "data": {"event": "<id>-add", "data": 5}}
//	host -> caller:       {"event": "<id>-add", "data": 5}
package protocol
