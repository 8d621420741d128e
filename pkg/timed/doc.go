// Package timed implements timed interactions: a two-phase handshake that
// binds a sensitive command to a deadline the responder has committed to
// before it learns which command will run.
//
// The initiator announces a timeout with a TimedRequest and waits for a
// successful StatusResponse:
//
//	w, err := guard.OpenWindow(ctx, exchangeID, 500)
//	if err != nil { ... }
//	if err := guard.AwaitAck(ctx, exchangeID); err != nil { ... }
//	// send the sensitive invoke on the same exchange
//
// The responder records a window when the TimedRequest arrives (Accept)
// and consumes it with CheckWindow when the invoke follows. A window is
// consumed exactly once; a second check fails. A window whose deadline
// passes unconsumed is marked expired by a timer and reports ErrExpired
// when checked.
//
// Windows carry a random generation id, so a timer belonging to an old
// window never touches a newer window on a reused exchange id.
package timed
