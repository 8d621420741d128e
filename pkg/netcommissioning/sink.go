package netcommissioning

import (
	"sync"
)

// ResponseSink receives the single response of a command.
type ResponseSink interface {
	Respond(resp Response) error
}

// SinkFunc adapts a function to ResponseSink.
type SinkFunc func(resp Response) error

// Respond calls f.
func (f SinkFunc) Respond(resp Response) error { return f(resp) }

// Continuation is a caller's pending completion for one request.
type Continuation struct {
	OnSuccess func(Response)
	OnFailure func(error)
}

// Resolver hands out the continuation registered for (peer, sequence).
// Resolving removes the entry.
type Resolver interface {
	Resolve(peer uint64, sequence uint32) (Continuation, error)
}

// CorrelatedSink delivers a response to whatever continuation is
// registered for (peer, sequence) at the time of responding. A success
// status goes to OnSuccess; anything else goes to OnFailure as a
// *StatusError.
func CorrelatedSink(r Resolver, peer uint64, sequence uint32) ResponseSink {
	return SinkFunc(func(resp Response) error {
		cont, err := r.Resolve(peer, sequence)
		if err != nil {
			return err
		}
		if resp.Status.IsSuccess() || cont.OnFailure == nil {
			if cont.OnSuccess != nil {
				cont.OnSuccess(resp)
			}
			return nil
		}
		cont.OnFailure(&StatusError{Response: resp})
		return nil
	})
}

// replier guarantees exactly one response per command.
type replier struct {
	once sync.Once
	sink ResponseSink
	sent bool
	err  error
}

func newReplier(sink ResponseSink) *replier {
	return &replier{sink: sink}
}

func (r *replier) reply(resp Response) error {
	delivered := false
	r.once.Do(func() {
		delivered = true
		r.sent = true
		if r.sink != nil {
			r.err = r.sink.Respond(resp)
		}
	})
	if !delivered {
		return ErrAlreadyResponded
	}
	return r.err
}

// fallback answers UnknownError if no reply was sent.
func (r *replier) fallback() {
	if !r.sent {
		_ = r.reply(Response{Status: StatusUnknownError})
	}
}
