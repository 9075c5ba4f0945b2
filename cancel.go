package dctdm

import "context"

// CancelToken is polled by the decoder between MCUs, the encoder between
// MCUs, and the DCTDM engine between AC-coefficient pairs (spec §5,
// "Cancellation"). A nil CancelToken is always treated as not cancelled.
type CancelToken interface {
	Cancelled() bool
}

// FromContext adapts a context.Context to a CancelToken, so callers already
// threading a context through their own request handling can pass it
// straight to Embed/Extract/Decode/Encode.
func FromContext(ctx context.Context) CancelToken {
	return ctxToken{ctx}
}

type ctxToken struct{ ctx context.Context }

func (t ctxToken) Cancelled() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

// checkCancel reports whether tok signals cancellation, returning a
// *Error(ErrCancelled) when it does and nil otherwise. tok may be nil.
func checkCancel(tok CancelToken) error {
	if tok == nil {
		return nil
	}
	if tok.Cancelled() {
		return plainErr(ErrCancelled, "operation cancelled")
	}
	return nil
}
