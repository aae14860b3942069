package flows

import "errors"

// Kind classifies a flow error.
type Kind uint8

const (
	// KindFatal aborts the operation.
	KindFatal Kind = iota
	// KindRecoverable was tolerated; the operation continued.
	KindRecoverable
)

func (k Kind) String() string {
	if k == KindRecoverable {
		return "recoverable"
	}
	return "fatal"
}

// FlowError tags an error with the step that produced it and whether the
// flow tolerated it. Error() is the wrapped error's text unchanged.
type FlowError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *FlowError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *FlowError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Fatal wraps err as a fatal error of op. An error that is already a
// *FlowError keeps its original op.
func Fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FlowError
	if errors.As(err, &fe) && fe.Kind == KindFatal {
		return err
	}
	return &FlowError{Kind: KindFatal, Op: op, Err: err}
}

// IsRecoverable reports whether err was tolerated by a flow.
func IsRecoverable(err error) bool {
	var fe *FlowError
	return errors.As(err, &fe) && fe.Kind == KindRecoverable
}

// OpOf returns the step name carried by err, or "".
func OpOf(err error) string {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Op
	}
	return ""
}

// Result is a flow's value together with the failures it tolerated on the way.
type Result[T any] struct {
	Value     T
	Recovered []error
}

func (r *Result[T]) tolerate(op string, err error) {
	if err == nil {
		return
	}
	r.Recovered = append(r.Recovered, &FlowError{Kind: KindRecoverable, Op: op, Err: err})
}
