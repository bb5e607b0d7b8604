// Package results provides the generic success/failure envelope returned by
// service operations. Business failures travel as Failure payloads rather
// than errors so handlers can publish them as events.
package results

// OperationResult carries either a success or a failure payload. Exactly one
// side is expected to be set by a completed operation; infrastructure errors
// are returned separately as Go errors.
type OperationResult[S any, F any] struct {
	Success *S
	Failure *F
}

func (r OperationResult[S, F]) IsSuccess() bool {
	return r.Success != nil
}

func (r OperationResult[S, F]) IsFailure() bool {
	return r.Failure != nil
}

// SuccessResult wraps a success payload.
func SuccessResult[S any, F any](payload S) OperationResult[S, F] {
	return OperationResult[S, F]{Success: &payload}
}

// FailureResult wraps a failure payload.
func FailureResult[S any, F any](payload F) OperationResult[S, F] {
	return OperationResult[S, F]{Failure: &payload}
}
