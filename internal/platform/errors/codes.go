// Package errors provides structured domain errors that map onto gRPC
// status codes with localized user messages.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Identity errors
	CodeCallerUnauthenticated Code = "CALLER_UNAUTHENTICATED"
	CodeTokenInvalid          Code = "TOKEN_INVALID"
	CodePermissionDenied      Code = "PERMISSION_DENIED"

	// Mutation errors
	CodeSourceMutationNotFound Code = "SOURCE_MUTATION_NOT_FOUND"
	CodeTargetMutationNotFound Code = "TARGET_MUTATION_NOT_FOUND"

	// Query errors
	CodeFilterInvalid Code = "FILTER_INVALID"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeFilterInvalid:
		return codes.InvalidArgument

	case CodeCallerUnauthenticated,
		CodeTokenInvalid:
		return codes.Unauthenticated

	case CodePermissionDenied:
		return codes.PermissionDenied

	case CodeSourceMutationNotFound,
		CodeTargetMutationNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
