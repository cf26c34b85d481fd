package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeCallerUnauthenticated  = "CALLER_UNAUTHENTICATED"
	CodeTokenInvalid           = "TOKEN_INVALID"
	CodePermissionDenied       = "PERMISSION_DENIED"
	CodeSourceMutationNotFound = "SOURCE_MUTATION_NOT_FOUND"
	CodeTargetMutationNotFound = "TARGET_MUTATION_NOT_FOUND"
	CodeFilterInvalid          = "FILTER_INVALID"
)

var enUSMessages = map[Code]string{
	CodeCallerUnauthenticated:  "Sign in to change mutations.",
	CodeTokenInvalid:           "Your access token is invalid or expired.",
	CodePermissionDenied:       "Mutations: permission denied.",
	CodeSourceMutationNotFound: "Source mutation {{.MutationID}} by {{.AuthorID}} was not found.",
	CodeTargetMutationNotFound: "Target mutation {{.MutationID}} by {{.AuthorID}} was not found.",
	CodeFilterInvalid:          "The filter expression is invalid: {{.Reason}}",
}
