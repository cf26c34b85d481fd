// Package registryv1 defines the registry.v1 wire messages and the gRPC
// service descriptor. Messages travel with the "json" content subtype.
package registryv1

// Override is one from/to substitution rule.
type Override struct {
	FromSrc string `json:"from_src"`
	ToSrc   string `json:"to_src"`
}

// Mutation is a description plus an ordered override list.
type Mutation struct {
	Description string     `json:"description"`
	Overrides   []Override `json:"overrides"`
}

// AuthoredMutation is one entry of GetAllMutations.
type AuthoredMutation struct {
	AuthorID   string   `json:"author_id"`
	MutationID string   `json:"mutation_id"`
	Mutation   Mutation `json:"mutation"`
}

// NamedMutation is one entry of GetMutationsByAuthor.
type NamedMutation struct {
	MutationID string   `json:"mutation_id"`
	Mutation   Mutation `json:"mutation"`
}

// CreateMutationRequest creates or overwrites a mutation of the caller.
// AuthorID is optional; when set it must name the caller.
type CreateMutationRequest struct {
	AuthorID    string     `json:"author_id,omitempty"`
	MutationID  string     `json:"mutation_id"`
	Description string     `json:"description"`
	Overrides   []Override `json:"overrides"`
}

type CreateMutationResponse struct {
	Created bool `json:"created"`
}

// UpdateMutationRequest replaces the fields that are present. An empty but
// present overrides list clears the stored list.
type UpdateMutationRequest struct {
	AuthorID    string      `json:"author_id,omitempty"`
	MutationID  string      `json:"mutation_id"`
	Description *string     `json:"description,omitempty"`
	Overrides   *[]Override `json:"overrides,omitempty"`
}

type UpdateMutationResponse struct{}

// CopyOverridesRequest copies the source override list onto a mutation of
// the caller. TargetAuthorID is optional; when set it must name the caller.
type CopyOverridesRequest struct {
	SourceAuthorID   string `json:"source_author_id"`
	SourceMutationID string `json:"source_mutation_id"`
	TargetAuthorID   string `json:"target_author_id,omitempty"`
	TargetMutationID string `json:"target_mutation_id"`
}

type CopyOverridesResponse struct{}

type GetMutationRequest struct {
	AuthorID   string `json:"author_id"`
	MutationID string `json:"mutation_id"`
}

// GetMutationResponse reports Found=false, with no mutation, for unknown
// keys.
type GetMutationResponse struct {
	Found    bool      `json:"found"`
	Mutation *Mutation `json:"mutation,omitempty"`
}

// GetAllMutationsRequest takes an optional AIP-160 filter over author_id and
// mutation_id.
type GetAllMutationsRequest struct {
	Filter string `json:"filter,omitempty"`
}

type GetAllMutationsResponse struct {
	Entries []AuthoredMutation `json:"entries"`
}

type GetMutationsByAuthorRequest struct {
	AuthorID string `json:"author_id"`
}

type GetMutationsByAuthorResponse struct {
	Entries []NamedMutation `json:"entries"`
}

type ListAuthorsRequest struct{}

type ListAuthorsResponse struct {
	AuthorIDs []string `json:"author_ids"`
}
