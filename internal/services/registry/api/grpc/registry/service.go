package registry

import (
	"context"

	registryv1 "github.com/louisbranch/mutation-registry/api/registry/v1"
	apperrors "github.com/louisbranch/mutation-registry/internal/platform/errors"
	"github.com/louisbranch/mutation-registry/internal/services/registry/domain"
	"github.com/louisbranch/mutation-registry/internal/services/registry/storage"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Service exposes registry.v1 gRPC operations.
type Service struct {
	registryv1.UnimplementedMutationRegistryServiceServer
	registry *domain.Registry
}

// NewService creates a registry service backed by the domain registry.
func NewService(registry *domain.Registry) *Service {
	return &Service{registry: registry}
}

func (s *Service) configured() error {
	if s == nil || s.registry == nil {
		return status.Error(codes.Internal, "mutation registry is not configured")
	}
	return nil
}

func handleError(ctx context.Context, err error) error {
	return apperrors.HandleError(err, apperrors.LocaleFromContext(ctx))
}

// CreateMutation creates or overwrites one mutation of the caller.
func (s *Service) CreateMutation(ctx context.Context, in *registryv1.CreateMutationRequest) (*registryv1.CreateMutationResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "create mutation request is required")
	}
	if err := s.configured(); err != nil {
		return nil, err
	}
	if err := domain.RequireAuthor(ctx, in.AuthorID); err != nil {
		return nil, handleError(ctx, err)
	}

	mutation := storage.Mutation{
		Description: in.Description,
		Overrides:   overridesFromProto(in.Overrides),
	}
	if err := s.registry.CreateMutation(ctx, in.MutationID, mutation); err != nil {
		return nil, handleError(ctx, err)
	}
	return &registryv1.CreateMutationResponse{Created: true}, nil
}

// UpdateMutation replaces the present fields of one mutation of the caller.
func (s *Service) UpdateMutation(ctx context.Context, in *registryv1.UpdateMutationRequest) (*registryv1.UpdateMutationResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "update mutation request is required")
	}
	if err := s.configured(); err != nil {
		return nil, err
	}
	if err := domain.RequireAuthor(ctx, in.AuthorID); err != nil {
		return nil, handleError(ctx, err)
	}

	patch := storage.MutationPatch{Description: in.Description}
	if in.Overrides != nil {
		overrides := overridesFromProto(*in.Overrides)
		patch.Overrides = &overrides
	}
	if err := s.registry.UpdateMutation(ctx, in.MutationID, patch); err != nil {
		return nil, handleError(ctx, err)
	}
	return &registryv1.UpdateMutationResponse{}, nil
}

// CopyOverrides copies a source override list onto a mutation of the caller.
func (s *Service) CopyOverrides(ctx context.Context, in *registryv1.CopyOverridesRequest) (*registryv1.CopyOverridesResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "copy overrides request is required")
	}
	if err := s.configured(); err != nil {
		return nil, err
	}
	if err := domain.RequireAuthor(ctx, in.TargetAuthorID); err != nil {
		return nil, handleError(ctx, err)
	}

	source := storage.MutationKey{AuthorID: in.SourceAuthorID, MutationID: in.SourceMutationID}
	if err := s.registry.CopyOverrides(ctx, source, in.TargetMutationID); err != nil {
		return nil, handleError(ctx, err)
	}
	return &registryv1.CopyOverridesResponse{}, nil
}

// GetMutation returns one mutation, or Found=false.
func (s *Service) GetMutation(ctx context.Context, in *registryv1.GetMutationRequest) (*registryv1.GetMutationResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "get mutation request is required")
	}
	if err := s.configured(); err != nil {
		return nil, err
	}

	mutation, found, err := s.registry.GetMutation(ctx, storage.MutationKey{AuthorID: in.AuthorID, MutationID: in.MutationID})
	if err != nil {
		return nil, handleError(ctx, err)
	}
	if !found {
		return &registryv1.GetMutationResponse{Found: false}, nil
	}
	out := mutationToProto(mutation)
	return &registryv1.GetMutationResponse{Found: true, Mutation: &out}, nil
}

// GetAllMutations returns every mutation matching the optional filter.
func (s *Service) GetAllMutations(ctx context.Context, in *registryv1.GetAllMutationsRequest) (*registryv1.GetAllMutationsResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "get all mutations request is required")
	}
	if err := s.configured(); err != nil {
		return nil, err
	}

	entries, err := s.registry.GetAllMutations(ctx, in.Filter)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	resp := &registryv1.GetAllMutationsResponse{Entries: make([]registryv1.AuthoredMutation, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, registryv1.AuthoredMutation{
			AuthorID:   entry.AuthorID,
			MutationID: entry.MutationID,
			Mutation:   mutationToProto(entry.Mutation),
		})
	}
	return resp, nil
}

// GetMutationsByAuthor returns one author's mutations.
func (s *Service) GetMutationsByAuthor(ctx context.Context, in *registryv1.GetMutationsByAuthorRequest) (*registryv1.GetMutationsByAuthorResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "get mutations by author request is required")
	}
	if err := s.configured(); err != nil {
		return nil, err
	}

	entries, err := s.registry.GetMutationsByAuthor(ctx, in.AuthorID)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	resp := &registryv1.GetMutationsByAuthorResponse{Entries: make([]registryv1.NamedMutation, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, registryv1.NamedMutation{
			MutationID: entry.MutationID,
			Mutation:   mutationToProto(entry.Mutation),
		})
	}
	return resp, nil
}

// ListAuthors returns every author namespace.
func (s *Service) ListAuthors(ctx context.Context, in *registryv1.ListAuthorsRequest) (*registryv1.ListAuthorsResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "list authors request is required")
	}
	if err := s.configured(); err != nil {
		return nil, err
	}

	authors, err := s.registry.ListAuthors(ctx)
	if err != nil {
		return nil, handleError(ctx, err)
	}
	return &registryv1.ListAuthorsResponse{AuthorIDs: authors}, nil
}

func overridesFromProto(in []registryv1.Override) []storage.Override {
	out := make([]storage.Override, 0, len(in))
	for _, o := range in {
		out = append(out, storage.Override{FromSrc: o.FromSrc, ToSrc: o.ToSrc})
	}
	return out
}

func mutationToProto(m storage.Mutation) registryv1.Mutation {
	out := registryv1.Mutation{
		Description: m.Description,
		Overrides:   make([]registryv1.Override, 0, len(m.Overrides)),
	}
	for _, o := range m.Overrides {
		out.Overrides = append(out.Overrides, registryv1.Override{FromSrc: o.FromSrc, ToSrc: o.ToSrc})
	}
	return out
}
