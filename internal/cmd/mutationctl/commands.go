package mutationctl

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	registryv1 "github.com/louisbranch/mutation-registry/api/registry/v1"
	"github.com/louisbranch/mutation-registry/internal/services/registry/auth"
)

func (c *cli) tokenCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token ACCOUNT_ID",
		Short: "Sign a caller token for ACCOUNT_ID",
		Long: `Sign an HS256 caller token with the registry HMAC key.

The key is read from --hmac-key or MUTATIONCTL_HMAC_KEY and must match the
server's MUTATION_REGISTRY_AUTH_HMAC_KEY.

Examples:
  export MUTATIONCTL_TOKEN=$(mutationctl token alice.near --ttl 1h)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := auth.DecodeKey(c.v.GetString(keyHMACKey))
			if err != nil {
				return err
			}
			cfg := auth.Config{
				Key:      key,
				Issuer:   c.v.GetString(keyIssuer),
				Audience: c.v.GetString(keyAudience),
				Now:      c.now,
			}
			token, err := auth.Issue(cfg, args[0], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	flags := cmd.Flags()
	flags.String(keyHMACKey, "", "hex HMAC signing key")
	flags.String(keyIssuer, "", "token issuer claim")
	flags.String(keyAudience, "", "token audience claim")
	flags.DurationVar(&ttl, "ttl", time.Hour, "token lifetime (0 for no expiry)")
	for _, key := range []string{keyHMACKey, keyIssuer, keyAudience} {
		_ = c.v.BindPFlag(key, flags.Lookup(key))
	}
	return cmd
}

func (c *cli) createCommand() *cobra.Command {
	var (
		authorID    string
		description string
		overrides   []string
	)
	cmd := &cobra.Command{
		Use:   "create MUTATION_ID",
		Short: "Create or overwrite a mutation of the caller",
		Long: `Create or overwrite a mutation owned by the token's account.

Examples:
  mutationctl create greet -d "say hi" -o hello=hi -o bye=later`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseOverrides(overrides)
			if err != nil {
				return err
			}
			req := &registryv1.CreateMutationRequest{
				AuthorID:    authorID,
				MutationID:  args[0],
				Description: description,
				Overrides:   parsed,
			}
			return c.call(cmd, func(ctx context.Context, client registryv1.MutationRegistryServiceClient) (any, error) {
				return client.CreateMutation(ctx, req)
			})
		},
	}
	cmd.Flags().StringVar(&authorID, "author", "", "expected author (must match the token)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "mutation description")
	cmd.Flags().StringArrayVarP(&overrides, "override", "o", nil, "override rule FROM=TO (repeatable)")
	return cmd
}

func (c *cli) updateCommand() *cobra.Command {
	var (
		authorID       string
		description    string
		overrides      []string
		clearOverrides bool
	)
	cmd := &cobra.Command{
		Use:   "update MUTATION_ID",
		Short: "Replace the given fields of a mutation of the caller",
		Long: `Replace the description and/or overrides of an existing mutation.
Fields that are not given keep their values. Updating a missing mutation
does nothing.

Examples:
  mutationctl update greet -d "say hello"
  mutationctl update greet --clear-overrides`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &registryv1.UpdateMutationRequest{AuthorID: authorID, MutationID: args[0]}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			hasOverrides := cmd.Flags().Changed("override")
			if hasOverrides && clearOverrides {
				return fmt.Errorf("--override and --clear-overrides are mutually exclusive")
			}
			if hasOverrides || clearOverrides {
				parsed, err := parseOverrides(overrides)
				if err != nil {
					return err
				}
				req.Overrides = &parsed
			}
			return c.call(cmd, func(ctx context.Context, client registryv1.MutationRegistryServiceClient) (any, error) {
				return client.UpdateMutation(ctx, req)
			})
		},
	}
	cmd.Flags().StringVar(&authorID, "author", "", "expected author (must match the token)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringArrayVarP(&overrides, "override", "o", nil, "override rule FROM=TO (repeatable)")
	cmd.Flags().BoolVar(&clearOverrides, "clear-overrides", false, "replace overrides with an empty list")
	return cmd
}

func (c *cli) copyCommand() *cobra.Command {
	var targetAuthorID string
	cmd := &cobra.Command{
		Use:   "copy SOURCE_AUTHOR SOURCE_MUTATION TARGET_MUTATION",
		Short: "Copy a mutation's overrides onto a mutation of the caller",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &registryv1.CopyOverridesRequest{
				SourceAuthorID:   args[0],
				SourceMutationID: args[1],
				TargetAuthorID:   targetAuthorID,
				TargetMutationID: args[2],
			}
			return c.call(cmd, func(ctx context.Context, client registryv1.MutationRegistryServiceClient) (any, error) {
				return client.CopyOverrides(ctx, req)
			})
		},
	}
	cmd.Flags().StringVar(&targetAuthorID, "target-author", "", "expected target author (must match the token)")
	return cmd
}

func (c *cli) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get AUTHOR_ID MUTATION_ID",
		Short: "Show one mutation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &registryv1.GetMutationRequest{AuthorID: args[0], MutationID: args[1]}
			return c.call(cmd, func(ctx context.Context, client registryv1.MutationRegistryServiceClient) (any, error) {
				return client.GetMutation(ctx, req)
			})
		},
	}
}

func (c *cli) listCommand() *cobra.Command {
	var (
		authorID string
		filter   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List mutations",
		Long: `List every mutation, or those of one author.

Examples:
  # Everything
  mutationctl list

  # One author
  mutationctl list --author alice.near

  # AIP-160 filter over author_id and mutation_id
  mutationctl list --filter 'author_id = "alice.near" OR mutation_id = "greet*"'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("author") {
				if filter != "" {
					return fmt.Errorf("--author and --filter are mutually exclusive")
				}
				req := &registryv1.GetMutationsByAuthorRequest{AuthorID: authorID}
				return c.call(cmd, func(ctx context.Context, client registryv1.MutationRegistryServiceClient) (any, error) {
					return client.GetMutationsByAuthor(ctx, req)
				})
			}
			req := &registryv1.GetAllMutationsRequest{Filter: filter}
			return c.call(cmd, func(ctx context.Context, client registryv1.MutationRegistryServiceClient) (any, error) {
				return client.GetAllMutations(ctx, req)
			})
		},
	}
	cmd.Flags().StringVarP(&authorID, "author", "a", "", "list only this author's mutations")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "AIP-160 filter expression")
	return cmd
}

func (c *cli) authorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "authors",
		Short: "List author namespaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.call(cmd, func(ctx context.Context, client registryv1.MutationRegistryServiceClient) (any, error) {
				return client.ListAuthors(ctx, &registryv1.ListAuthorsRequest{})
			})
		},
	}
}
