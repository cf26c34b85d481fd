// Package mutationctl implements a command-line client for the mutation
// registry service.
package mutationctl

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	registryv1 "github.com/louisbranch/mutation-registry/api/registry/v1"
	"github.com/louisbranch/mutation-registry/internal/platform/discovery"
	apperrors "github.com/louisbranch/mutation-registry/internal/platform/errors"
	platformgrpc "github.com/louisbranch/mutation-registry/internal/platform/grpc"
	"github.com/louisbranch/mutation-registry/internal/platform/timeouts"
	"github.com/louisbranch/mutation-registry/internal/services/registry/auth"
)

// EnvPrefix namespaces mutationctl environment variables.
const EnvPrefix = "MUTATIONCTL"

const (
	keyAddr     = "addr"
	keyToken    = "token"
	keyTimeout  = "timeout"
	keyLanguage = "lang"
	keyHMACKey  = "hmac-key"
	keyIssuer   = "issuer"
	keyAudience = "audience"
)

var jsonOut = jsoniter.ConfigCompatibleWithStandardLibrary

// Dialer opens a registry client for addr. The returned close func releases
// the connection.
type Dialer func(ctx context.Context, addr string, timeout time.Duration) (registryv1.MutationRegistryServiceClient, func() error, error)

// DialRegistry dials addr and waits for the server to report healthy.
func DialRegistry(ctx context.Context, addr string, timeout time.Duration) (registryv1.MutationRegistryServiceClient, func() error, error) {
	conn, err := platformgrpc.DialWithHealth(ctx, addr, timeout, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial registry at %s: %w", addr, err)
	}
	return registryv1.NewMutationRegistryServiceClient(conn), conn.Close, nil
}

type cli struct {
	v       *viper.Viper
	dial    Dialer
	cfgFile string
	now     func() time.Time
}

// NewRootCommand builds the mutationctl command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(DialRegistry, time.Now)
}

func newRootCommand(dial Dialer, now func() time.Time) *cobra.Command {
	c := &cli{v: viper.New(), dial: dial, now: now}

	root := &cobra.Command{
		Use:           "mutationctl",
		Short:         "Manage mutations in a mutation registry",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	flags.String(keyAddr, discovery.LocalGRPCAddr(discovery.ServiceRegistry), "registry gRPC address")
	flags.String(keyToken, "", "bearer token for write calls")
	flags.Duration(keyTimeout, timeouts.GRPCRequest, "dial and call timeout")
	flags.String(keyLanguage, "", "preferred language for error messages (e.g. pt-BR)")
	for _, key := range []string{keyAddr, keyToken, keyTimeout, keyLanguage} {
		_ = c.v.BindPFlag(key, flags.Lookup(key))
	}

	c.v.SetEnvPrefix(EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(
		c.tokenCommand(),
		c.createCommand(),
		c.updateCommand(),
		c.copyCommand(),
		c.getCommand(),
		c.listCommand(),
		c.authorsCommand(),
	)
	return root
}

func (c *cli) initConfig() error {
	if c.cfgFile == "" {
		return nil
	}
	c.v.SetConfigFile(c.cfgFile)
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", c.cfgFile, err)
	}
	return nil
}

// call dials the registry, prepares the outgoing context and runs fn.
func (c *cli) call(cmd *cobra.Command, fn func(context.Context, registryv1.MutationRegistryServiceClient) (any, error)) error {
	timeout := c.v.GetDuration(keyTimeout)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	client, closeConn, err := c.dial(ctx, c.v.GetString(keyAddr), timeout)
	if err != nil {
		return err
	}
	defer func() { _ = closeConn() }()

	ctx = auth.BearerContext(ctx, c.v.GetString(keyToken))
	if lang := strings.TrimSpace(c.v.GetString(keyLanguage)); lang != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, apperrors.AcceptLanguageHeader, lang)
	}

	resp, err := fn(ctx, client)
	if err != nil {
		return describeRPCError(err)
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}

func writeJSON(out io.Writer, value any) error {
	data, err := jsonOut.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// describeRPCError renders a status as "Code: message [REASON]", preferring
// the localized message from the status details.
func describeRPCError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	message := st.Message()
	reason := ""
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.LocalizedMessage:
			if d.GetMessage() != "" {
				message = d.GetMessage()
			}
		case *errdetails.ErrorInfo:
			reason = d.GetReason()
		}
	}
	if reason != "" {
		return fmt.Errorf("%s: %s [%s]", st.Code(), message, reason)
	}
	return fmt.Errorf("%s: %s", st.Code(), message)
}

// parseOverrides reads FROM=TO pairs. Only the first '=' separates.
func parseOverrides(values []string) ([]registryv1.Override, error) {
	overrides := make([]registryv1.Override, 0, len(values))
	for _, value := range values {
		from, to, ok := strings.Cut(value, "=")
		if !ok {
			return nil, fmt.Errorf("override %q must be FROM=TO", value)
		}
		overrides = append(overrides, registryv1.Override{FromSrc: from, ToSrc: to})
	}
	return overrides, nil
}
