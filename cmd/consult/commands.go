package main

import (
	"consult-chat/auth"
	"consult-chat/bootstrap"
	"consult-chat/client"
	"consult-chat/contract"
	"consult-chat/domain"
	"consult-chat/errors"
	"consult-chat/internal"
	"consult-chat/registry"
	"consult-chat/runtime"
	"consult-chat/sink"
	"consult-chat/transport"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// app holds what every subcommand shares once the config is loaded.
type app struct {
	in        io.Reader
	out       io.Writer
	config    internal.Config
	log       *slog.Logger
	token     string
	tokenFile string
	role      string
	noColour  bool
}

func newApp(in io.Reader, out io.Writer) *app {
	return &app{in: in, out: out}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "consult",
		Short: "Live pharmacy consultation chat",
		Long: `consult opens a live chat between a customer and a pharmacy staff member.
A consultation is either requested through the registry, joined by id, or
assigned by the broker over the wire.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.token, "token", "", "bearer token (default: $CONSULT_TOKEN)")
	root.PersistentFlags().StringVar(&a.tokenFile, "token-file", "", "file holding the bearer token (default: $CONSULT_TOKEN_FILE)")
	root.PersistentFlags().StringVar(&a.role, "role", "", "customer or staff (default: read from the token)")
	root.PersistentFlags().BoolVar(&a.noColour, "no-colour", false, "disable coloured output")

	root.AddCommand(requestCommand(a), joinCommand(a), roomCommand(a))
	return root
}

func requestFlags(cmd *cobra.Command, request *domain.ConsultationRequest, branch *int64) {
	cmd.Flags().StringVar(&request.RequestType, "type", "GENERAL", "consultation type")
	cmd.Flags().StringVarP(&request.Message, "message", "m", "", "first question for the pharmacist")
	cmd.Flags().Int64Var(branch, "branch", 0, "pharmacy branch id")
	_ = cmd.MarkFlagRequired("message")
}

func requestCommand(a *app) *cobra.Command {
	var request domain.ConsultationRequest
	var branch int64
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Request a consultation through the registry and open the chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			request.BranchID = branchPtr(branch)
			registryClient := registry.NewClient(a.log, a.config.RegistryURL, a.credentials())
			return a.chat(cmd.Context(), bootstrap.NewRegistryBootstrap(a.log, registryClient, request))
		},
	}
	requestFlags(cmd, &request, &branch)
	return cmd
}

func joinCommand(a *app) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a consultation by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.chat(cmd.Context(), bootstrap.Static(id))
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "consultation id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func roomCommand(a *app) *cobra.Command {
	var request domain.ConsultationRequest
	var branch int64
	cmd := &cobra.Command{
		Use:        "room",
		Short:      "Let the broker assign a consultation room",
		Deprecated: "use \"request\" instead",
		RunE: func(cmd *cobra.Command, args []string) error {
			request.BranchID = branchPtr(branch)
			room := bootstrap.NewRoomBootstrap(a.log, a.dialer(), a.credentials(), request).
				WithTimeout(a.config.RoomTimeout)
			return a.chat(cmd.Context(), room)
		},
	}
	requestFlags(cmd, &request, &branch)
	return cmd
}

func branchPtr(branch int64) *int64 {
	if branch == 0 {
		return nil
	}
	return lo.ToPtr(branch)
}

func (a *app) load() error {
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	a.config = config
	a.log = logs.GetLoggerFromString(config.LogLevel)
	return nil
}

func (a *app) credentials() contract.CredentialSource {
	return auth.Chain{
		auth.NewStaticSource(lo.Ternary(a.token != "", a.token, a.config.Token)),
		auth.NewFileSource(lo.Ternary(a.tokenFile != "", a.tokenFile, a.config.TokenFile)),
	}
}

func (a *app) dialer() contract.Dialer {
	return transport.NewWebSocketDialer(a.log, transport.Config{
		URL:          a.config.WebSocketURL,
		WriteTimeout: a.config.WriteTimeout,
	})
}

func (a *app) resolveRole(token string) (domain.Role, error) {
	if strings.TrimSpace(a.role) == "" {
		return auth.RoleFromToken(token, a.config.StaffRoleList()), nil
	}
	role, err := domain.ParseRole(a.role)
	if err != nil {
		return role, fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	return role, nil
}

// chat obtains the consultation id, then runs the chat panel until the
// user quits.
func (a *app) chat(ctx context.Context, bootstrapper contract.Bootstrapper) error {
	token, err := a.credentials().Credential(ctx)
	if err != nil {
		return err
	}
	role, err := a.resolveRole(token)
	if err != nil {
		return err
	}
	id, err := bootstrapper.Consultation(ctx)
	if err != nil {
		return err
	}

	session := runtime.NewSession(a.log, domain.Consultation{ID: id, Role: role, Credential: token}, a.dialer(), runtime.SessionConfig{
		ReconnectInterval:    a.config.ReconnectInterval,
		MaxReconnectInterval: a.config.MaxReconnectInterval,
		ConnectTimeout:       a.config.ConnectTimeout,
		SendBufferSize:       a.config.SendBufferSize,
		StaffGreeting:        lo.Ternary(a.config.StaffGreeting != "", a.config.StaffGreeting, runtime.DefaultSessionConfig().StaffGreeting),
	})
	a.log.Info("Opening chat", "consultation", id.String(), "role", role.String(), "user", auth.DisplayName(token))

	return client.NewChat(a.log, session, a.in, a.out).
		WithColours(!a.noColour).
		WithLargeAttachment(a.config.LargeAttachmentBytes).
		WithSinks(sink.NewLogSink(a.log)).
		Run(ctx)
}
