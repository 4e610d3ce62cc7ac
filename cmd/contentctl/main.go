package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/content-dashboard/internal/app"
	"github.com/content-dashboard/internal/client"
	"github.com/content-dashboard/internal/config"
	"github.com/content-dashboard/internal/models"
	"github.com/content-dashboard/internal/validation"
	"github.com/content-dashboard/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	token      string
	role       string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "contentctl",
	Short: "Manage content in the content dashboard from the command line",
	Long: `contentctl drives the content dashboard services directly: list a
subcategory, change statuses, create, edit and delete content.

The content API address and token come from the same environment variables,
.env file and DASHBOARD_CONFIG overlay the server reads.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token for the content API (or set CONTENT_API_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&role, "role", string(models.RoleEditor), "Dashboard role: admin, editor or viewer")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newStatusesCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newCategoriesCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

// runWithApp builds the application for one command and tears it down after
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application, session models.Session) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), level, cfg.Log.Format)

	session, err := buildSession(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a, session)
}

func buildSession(cfg *config.Config) (models.Session, error) {
	r := models.Role(strings.ToLower(role))
	if !models.ValidRoles[r] {
		return models.Session{}, fmt.Errorf("--role must be one of: admin, editor, viewer")
	}
	t := token
	if t == "" {
		t = cfg.ContentAPI.Token
	}
	return models.Session{Token: t, Role: r}, nil
}

// describeError renders errors the way the dashboard would show them
func describeError(err error) string {
	var formErr *validation.FormError
	if errors.As(err, &formErr) {
		var b strings.Builder
		b.WriteString("Validation failed:")
		for _, fe := range formErr.Errors {
			fmt.Fprintf(&b, "\n  %s: %s", fe.Field, fe.Message)
		}
		return b.String()
	}

	var appErr *client.ApplicationError
	var transportErr *client.TransportError
	if errors.As(err, &appErr) || errors.As(err, &transportErr) {
		return "Error: " + client.UserMessage(err, "Something went wrong")
	}
	return "Error: " + err.Error()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
