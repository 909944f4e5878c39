package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mycelian/rinku/internal/app"
	"github.com/mycelian/rinku/internal/config"
	"github.com/mycelian/rinku/internal/logger"
	"github.com/mycelian/rinku/internal/types"
)

var (
	userFlag    string
	groupFlag   string
	backendFlag string
	debug       bool
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rinku",
		Short:         "Keep loved-one profiles and photos in sync with the backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = logger.NewConsole("rinku", debug)
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				_ = os.Setenv("RINKU_DEBUG", "true")
				log.Debug().Msg("debug logging enabled")
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", os.Getenv("RINKU_USER"), "Signed-in user id (empty works offline on the guest partition)")
	rootCmd.PersistentFlags().StringVarP(&groupFlag, "group", "g", "", "Group id attached to new records")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend-url", "", "Backend base URL (overrides RINKU_BACKEND_URL)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable verbose debug output")

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newEnrollCmd())
	rootCmd.AddCommand(newAddPhotoCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newStatusCmd())
	return rootCmd
}

// openApp loads the configuration, builds the app and signs in --user. When
// someone is signed in it waits for the startup pass so commands see the
// merged record set.
func openApp(ctx context.Context) (*app.App, error) {
	if backendFlag != "" {
		_ = os.Setenv("RINKU_BACKEND_URL", backendFlag)
	}
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, log.Logger)
	if err != nil {
		return nil, err
	}
	if groupFlag != "" {
		a.Group.Set(&groupFlag)
	}
	if userFlag != "" {
		a.Session.SignIn(types.Identity{ID: userFlag})
		if err := waitIdle(ctx, a, userFlag); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	return a, nil
}

func waitIdle(ctx context.Context, a *app.App, user string) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		st, err := a.Store.Status(ctx)
		if err != nil {
			return err
		}
		if st.UserID == user && !st.Syncing && !st.Pending {
			if st.LastError != nil {
				log.Warn().Err(st.LastError).Msg("sync failed, showing local records")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func withApp(cmd *cobra.Command, timeout time.Duration, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()
	return fn(ctx, a)
}
