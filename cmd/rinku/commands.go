package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mycelian/rinku/internal/app"
	"github.com/mycelian/rinku/internal/types"
)

const opTimeout = 2 * time.Minute

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a full reconciliation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user is required for sync")
			}
			return withApp(cmd, opTimeout, func(ctx context.Context, a *app.App) error {
				start := time.Now()
				if err := a.Store.Resync(ctx); err != nil {
					return err
				}
				st, err := a.Store.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d loved ones in %s\n", st.Records, time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loved ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opTimeout, func(ctx context.Context, a *app.App) error {
				recs, err := a.Store.List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tRELATIONSHIP\tENROLLED\tPHOTOS")
				for _, r := range recs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\n", r.ID, r.FullName, r.Relationship, r.Enrolled, len(r.PhotoFileNames))
				}
				return tw.Flush()
			})
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one loved one as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opTimeout, func(ctx context.Context, a *app.App) error {
				rec, found, err := a.Store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("loved one %s not found", args[0])
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			})
		},
	}
}

type recordFlags struct {
	id, name, familiar, relationship, prompt string
}

func (f *recordFlags) register(cmd *cobra.Command, withID bool) {
	if withID {
		cmd.Flags().StringVar(&f.id, "id", "", "Record id (generated when empty)")
	}
	cmd.Flags().StringVar(&f.name, "name", "", "Full name")
	cmd.Flags().StringVar(&f.familiar, "familiar-name", "", "Familiar name")
	cmd.Flags().StringVar(&f.relationship, "relationship", "", "Relationship to the user")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "Memory prompt")
}

// apply copies the flags that were set onto rec.
func (f *recordFlags) apply(cmd *cobra.Command, rec *types.LovedOne) {
	if cmd.Flags().Changed("name") {
		rec.FullName = f.name
	}
	if cmd.Flags().Changed("familiar-name") {
		rec.FamiliarName = types.OptionalString(f.familiar)
	}
	if cmd.Flags().Changed("relationship") {
		rec.Relationship = f.relationship
	}
	if cmd.Flags().Changed("prompt") {
		rec.MemoryPrompt = types.OptionalString(f.prompt)
	}
}

func newAddCmd() *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a loved one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opTimeout, func(ctx context.Context, a *app.App) error {
				in := types.LovedOne{ID: f.id}
				f.apply(cmd, &in)
				rec, err := a.Store.Create(ctx, in)
				if err != nil {
					return err
				}
				if err := a.Store.AwaitPush(ctx, rec.ID); err != nil {
					return err
				}
				log.Debug().Str("id", rec.ID).Msg("create pushed")
				fmt.Fprintf(cmd.OutOrStdout(), "Loved one created: %s - %s\n", rec.ID, rec.FullName)
				return nil
			})
		},
	}
	f.register(cmd, true)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("relationship")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a loved one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opTimeout, func(ctx context.Context, a *app.App) error {
				rec, found, err := a.Store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("loved one %s not found", args[0])
				}
				f.apply(cmd, &rec)
				if err := a.Store.Update(ctx, rec); err != nil {
					return err
				}
				if err := a.Store.AwaitPush(ctx, rec.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loved one updated: %s\n", rec.ID)
				return nil
			})
		},
	}
	f.register(cmd, false)
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a loved one and its local photos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opTimeout, func(ctx context.Context, a *app.App) error {
				if err := a.Store.Delete(ctx, args[0]); err != nil {
					return err
				}
				if err := a.Store.AwaitPush(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loved one deleted: %s\n", args[0])
				return nil
			})
		},
	}
}

func newEnrollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enroll <id>",
		Short: "Mark a loved one as enrolled for recognition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opTimeout, func(ctx context.Context, a *app.App) error {
				if err := a.Store.Enroll(ctx, args[0]); err != nil {
					return err
				}
				if err := a.Store.AwaitPush(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loved one enrolled: %s\n", args[0])
				return nil
			})
		},
	}
}

func newAddPhotoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-photo <id> <file>",
		Short: "Copy a photo into local storage and attach it to a loved one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, opTimeout, func(ctx context.Context, a *app.App) error {
				rec, found, err := a.Store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("loved one %s not found", args[0])
				}
				name := rec.ID + "_" + filepath.Base(args[1])
				if a.Assets.Exists(name) {
					name = ""
				}
				saved, err := a.Assets.Save(data, rec.ID, name)
				if err != nil {
					return err
				}
				if err := a.Store.AppendPhotos(ctx, rec.ID, []string{saved}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Photo added: %s\n", saved)
				return nil
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the sync status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opTimeout, func(ctx context.Context, a *app.App) error {
				st, err := a.Store.Status(ctx)
				if err != nil {
					return err
				}
				printStatus(cmd, st.UserID, st.Partition, st.Records, st.LastSyncedAt, st.LastError)
				return nil
			})
		},
	}
}

func printStatus(cmd *cobra.Command, user, partition string, records int, synced time.Time, lastErr error) {
	if user == "" {
		user = "(guest)"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:        %s\n", user)
	fmt.Fprintf(out, "Partition:   %s\n", partition)
	fmt.Fprintf(out, "Records:     %d\n", records)
	if synced.IsZero() {
		fmt.Fprintln(out, "Last sync:   never")
	} else {
		fmt.Fprintf(out, "Last sync:   %s\n", synced.Local().Format(time.RFC3339))
	}
	if lastErr != nil {
		fmt.Fprintf(out, "Last error:  %v\n", lastErr)
	}
}

func newWatchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stay running, resyncing when the backend comes back and on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user is required for watch")
			}
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive")
			}
			if os.Getenv("RINKU_HEALTH_INTERVAL") == "" {
				_ = os.Setenv("RINKU_HEALTH_INTERVAL", "15s")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return withApp(cmd, 0, func(ctx context.Context, a *app.App) error {
				a.Start(ctx)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				log.Info().Str("user", userFlag).Dur("interval", interval).Msg("watching")
				for {
					select {
					case <-ctx.Done():
						log.Info().Msg("stopping")
						return nil
					case <-ticker.C:
						if err := a.Store.Resync(ctx); err != nil && ctx.Err() == nil {
							log.Warn().Err(err).Msg("periodic sync failed")
						}
					}
				}
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "Full reconciliation interval")
	return cmd
}
