package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"

	"github.com/suspectuso/airdrop-tracker/internal/storage"
	"github.com/suspectuso/airdrop-tracker/internal/telegram"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one monitoring pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				return a.pass(ctx)
			})
		},
	}
}

func watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run monitoring passes on an interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive")
			}
			return withApp(func(ctx context.Context, a *app) error {
				return watch(ctx, a, interval)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "Time between passes")
	return cmd
}

// watch schedules passes with gocron. Singleton mode reschedules a tick
// that fires while a pass (and its reminder wait) is still running.
func watch(ctx context.Context, a *app, interval time.Duration) error {
	s, err := gocron.NewScheduler(gocron.WithLocation(a.cfg.Location))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := a.pass(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("pass failed", "error", err)
			}
		}),
		gocron.WithName("airdrop-pass"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("register pass job: %w", err)
	}

	s.Start()
	a.log.Info("watching feed", "interval", interval)

	<-ctx.Done()
	a.log.Info("shutting down...")
	if err := s.Shutdown(); err != nil {
		a.log.Error("shutdown scheduler", "error", err)
	}
	return nil
}

func eventsCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List stored events for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				if date == "" {
					date = time.Now().In(a.cfg.Location).Format("2006-01-02")
				}
				rows, err := a.store.ListByDate(date)
				if err != nil {
					return err
				}
				printEvents(cmd.OutOrStdout(), rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Event date (YYYY-MM-DD), defaults to today")
	return cmd
}

func changesCmd() *cobra.Command {
	var (
		key      storage.Key
		orphaned bool
	)
	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Show the audit log of one event",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !orphaned && (key.Token == "" || key.Date == "") {
				return fmt.Errorf("--token and --date are required unless --orphaned is set")
			}
			return withApp(func(ctx context.Context, a *app) error {
				if orphaned {
					changes, err := a.store.ListOrphanedStatusChanges()
					if err != nil {
						return err
					}
					printChanges(cmd.OutOrStdout(), changes, a.cfg.Location)
					return nil
				}

				ev, err := a.store.GetAirdrop(key)
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("no event %s/%s/phase %d", key.Token, key.Date, key.Phase)
				}
				if err != nil {
					return err
				}
				changes, err := a.store.ListStatusChanges(ev.ID)
				if err != nil {
					return err
				}
				printChanges(cmd.OutOrStdout(), changes, a.cfg.Location)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&key.Token, "token", "", "Token symbol")
	cmd.Flags().StringVar(&key.Date, "date", "", "Event date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&key.Phase, "phase", 1, "Distribution phase")
	cmd.Flags().BoolVar(&orphaned, "orphaned", false, "List audit records whose event was deleted")
	return cmd
}

func forgetCmd() *cobra.Command {
	var key storage.Key
	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Delete one stored event, keeping its audit records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if key.Token == "" || key.Date == "" {
				return fmt.Errorf("--token and --date are required")
			}
			return withApp(func(ctx context.Context, a *app) error {
				ev, err := a.store.GetAirdrop(key)
				if err != nil {
					return fmt.Errorf("find event: %w", err)
				}
				if err := a.store.DeleteAirdrop(ev.ID); err != nil {
					return fmt.Errorf("delete event: %w", err)
				}
				a.log.Info("event deleted", "token", key.Token, "date", key.Date, "phase", key.Phase)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&key.Token, "token", "", "Token symbol")
	cmd.Flags().StringVar(&key.Date, "date", "", "Event date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&key.Phase, "phase", 1, "Distribution phase")
	return cmd
}

func printEvents(w io.Writer, rows []storage.Airdrop) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tPHASE\tNAME\tTIME\tAMOUNT\tPOINTS\tVALUE\tNEW\tREMINDED")
	for _, r := range rows {
		value := "-"
		if r.TotalValue != nil {
			value = fmt.Sprintf("$%.2f", *r.TotalValue)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%t\t%t\n",
			r.Token, r.Phase, r.Name, dash(r.Time), dash(r.Amount), dash(r.Points), value,
			r.NotifiedNew, r.NotifiedReminder)
	}
	tw.Flush()
}

func printChanges(w io.Writer, changes []storage.StatusChange, loc *time.Location) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEVENT\tTYPE\tOLD\tNEW\tAT")
	for _, c := range changes {
		event := "-"
		if c.AirdropID != 0 {
			event = fmt.Sprint(c.AirdropID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, event, c.ChangeType, dash(c.OldValue), dash(c.NewValue),
			c.ChangeTime.In(loc).Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Serve the Telegram query bot until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				if !a.cfg.TelegramEnabled() {
					return fmt.Errorf("BOT_TOKEN and TELEGRAM_CHAT_ID are required")
				}
				b, err := telegram.New(a.cfg.BotToken, a.cfg.TelegramChatID, a.store, a.cfg.Location, a.log)
				if err != nil {
					return err
				}
				a.log.Info("starting bot polling...")
				b.Start(ctx)
				return nil
			})
		},
	}
}
