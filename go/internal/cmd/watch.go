package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch ROOM...",
	Short: "Follow room timers in the terminal",
	Long: `Follows pushed timer events for the given rooms and prints every state
change, plus the countdown once a minute. No shell API is served.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		console := NewConsoleNotifier(os.Stdout)
		services, err := setupServices(ctx, cfg, console)
		if err != nil {
			return err
		}
		defer services.Close()

		services.Manager.OnOpen(func(session *timer.Session) {
			roomID := session.RoomID()
			last := session.Store().Snapshot()
			console.PrintState(roomID, last, last.TimerDuration)

			session.Store().Subscribe(func(state timer.State) {
				if shouldPrint(last, state) {
					console.PrintState(roomID, state, state.TimerDuration)
				}
				last = state
			})
		})
		for _, room := range args {
			services.Manager.Open(ctx, room)
		}

		if services.Transport == nil {
			log.Warn().Msg("no event transport configured; only local expiry will be shown")
			<-ctx.Done()
			return nil
		}
		if err := services.Transport.Run(ctx, args, services.Manager.Dispatch); err != nil && !errors.Is(err, ctx.Err()) {
			return err
		}
		return nil
	},
}

// shouldPrint reports whether next differs from prev in anything but the
// countdown, or the countdown crossed a whole minute.
func shouldPrint(prev, next timer.State) bool {
	if prev.IsTimerRunning != next.IsTimerRunning ||
		prev.TimerDescription != next.TimerDescription ||
		prev.OriginalTimerDuration != next.OriginalTimerDuration {
		return true
	}
	return next.TimerDuration != prev.TimerDuration && next.TimerDuration%60 == 0
}
