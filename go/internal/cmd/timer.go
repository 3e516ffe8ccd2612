package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mcdev12/studyroom/go/internal/models"
	"github.com/spf13/cobra"
)

var (
	startDuration    time.Duration
	startDescription string
	statusJSON       bool
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Run host timer commands against a room",
}

var timerStartCmd = &cobra.Command{
	Use:   "start ROOM",
	Short: "Start the room timer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		console := NewConsoleNotifier(os.Stdout)
		services, err := setupServices(cmd.Context(), cfg, console)
		if err != nil {
			return err
		}
		defer services.Close()

		session := services.Manager.Open(cmd.Context(), args[0])
		if err := session.StartTimer(cmd.Context(), int(startDuration/time.Second), startDescription); err != nil {
			return err
		}

		console.PrintState(args[0], session.Store().Snapshot(), session.CurrentRemainingTime(cmd.Context()))
		return nil
	},
}

var timerStopCmd = &cobra.Command{
	Use:   "stop ROOM",
	Short: "Stop the room timer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		console := NewConsoleNotifier(os.Stdout)
		services, err := setupServices(cmd.Context(), cfg, console)
		if err != nil {
			return err
		}
		defer services.Close()

		session := services.Manager.Open(cmd.Context(), args[0])
		if err := session.StopTimer(cmd.Context()); err != nil {
			return err
		}

		console.PrintState(args[0], session.Store().Snapshot(), session.CurrentRemainingTime(cmd.Context()))
		return nil
	},
}

type timerStatus struct {
	RoomID                string `json:"roomId"`
	IsTimerRunning        bool   `json:"isTimerRunning"`
	TimerDescription      string `json:"timerDescription"`
	OriginalTimerDuration int    `json:"originalTimerDuration"`
	CurrentRemainingTime  int    `json:"currentRemainingTime"`
}

var timerStatusCmd = &cobra.Command{
	Use:   "status ROOM",
	Short: "Show the locally known timer state for a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		console := NewConsoleNotifier(os.Stdout)
		services, err := setupServices(cmd.Context(), cfg, console)
		if err != nil {
			return err
		}
		defer services.Close()

		session := services.Manager.Open(cmd.Context(), args[0])
		state := session.Store().Snapshot()
		remaining := session.CurrentRemainingTime(cmd.Context())

		if statusJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(timerStatus{
				RoomID:                args[0],
				IsTimerRunning:        state.IsTimerRunning,
				TimerDescription:      state.TimerDescription,
				OriginalTimerDuration: state.OriginalTimerDuration,
				CurrentRemainingTime:  remaining,
			})
		}

		console.PrintState(args[0], state, remaining)
		return nil
	},
}

func init() {
	timerStartCmd.Flags().DurationVarP(&startDuration, "duration", "d",
		models.DefaultTimerDurationSeconds*time.Second, fmt.Sprintf("timer length, at most %s", models.MaxTimerDurationSeconds*time.Second))
	timerStartCmd.Flags().StringVar(&startDescription, "description", "", "what the room is working on")
	timerStatusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the state as JSON")

	timerCmd.AddCommand(timerStartCmd, timerStopCmd, timerStatusCmd)
}
