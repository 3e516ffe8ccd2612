package main

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/models"
	"github.com/mcdev12/studyroom/go/internal/realtime"
	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/spf13/cobra"
)

var (
	publishDuration    time.Duration
	publishDescription string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish timer events to the NATS stream",
	Long: `Publishes TimerStarted and TimerStopped events the way the backend does,
for local development against the NATS transport.`,
}

var publishStartedCmd = &cobra.Command{
	Use:   "started ROOM",
	Short: "Publish a TimerStarted event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clock := clockwork.NewRealClock()
		startMillis := clock.Now().UnixMilli()
		return publishEvent(cmd, clock, timer.StartedEvent{Payload: timer.StartedPayload{
			RoomID:                  args[0],
			OriginalDurationSeconds: int(publishDuration / time.Second),
			Description:             publishDescription,
			Enabled:                 true,
			StartTimeMillis:         &startMillis,
		}})
	},
}

var publishStoppedCmd = &cobra.Command{
	Use:   "stopped ROOM",
	Short: "Publish a TimerStopped event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishEvent(cmd, clockwork.NewRealClock(), timer.StoppedEvent{Payload: timer.StoppedPayload{
			RoomID: args[0],
		}})
	},
}

func publishEvent(cmd *cobra.Command, clock clockwork.Clock, event timer.Event) error {
	natsConfig := realtime.DefaultNATSConfig()
	natsConfig.URL = cfg.Transport.NATSURL
	natsConfig.StreamName = cfg.Transport.Stream

	publisher, err := realtime.NewPublisher(cmd.Context(), natsConfig, clock)
	if err != nil {
		return err
	}
	defer publisher.Close()

	return publisher.Publish(cmd.Context(), event)
}

func init() {
	publishStartedCmd.Flags().DurationVarP(&publishDuration, "duration", "d",
		models.DefaultTimerDurationSeconds*time.Second, "timer length")
	publishStartedCmd.Flags().StringVar(&publishDescription, "description", "", "session description")

	publishCmd.AddCommand(publishStartedCmd, publishStoppedCmd)
}
