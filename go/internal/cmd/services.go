package main

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/clients/studyroom_client"
	"github.com/mcdev12/studyroom/go/internal/realtime"
	"github.com/mcdev12/studyroom/go/internal/shell"
	"github.com/mcdev12/studyroom/go/internal/timer"
	"github.com/mcdev12/studyroom/go/internal/timer/repository"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Clock     clockwork.Clock
	Storage   repository.Storage
	Backend   *studyroom_client.StudyRoomClient
	Shell     *shell.Service
	Manager   *timer.Manager
	Transport realtime.Transport
}

// setupServices wires storage, the backend client, the shell and the session
// manager. extra notifiers receive every notification alongside the shell.
func setupServices(ctx context.Context, cfg *Config, extra ...timer.Notifier) (*Services, error) {
	clock := clockwork.NewRealClock()

	storage, err := setupStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	// Storage → Repository factory
	repoFactory := repository.NewFactory(storage, clock, repository.Config{
		Username:   cfg.Username,
		StaleAfter: cfg.Timer.StaleAfter,
	})

	// Backend client
	backend := studyroom_client.NewStudyRoomClient(cfg.Backend.BaseURL, cfg.Backend.Token)

	// Shell service → Manager
	shellService := shell.NewService(shell.DefaultConfig(), clock)
	notifiers := timer.MultiNotifier{shellService.Notifier()}
	if len(extra) == 0 {
		notifiers = append(notifiers, timer.LogNotifier{})
	}
	notifiers = append(notifiers, extra...)

	manager := timer.NewManager(repoFactory, backend, notifiers, timer.Options{
		Clock:        clock,
		TickInterval: cfg.Timer.TickInterval,
	})
	manager.OnOpen(shellService.Attach)

	return &Services{
		Clock:     clock,
		Storage:   storage,
		Backend:   backend,
		Shell:     shellService,
		Manager:   manager,
		Transport: setupTransport(cfg, clock, manager),
	}, nil
}

// setupTransport returns the configured event transport, or nil when pushed
// events are disabled. Every reconnect resyncs all open rooms.
func setupTransport(cfg *Config, clock clockwork.Clock, manager *timer.Manager) realtime.Transport {
	onReconnect := func(ctx context.Context) {
		log.Info().Strs("rooms", manager.Rooms()).Msg("transport reconnected, resyncing rooms")
		manager.SyncAll(ctx)
	}

	switch cfg.Transport.Kind {
	case TransportStomp:
		stompConfig := realtime.DefaultStompConfig()
		stompConfig.URL = cfg.Transport.StompURL
		stompConfig.Token = cfg.Backend.Token
		stompConfig.ReconnectWait = cfg.Transport.ReconnectWait
		stompConfig.OnReconnect = onReconnect
		stompConfig.Clock = clock
		return realtime.NewStompTransport(stompConfig)

	case TransportNATS:
		natsConfig := realtime.DefaultNATSConfig()
		natsConfig.URL = cfg.Transport.NATSURL
		natsConfig.StreamName = cfg.Transport.Stream
		natsConfig.ReconnectWait = cfg.Transport.ReconnectWait
		natsConfig.OnReconnect = onReconnect
		return realtime.NewNATSTransport(natsConfig)

	default:
		return nil
	}
}

// Close releases the transport, every open session and the storage.
func (s *Services) Close() {
	if s.Transport != nil {
		if err := s.Transport.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close transport")
		}
	}
	s.Manager.CloseAll()
	if err := s.Storage.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close storage")
	}
}
