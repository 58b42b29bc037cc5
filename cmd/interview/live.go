package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/skypro1111/interview-service/internal/analysis"
	"github.com/skypro1111/interview-service/internal/config"
	"github.com/skypro1111/interview-service/internal/device"
	"github.com/skypro1111/interview-service/internal/live"
	"github.com/skypro1111/interview-service/internal/protocol"
	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/transport"
	"github.com/skypro1111/interview-service/internal/tui"
)

func runLive(args []string) error {
	fs, configPath := newFlagSet("live")
	logFile := fs.String("log", "", "Log file while the interview screen is open (default next to the database)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// The interview screen owns the terminal
	a, err := openApp(*configPath, true, *logFile)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Live.APIKey == "" {
		return fmt.Errorf("live API key is not set (live.api_key or %s)", config.APIKeyEnv)
	}

	client, err := a.analysisClient()
	if err != nil {
		return err
	}
	defer client.Close()
	pipeline := a.pipeline(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	liveCfg := a.cfg.Live
	mic := device.NewMicrophone(device.CommandConfig{
		Command:    a.cfg.Device.CaptureCommand,
		Args:       a.cfg.Device.CaptureArgs,
		SampleRate: liveCfg.CaptureSampleRate,
	}, a.logger)

	speaker, err := device.OpenSpeaker(ctx, device.CommandConfig{
		Command:    a.cfg.Device.PlaybackCommand,
		Args:       a.cfg.Device.PlaybackArgs,
		SampleRate: liveCfg.PlaybackSampleRate,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to open speaker: %w", err)
	}
	defer speaker.Close()

	dialer := transport.NewDialer(transport.Config{
		Endpoint:         liveCfg.Endpoint,
		APIKey:           liveCfg.APIKey,
		HandshakeTimeout: liveCfg.GetHandshakeTimeoutDuration(),
	}, a.logger)

	settings := a.store.Settings()
	controller, err := live.NewController(live.Config{
		Model:          liveCfg.Model,
		SampleRate:     liveCfg.CaptureSampleRate,
		FrameSize:      liveCfg.FrameSize,
		IdleTimeout:    liveCfg.GetIdleTimeoutDuration(),
		VoiceThreshold: liveCfg.VoiceThreshold,
		LevelDecay:     liveCfg.LevelDecay,
	}, settings, mic, live.DialerFunc(func(ctx context.Context, setup protocol.SetupMessage) (live.Transport, error) {
		conn, err := dialer.Dial(ctx, setup)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}), speaker, a.metrics, a.logger)
	if err != nil {
		return err
	}

	a.logger.Info("Live interview starting",
		slog.String("model", liveCfg.Model),
		slog.String("language", string(settings.Language)),
		slog.String("voice_gender", string(settings.VoiceGender)),
		slog.String("mode", string(settings.InterviewMode)),
	)

	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start interview: %w", err)
	}

	save := func(result *live.Result) (*session.Session, error) {
		return pipeline.SaveLive(ctx, analysis.LiveOutcome{
			Turns:     result.Turns,
			Duration:  result.Duration,
			Recording: result.Recording,
		}, settings.Language)
	}

	program := tea.NewProgram(tui.NewModel(controller, settings, save), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		controller.Conclude()
		return fmt.Errorf("interview screen failed: %w", err)
	}

	stats := speaker.GetStats()
	a.logger.Info("Live interview finished",
		slog.String("state", controller.State().String()),
		slog.Uint64("buffers_played", stats.BuffersPlayed),
	)

	m := final.(tui.Model)
	if s := m.Saved(); s != nil {
		if s.Degraded {
			fmt.Fprintf(os.Stderr, "Analysis failed, saved transcript only: %v\n", m.Err())
		}
		fmt.Println(s.ID)
		return nil
	}
	if err := m.Err(); err != nil {
		return err
	}
	return nil
}
