package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skypro1111/interview-service/internal/metrics"
	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/transcript"
)

// ErrEmptyTranscript is returned when there is nothing to analyze; the
// caller discards the session.
var ErrEmptyTranscript = errors.New("transcript is empty")

// Analyzer produces an AnalysisResult for a transcript
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*session.AnalysisResult, error)
}

// SessionSaver persists a finished session
type SessionSaver interface {
	Add(sess *session.Session) error
	Count() int
}

// AudioSaver stores a WAV recording owned by a session and returns its URL.
// Release removes it again.
type AudioSaver interface {
	Save(ownerID string, wav []byte) (string, error)
	Release(audioURL string) error
}

// Pipeline turns a finished live interview or an imported transcript into
// a stored session.
type Pipeline struct {
	analyzer Analyzer
	sessions SessionSaver
	audio    AudioSaver
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// LiveOutcome is what a concluded live session hands to the pipeline
type LiveOutcome struct {
	Turns     []transcript.Turn
	Duration  time.Duration
	Recording []byte // WAV, may be empty
}

// NewPipeline creates a pipeline. audio and metrics may be nil.
func NewPipeline(analyzer Analyzer, sessions SessionSaver, audio AudioSaver, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		analyzer: analyzer,
		sessions: sessions,
		audio:    audio,
		metrics:  m,
		logger:   logger,
	}
}

// SaveLive analyzes and stores a live interview. The recorded turns always
// replace whatever transcript the model returned. On analysis failure a
// degraded session is stored and returned together with the error.
func (p *Pipeline) SaveLive(ctx context.Context, outcome LiveOutcome, language session.Language) (*session.Session, error) {
	if len(outcome.Turns) == 0 {
		return nil, ErrEmptyTranscript
	}

	result, analyzeErr := p.analyze(ctx, Request{Turns: outcome.Turns, Language: language})

	var sess *session.Session
	if analyzeErr != nil {
		sess = session.NewDegraded(session.TypeAIInterview, outcome.Duration, outcome.Turns)
	} else {
		result.Transcript = outcome.Turns
		sess = session.New(session.TypeAIInterview, outcome.Duration, result)
	}

	if len(outcome.Recording) > 0 && p.audio != nil {
		audioURL, err := p.audio.Save(sess.ID, outcome.Recording)
		if err != nil {
			p.logger.Warn("Failed to store recording",
				slog.String("session_id", sess.ID),
				slog.String("error", err.Error()))
		} else {
			sess.AudioURL = audioURL
		}
	}

	if err := p.save(sess); err != nil {
		if sess.AudioURL != "" {
			if releaseErr := p.audio.Release(sess.AudioURL); releaseErr != nil {
				p.logger.Warn("Failed to release recording of unsaved session",
					slog.String("session_id", sess.ID),
					slog.String("audio_url", sess.AudioURL),
					slog.String("error", releaseErr.Error()))
			}
		}
		return nil, err
	}
	return sess, analyzeErr
}

// ImportText analyzes and stores a plain-text transcript as an UPLOADED
// session. The model's turn segmentation is used when it returns one.
func (p *Pipeline) ImportText(ctx context.Context, text string, language session.Language) (*session.Session, error) {
	turns := transcript.FromRawText(text)
	if len(turns) == 0 {
		return nil, ErrEmptyTranscript
	}

	result, analyzeErr := p.analyze(ctx, Request{Turns: turns, Language: language, Unattributed: true})

	var sess *session.Session
	if analyzeErr != nil {
		sess = session.NewDegraded(session.TypeUploaded, 0, turns)
	} else {
		if len(result.Transcript) == 0 {
			result.Transcript = turns
		}
		sess = session.New(session.TypeUploaded, transcriptSpan(result.Transcript), result)
	}

	if err := p.save(sess); err != nil {
		return nil, err
	}
	return sess, analyzeErr
}

func (p *Pipeline) analyze(ctx context.Context, req Request) (*session.AnalysisResult, error) {
	if p.metrics != nil {
		p.metrics.RecordAnalysisRequest()
	}

	start := time.Now()
	result, err := p.analyzer.Analyze(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordAnalysisFailure(elapsed.Seconds())
		}
		p.logger.Error("Analysis failed, storing transcript only",
			slog.Int("turns", len(req.Turns)),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()))
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.RecordAnalysisSuccess(elapsed.Seconds())
	}
	p.logger.Info("Analysis completed",
		slog.Int("turns", len(req.Turns)),
		slog.Int("phases", result.PhasesCount),
		slog.Duration("elapsed", elapsed))
	return result, nil
}

func (p *Pipeline) save(sess *session.Session) error {
	if err := p.sessions.Add(sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if p.metrics != nil {
		p.metrics.SetSessionsStored(p.sessions.Count())
	}

	p.logger.Info("Session saved",
		slog.String("session_id", sess.ID),
		slog.String("type", string(sess.Type)),
		slog.Bool("degraded", sess.Degraded))
	return nil
}

// transcriptSpan estimates an imported session's duration from the last
// turn start.
func transcriptSpan(turns []transcript.Turn) time.Duration {
	var last float64
	for _, t := range turns {
		if t.StartTime > last {
			last = t.StartTime
		}
	}
	return time.Duration(last * float64(time.Second))
}
