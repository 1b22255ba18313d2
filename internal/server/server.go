// Package server runs the message-loop front end: it receives framed chart
// requests from the queue and drives the render pipeline for each one.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gocharts/internal/artifact"
	"gocharts/internal/chart"
	"gocharts/internal/config"
	"gocharts/internal/hexcolor"
	"gocharts/internal/model"
	"gocharts/internal/notifier"
	"gocharts/internal/recorder"
)

// Error codes attached to request-scoped log events.
const (
	codeMalformed   = "MALFORMED_REQUEST"
	codeSchema      = "SCHEMA_ERROR"
	codeInvalidCol  = "INVALID_COLOR"
	codeEmptySeries = "EMPTY_SERIES"
	codeIO          = "IO_ERROR"
	codeInternal    = "INTERNAL"
)

// Server owns the receive loop. Transport identity and endpoint come from the
// injected config; there is no process-wide socket state.
type Server struct {
	cfg      *config.Config
	notifier notifier.Notifier
	recorder recorder.Recorder
}

// New creates a Server.
func New(cfg *config.Config, n notifier.Notifier, r recorder.Recorder) *Server {
	return &Server{cfg: cfg, notifier: n, recorder: r}
}

// Run connects to the queue as a dealer peer and processes messages until the
// context is canceled. Each request runs in its own goroutine; pipeline runs
// share no mutable state, so concurrent requests need no locking.
func (s *Server) Run(ctx context.Context) error {
	sock := zmq4.NewDealer(ctx, zmq4.WithID(zmq4.SocketIdentity(s.cfg.Transport.Identity)))
	defer sock.Close()

	if err := sock.Dial(s.cfg.Transport.Endpoint); err != nil {
		return err
	}
	log.Info().
		Str("endpoint", s.cfg.Transport.Endpoint).
		Str("identity", s.cfg.Transport.Identity).
		Msg("connected, awaiting chart requests")

	for {
		msg, err := sock.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("receive failed")
			continue
		}
		go s.handle(ctx, msg.Frames)
	}
}

// handle runs one request through decode → render → write → notify → record.
// Every failure is request-scoped: logged, recorded, and dropped.
func (s *Server) handle(ctx context.Context, frames [][]byte) {
	requestID := uuid.NewString()
	logger := log.With().Str("request_id", requestID).Logger()

	payload := lastFrame(frames)
	if payload == nil {
		logger.Error().Str("error_code", codeMalformed).Msg("message has no payload frame")
		return
	}

	kind, op, body, err := model.DecodeEnvelope(payload)
	if err != nil {
		logger.Error().Err(err).Str("error_code", codeMalformed).Msg("bad envelope")
		return
	}
	if kind != "chart" || op != "request" {
		logger.Debug().Str("kind", kind).Str("op", op).Msg("ignoring non-chart message")
		return
	}

	req, err := model.DecodeRequest(body)
	if err != nil {
		logger.Error().Err(err).Str("error_code", errCode(err)).Msg("rejected chart request")
		return
	}

	logger = logger.With().Str("ticker", req.Ticker).Str("timeframe", req.Timeframe).Logger()
	logSummary(&logger, req)

	start := time.Now()
	rec := &recorder.RenderRecord{
		RequestID: requestID,
		Ticker:    req.Ticker,
		Timeframe: req.Timeframe,
		Candles:   len(req.Candles),
	}

	img, err := chart.Render(req)
	if err != nil {
		s.fail(&logger, rec, start, err, "render failed")
		return
	}

	art, err := artifact.Write(s.cfg.Charts.Directory, req, img)
	if err != nil {
		s.fail(&logger, rec, start, err, "write failed")
		return
	}

	rec.Path = art.Path
	rec.Status = "OK"
	rec.Duration = time.Since(start)
	if err := s.recorder.RecordRender(rec); err != nil {
		logger.Warn().Err(err).Msg("record render")
	}
	logger.Info().
		Str("path", art.Path).
		Dur("duration", rec.Duration).
		Msg("chart written")

	n := &notifier.Notification{
		Text:           req.Desc,
		ImagePath:      art.Path,
		ChatID:         req.ChatID,
		SubscriberList: req.SubscriberList,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		// Logged, not retried; the artifact stays on disk either way.
		logger.Error().Err(err).Msg("notification failed")
		return
	}
	logger.Info().
		Str("destination", destination(req)).
		Msg("notification sent")
}

func (s *Server) fail(logger *zerolog.Logger, rec *recorder.RenderRecord, start time.Time, err error, msg string) {
	logger.Error().Err(err).Str("error_code", errCode(err)).Msg(msg)
	rec.Status = "ERROR"
	rec.Error = err.Error()
	rec.Duration = time.Since(start)
	if rerr := s.recorder.RecordRender(rec); rerr != nil {
		logger.Warn().Err(rerr).Msg("record render")
	}
}

func logSummary(logger *zerolog.Logger, req *model.ChartRequest) {
	ev := logger.Info().Int("candles", len(req.Candles)).Str("desc", req.Desc)
	if len(req.Candles) > 0 {
		ev = ev.
			Time("from", time.UnixMilli(req.Candles[0].Timestamp)).
			Time("to", time.UnixMilli(req.Candles[len(req.Candles)-1].Timestamp))
	}
	ev.Msg("new chart request")
}

// lastFrame returns the final non-empty frame; routing and delimiter frames
// precede the payload.
func lastFrame(frames [][]byte) []byte {
	for i := len(frames) - 1; i >= 0; i-- {
		if len(frames[i]) > 0 {
			return frames[i]
		}
	}
	return nil
}

func destination(req *model.ChartRequest) string {
	switch {
	case req.ChatID != nil:
		return "chat_id"
	case req.SubscriberList != "":
		return "subscriber_list"
	default:
		return "default"
	}
}

func errCode(err error) string {
	switch {
	case errors.Is(err, model.ErrSchema):
		return codeSchema
	case errors.Is(err, model.ErrMalformedRequest):
		return codeMalformed
	case errors.Is(err, hexcolor.ErrInvalidColor):
		return codeInvalidCol
	case errors.Is(err, model.ErrEmptySeries):
		return codeEmptySeries
	case errors.Is(err, artifact.ErrIO):
		return codeIO
	default:
		return codeInternal
	}
}
