package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
	"github.com/Wenjie0329/email-pitch-tool/internal/dto"
	"github.com/Wenjie0329/email-pitch-tool/internal/queue"
	"github.com/Wenjie0329/email-pitch-tool/internal/repository"
)

const publishTimeout = 2 * time.Second

// transparentGIF is a 1x1 transparent GIF89a image
var transparentGIF = []byte{
	'G', 'I', 'F', '8', '9', 'a', 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, '!', 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, ',',
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02,
	'D', 0x01, 0x00, ';',
}

// Pixel returns a fresh copy of the tracking image
func Pixel() []byte {
	out := make([]byte, len(transparentGIF))
	copy(out, transparentGIF)
	return out
}

// TrackingService turns open and click signals into store appends. The
// response never depends on whether the append worked.
type TrackingService struct {
	repository repository.EventRepository
	publisher  queue.EventPublisher
	log        *zap.Logger
}

// NewTrackingService creates a new tracking service; publisher may be nil
func NewTrackingService(repo repository.EventRepository, publisher queue.EventPublisher, log *zap.Logger) *TrackingService {
	return &TrackingService{
		repository: repo,
		publisher:  publisher,
		log:        log,
	}
}

// RecordOpen stores an open and returns the pixel
func (s *TrackingService) RecordOpen(ctx context.Context, req dto.OpenRequest) []byte {
	event := &domain.OpenEvent{
		UID:       normalizeUID(req.UID),
		IP:        validText(req.IP),
		UserAgent: truncateRunes(req.UserAgent, domain.MaxUserAgentLength),
	}

	err := s.guard(func() error {
		_, err := s.repository.AppendOpen(ctx, event)
		return err
	})
	if err != nil {
		s.log.Error("Failed to record open",
			zap.Error(err),
			zap.String("uid", event.UID),
			zap.String("ip", event.IP))
		return Pixel()
	}

	s.log.Info("Open recorded",
		zap.Int64("id", event.ID),
		zap.String("uid", event.UID),
		zap.String("ip", event.IP))

	s.notify(ctx, domain.Notification{
		Table:     domain.TableOpens,
		ID:        event.ID,
		UID:       event.UID,
		Timestamp: event.Timestamp,
	})

	return Pixel()
}

// RecordClick stores a click and hands back the redirect target. ok is
// false when the request carried no destination.
func (s *TrackingService) RecordClick(ctx context.Context, req dto.ClickRequest) (string, bool) {
	event := &domain.ClickEvent{
		UID: normalizeUID(req.UID),
		URL: validText(req.URL),
		IP:  validText(req.IP),
	}

	err := s.guard(func() error {
		_, err := s.repository.AppendClick(ctx, event)
		return err
	})
	if err != nil {
		s.log.Error("Failed to record click",
			zap.Error(err),
			zap.String("uid", event.UID),
			zap.String("url", event.URL))
	} else {
		s.log.Info("Click recorded",
			zap.Int64("id", event.ID),
			zap.String("uid", event.UID),
			zap.String("url", event.URL))

		s.notify(ctx, domain.Notification{
			Table:     domain.TableClicks,
			ID:        event.ID,
			UID:       event.UID,
			Timestamp: event.Timestamp,
		})
	}

	return req.URL, req.URL != ""
}

// guard runs fn and converts a panic into an error, so nothing raised by
// the storage layer can escape into the tracking response.
func (s *TrackingService) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic: %v", r)
		}
	}()
	return fn()
}

func (s *TrackingService) notify(ctx context.Context, notification domain.Notification) {
	if s.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := s.guard(func() error {
		return s.publisher.PublishEvent(ctx, notification)
	})
	if err != nil {
		s.log.Warn("Failed to publish event notification",
			zap.Error(err),
			zap.String("table", notification.Table.String()),
			zap.Int64("id", notification.ID))
	}
}

// validText replaces invalid UTF-8 so every backend stores the same text
func validText(s string) string {
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}

func normalizeUID(uid string) string {
	if uid == "" {
		return domain.UnknownUID
	}
	return validText(uid)
}

func truncateRunes(s string, max int) string {
	s = validText(s)
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
