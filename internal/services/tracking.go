package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/HussamZG/shakaoy-650/internal/domain"
	"github.com/HussamZG/shakaoy-650/internal/gateway"
)

// TrackingService serves the anonymous submitter: lookup by id and replies
// on the complaint thread. It reads the backend directly and never consults
// or fills the ComplaintStore.
type TrackingService struct {
	GW gateway.Gateway

	// Store validates and inserts replies. Its cache is not read.
	Store *ComplaintStore
}

// NewTrackingService wires a TrackingService.
func NewTrackingService(gw gateway.Gateway, store *ComplaintStore) *TrackingService {
	return &TrackingService{GW: gw, Store: store}
}

// Lookup returns the complaint with its messages in ascending timestamp order.
func (s *TrackingService) Lookup(ctx context.Context, id string) (*domain.Complaint, error) {
	ctx, span := otel.Tracer("services/TrackingService").Start(ctx, "Lookup",
		trace.WithAttributes(attribute.String("complaint.id", id)))
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyID
	}
	c, err := s.GW.GetComplaint(ctx, id)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, ErrComplaintNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup complaint %s: %w", id, err)
	}
	msgs, err := s.GW.ListMessages(ctx, id, true)
	if err != nil {
		return nil, fmt.Errorf("lookup messages %s: %w", id, err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	c.Messages = msgs
	return c, nil
}

// PostMessage appends a reply from the submitter and returns the stored row.
// Callers render the returned row; the push stream may deliver the same
// message again and consumers dedupe by id.
func (s *TrackingService) PostMessage(ctx context.Context, id, text string) (*domain.Message, error) {
	ctx, span := otel.Tracer("services/TrackingService").Start(ctx, "PostMessage",
		trace.WithAttributes(attribute.String("complaint.id", id)))
	defer span.End()
	return s.Store.AddMessage(ctx, id, text, domain.SenderUser)
}
