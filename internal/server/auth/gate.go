package auth

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/identity"
	"github.com/carbonx-dev/carbonx/internal/server/audit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/carbonx-dev/carbonx/internal/server/auth"

// Gate decision outcomes, shared with the metrics labels.
const (
	OutcomeAdmitted        = "admitted"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeForbidden       = "forbidden"
)

// DecisionRecorder counts gate outcomes per transport.
type DecisionRecorder interface {
	AuthDecision(transport, outcome string)
}

// GateOption customises a Gate.
type GateOption func(*Gate)

func WithDecisionRecorder(r DecisionRecorder) GateOption {
	return func(g *Gate) { g.decisions = r }
}

func WithGateAudit(s audit.Sink) GateOption {
	return func(g *Gate) { g.audit = s }
}

func WithTracer(t trace.Tracer) GateOption {
	return func(g *Gate) { g.tracer = t }
}

// Gate authenticates a bearer credential and enforces role requirements.
// It is transport agnostic: the HTTP middleware and the gRPC interceptors
// both delegate to Check.
type Gate struct {
	tokens    *TokenService
	transport string
	tracer    trace.Tracer
	decisions DecisionRecorder
	audit     audit.Sink
}

func NewGate(tokens *TokenService, transport string, opts ...GateOption) *Gate {
	g := &Gate{
		tokens:    tokens,
		transport: transport,
		tracer:    otel.Tracer(tracerName),
		audit:     audit.Nop{},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Check verifies the authorization header value and, when allowed is not
// empty, that the principal holds one of the allowed roles. Errors match
// common.ErrUnauthenticated or common.ErrForbidden; the token service is not
// consulted for a missing or malformed header.
func (g *Gate) Check(ctx context.Context, resource, header string, allowed ...identity.Role) (*identity.Principal, error) {
	ctx, span := g.tracer.Start(ctx, "auth.gate", trace.WithAttributes(
		attribute.String("auth.transport", g.transport),
		attribute.String("auth.resource", resource),
	))
	defer span.End()

	token, ok := BearerToken(header)
	if !ok {
		return nil, g.deny(ctx, span, resource, OutcomeUnauthenticated, "missing_bearer", nil,
			fmt.Errorf("%w: missing bearer token", common.ErrUnauthenticated))
	}

	p, err := g.tokens.Verify(token)
	if err != nil {
		reason := string(ReasonOf(err))
		return nil, g.deny(ctx, span, resource, OutcomeUnauthenticated, reason, nil,
			fmt.Errorf("%w: %s", common.ErrUnauthenticated, reason))
	}
	span.SetAttributes(attribute.String("auth.role", p.Role.String()))

	if len(allowed) > 0 && !slices.Contains(allowed, p.Role) {
		return nil, g.deny(ctx, span, resource, OutcomeForbidden, "role_not_allowed", p,
			fmt.Errorf("%w: role %s", common.ErrForbidden, p.Role))
	}

	span.SetAttributes(attribute.String("auth.outcome", OutcomeAdmitted))
	g.record(OutcomeAdmitted)
	return p, nil
}

func (g *Gate) deny(ctx context.Context, span trace.Span, resource, outcome, reason string, p *identity.Principal, err error) error {
	span.SetAttributes(
		attribute.String("auth.outcome", outcome),
		attribute.String("auth.reason", reason),
	)
	span.SetStatus(codes.Error, outcome)
	g.record(outcome)

	ev := audit.Event{
		Kind:    audit.KindDenied,
		Outcome: outcome,
		Time:    time.Now().UTC(),
		Path:    resource,
		Reason:  reason,
	}
	if p != nil {
		ev.UserID = p.SubjectID
		ev.Role = p.Role.String()
	}
	g.audit.Record(ctx, ev)
	return err
}

func (g *Gate) record(outcome string) {
	if g.decisions != nil {
		g.decisions.AuthDecision(g.transport, outcome)
	}
}
