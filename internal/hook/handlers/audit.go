package handlers

import (
	"context"
	"time"

	"qroute/internal/hook"
	"qroute/internal/logger"
	"qroute/internal/tool"
)

// AuditHandler writes a debug-level audit trail of pipeline activity. It
// never denies anything.
type AuditHandler struct {
	log *logger.Logger
}

// NewAuditHandler creates an audit handler writing to log
func NewAuditHandler(log *logger.Logger) *AuditHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuditHandler{log: log}
}

func (h *AuditHandler) Name() string {
	return "audit"
}

func (h *AuditHandler) Points() []hook.HookPoint {
	return []hook.HookPoint{
		hook.OnRouteDecided,
		hook.BeforeToolExecution,
		hook.AfterToolExecution,
		hook.OnPipelineEnd,
	}
}

func (h *AuditHandler) Priority() int {
	return 0 // Runs after anything that may deny
}

func (h *AuditHandler) Handle(ctx context.Context, data *hook.HookData) (*hook.Feedback, error) {
	log := h.log
	if id := data.GetString(hook.KeyRequestID); id != "" {
		log = log.With(hook.KeyRequestID, id)
	}

	switch data.Point {
	case hook.OnRouteDecided:
		log.Debug("audit: route=%s", data.GetString(hook.KeyRoute))

	case hook.BeforeToolExecution:
		log.Debug("audit: executing %s with %s", data.ToolName, data.GetString(hook.KeyParams))

	case hook.AfterToolExecution:
		success := false
		if res, ok := data.Get(hook.KeyResult).(*tool.Result); ok && res != nil {
			success = res.Success
		}
		duration, _ := data.Get(hook.KeyDuration).(time.Duration)
		log.Debug("audit: %s finished success=%t in %s", data.ToolName, success, duration)

	case hook.OnPipelineEnd:
		log.Debug("audit: pipeline finished route=%s", data.GetString(hook.KeyRoute))
	}

	return hook.AllowFeedback(), nil
}
