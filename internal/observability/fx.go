package observability

import (
	"github.com/smallbiznis/hospitality/internal/observability/logger"
	"github.com/smallbiznis/hospitality/internal/observability/metrics"
	"github.com/smallbiznis/hospitality/internal/observability/tracing"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	logger.Module,
	metrics.Module,
	tracing.Module,
)
