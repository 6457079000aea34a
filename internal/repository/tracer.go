package repository

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/relinkhq/relink/internal/repository")
