package telemetry

import (
	"errors"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing
type DBTracingConfig struct {
	Enabled    bool
	LogFullSQL bool   // include bound query variables in spans (never in production)
	DBSystem   string // default "postgresql"
}

// RegisterDBTracing installs the otelgorm plugin plus a callback that tags
// spans with the table and rows affected. Record-not-found is not an error.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	system := cfg.DBSystem
	if system == "" {
		system = "postgresql"
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(system)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	for _, reg := range []struct {
		name string
		err  error
	}{
		{"create", cb.Create().After("gorm:create").Register("leadflow:span_attrs_create", annotateSpan)},
		{"query", cb.Query().After("gorm:query").Register("leadflow:span_attrs_query", annotateSpan)},
		{"update", cb.Update().After("gorm:update").Register("leadflow:span_attrs_update", annotateSpan)},
		{"raw", cb.Raw().After("gorm:raw").Register("leadflow:span_attrs_raw", annotateSpan)},
	} {
		if reg.err != nil {
			return reg.err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.String("db_system", system),
	)
	return nil
}

func annotateSpan(db *gorm.DB) {
	if db.Statement == nil || db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
}
