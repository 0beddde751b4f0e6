package tracing

import (
	"fmt"
	"net/http"
	"step2hub/internal/util"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const ServiceName = "step2hub"

// span 属性
const (
	AttrBackend   = attribute.Key("step2hub.db.backend")
	AttrRequestID = attribute.Key("step2hub.request_id")
	AttrEntryID   = attribute.Key("step2hub.entry_id")
)

// InitTracer 上报到 Jaeger，资源上带存储后端名
func InitTracer(serviceName, collectorEndpoint, backend string) (*sdktrace.TracerProvider, error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(collectorEndpoint)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			AttrBackend.String(backend),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp, nil
}

// GinMiddleware 每个请求一个 span，按路由模板命名。
// 记录后端、请求 ID 与记录 ID，5xx 标记为错误
func GinMiddleware(backend string) gin.HandlerFunc {
	tracer := otel.Tracer(ServiceName)

	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(c.Request.Method),
				semconv.HTTPRouteKey.String(route),
				AttrBackend.String(backend),
			))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(status))
		if id := c.GetString(util.RequestIDKey); id != "" {
			span.SetAttributes(AttrRequestID.String(id))
		}
		if id, ok := util.ParseID(c.Param("id")); ok {
			span.SetAttributes(AttrEntryID.Int64(id))
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
