package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
	report_resty_setup    = "resty.setup"
)

type instrumentResty struct {
	tel       API
	tracer    trace.Tracer
	requests  metric.Int64Counter
	idcounter *uint64
}

// InstrumentResty reports every request made by the client through `tel` and
// wraps it in an otel span, the request count is exported as a metric.
func InstrumentResty(client *resty.Client, tel API) {
	var idcounter uint64
	i := instrumentResty{
		tel:       tel,
		tracer:    otel.Tracer("f95api/http"),
		idcounter: &idcounter,
	}

	requests, err := otel.Meter("f95api/http").Int64Counter(
		"http.client.requests",
		metric.WithDescription("requests issued to the forum"),
	)
	if err != nil {
		tel.ReportWarning(report_resty_setup, err)
	} else {
		i.requests = requests
	}

	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id        uint64
	startTime time.Time
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	id := atomic.AddUint64(i.idcounter, 1)

	ctx, _ := i.tracer.Start(req.Context(), "http "+req.Method, trace.WithAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", req.URL),
	))
	ctx = context.WithValue(ctx, reqCtxKey, reqCtx{
		id:        id,
		startTime: time.Now(),
	})
	i.tel.ReportDebug(report_resty_request, id, req.Method, req.URL)

	req.SetContext(ctx)
	return nil
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	info, _ := ctx.Value(reqCtxKey).(reqCtx)
	duration := time.Since(info.startTime)

	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode()))
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
		i.tel.ReportWarning(
			report_resty_response,
			info.id,
			res.Request.Method,
			res.Request.URL,
			res.Status(),
		)
	} else {
		i.tel.ReportDebug(
			report_resty_response,
			info.id,
			duration.String(),
			res.Status(),
		)
	}

	if i.requests != nil {
		i.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", res.Request.Method),
			attribute.Int("status", res.StatusCode()),
		))
	}
	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")

	info, _ := ctx.Value(reqCtxKey).(reqCtx)
	i.tel.ReportBroken(
		report_resty_response,
		err,
		req.Method,
		req.URL,
		time.Since(info.startTime),
	)
}
