package metrics

import (
	"time"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/Keksclan/goRawrOnion/interceptors"
	"google.golang.org/grpc/status"
)

// Stage returns a handler that counts runs of the rest of the pipeline,
// observes their duration and tracks how many are in flight, all labelled
// with name. A nil rec yields a passthrough.
func Stage[C, R any](rec *Recorder, name string) gorawronion.Handler[C, R] {
	if rec == nil {
		return func(_ C, next gorawronion.Next[R]) (R, error) { return next() }
	}
	runsOK := rec.runs.WithLabelValues(name, OutcomeOK)
	runsErr := rec.runs.WithLabelValues(name, OutcomeError)
	duration := rec.duration.WithLabelValues(name)
	inFlight := rec.inFlight.WithLabelValues(name)

	return func(_ C, next gorawronion.Next[R]) (R, error) {
		inFlight.Inc()
		start := time.Now()
		defer func() {
			duration.Observe(time.Since(start).Seconds())
			inFlight.Dec()
		}()

		res, err := next()
		if err != nil {
			runsErr.Inc()
		} else {
			runsOK.Inc()
		}
		return res, err
	}
}

// Unary returns a unary handler that records the status code and handling
// time of every RPC. A nil rec yields a passthrough.
func Unary(rec *Recorder) interceptors.UnaryHandler {
	if rec == nil {
		return func(_ *interceptors.UnaryCall, next gorawronion.Next[any]) (any, error) { return next() }
	}
	return func(call *interceptors.UnaryCall, next gorawronion.Next[any]) (any, error) {
		start := time.Now()
		resp, err := next()
		rec.observeRPC(call.Info.FullMethod, err, time.Since(start))
		return resp, err
	}
}

// Stream is the stream counterpart of Unary.
func Stream(rec *Recorder) interceptors.StreamHandler {
	if rec == nil {
		return func(_ *interceptors.StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) { return next() }
	}
	return func(call *interceptors.StreamCall, next gorawronion.Next[struct{}]) (struct{}, error) {
		start := time.Now()
		_, err := next()
		rec.observeRPC(call.Info.FullMethod, err, time.Since(start))
		return struct{}{}, err
	}
}

func (r *Recorder) observeRPC(method string, err error, d time.Duration) {
	r.rpcs.WithLabelValues(method, status.Code(err).String()).Inc()
	r.rpcDuration.WithLabelValues(method).Observe(d.Seconds())
}
