package interceptors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/Keksclan/goRawrOnion/cache"
	"github.com/Keksclan/goRawrOnion/policy"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

// errNotCacheable marks a response that cannot be stored; the run that
// produced it returns it unchanged.
var errNotCacheable = errors.New("interceptors: response is not a proto message")

// responseKey derives the cache key of a unary call from its method and the
// deterministic encoding of its request.
func responseKey(fullMethod string, req proto.Message) (string, bool) {
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(req)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(b)
	return "grpc:" + fullMethod + ":" + hex.EncodeToString(sum[:]), true
}

func encodeResponse(resp any) ([]byte, error) {
	msg, ok := resp.(proto.Message)
	if !ok {
		return nil, errNotCacheable
	}
	a, err := anypb.New(msg)
	if err != nil {
		return nil, errNotCacheable
	}
	return proto.Marshal(a)
}

func decodeResponse(b []byte) (any, error) {
	var a anypb.Any
	if err := proto.Unmarshal(b, &a); err != nil {
		return nil, err
	}
	return a.UnmarshalNew()
}

// CacheUnary returns a unary handler that serves responses from store for
// methods whose policy group carries a Cache rule. Requests and responses
// must be proto messages; anything else runs uncached. Concurrent identical
// requests share one call to the method handler. Errors are never cached.
func CacheUnary(store cache.Cache, r *policy.Resolver) UnaryHandler {
	return func(call *UnaryCall, next gorawronion.Next[any]) (any, error) {
		m, ok := r.Match(call.Info.FullMethod)
		if !ok || m.Policy == nil || m.Policy.Cache == nil {
			return next()
		}
		req, ok := call.Req.(proto.Message)
		if !ok {
			return next()
		}
		key, ok := responseKey(call.Info.FullMethod, req)
		if !ok {
			return next()
		}

		var (
			ran  bool
			resp any
		)
		b, err := store.GetOrSet(call.Ctx, key, m.Policy.Cache.TTL, func(_ context.Context) ([]byte, error) {
			ran = true
			var err error
			resp, err = next()
			if err != nil {
				return nil, err
			}
			return encodeResponse(resp)
		})
		switch {
		case errors.Is(err, errNotCacheable):
			if ran {
				return resp, nil
			}
			return next()
		case err != nil:
			return nil, err
		case ran:
			return resp, nil
		}
		return decodeResponse(b)
	}
}
