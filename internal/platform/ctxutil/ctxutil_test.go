package ctxutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestData(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetRequestData(ctx))
	assert.Zero(t, UserID(ctx))

	ctx = WithRequestData(ctx, &RequestData{UserID: 42, TokenString: "tok"})
	assert.Equal(t, uint(42), UserID(ctx))
	assert.Equal(t, "tok", GetRequestData(ctx).TokenString)
}

func TestTraceData(t *testing.T) {
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t", RequestID: "r"})
	td := GetTraceData(ctx)
	assert.Equal(t, "t", td.TraceID)
	assert.Equal(t, "r", td.RequestID)
	assert.Nil(t, GetTraceData(context.Background()))
}
