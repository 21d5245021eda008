package ctxutil

import "context"

type requestDataKey struct{}

// RequestData carries the authenticated caller through a request.
type RequestData struct {
	TokenString string
	UserID      uint
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey{})
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// UserID returns the authenticated user id, or 0 when there is none.
func UserID(ctx context.Context) uint {
	if rd := GetRequestData(ctx); rd != nil {
		return rd.UserID
	}
	return 0
}
