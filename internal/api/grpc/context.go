package grpc

import (
	"context"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"adboard-backend/internal/api/grpc/interceptor"
)

// AccountIDFromContext extracts the account id the auth interceptor placed in
// the incoming metadata.
func AccountIDFromContext(ctx context.Context) (int64, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	ids := md.Get(interceptor.AccountIDKey)
	if len(ids) == 0 {
		return 0, status.Errorf(codes.Unauthenticated, "account id is not provided in metadata")
	}

	id, err := strconv.ParseInt(ids[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, status.Errorf(codes.InvalidArgument, "invalid account id %q", ids[0])
	}
	return id, nil
}
