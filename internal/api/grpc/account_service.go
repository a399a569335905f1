package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/service"
)

const (
	accountServiceName   = "adboard.v1.AccountService"
	GetBalanceMethod     = "/" + accountServiceName + "/GetBalance"
	GetSaleStatusMethod  = "/" + accountServiceName + "/GetSaleStatus"
	accountServiceSource = "adboard/v1/account.proto"
)

// AccountHandler answers read-only account queries for the caller the auth
// interceptor identified. Messages are protobuf well-known types, so the
// service needs no generated code.
type AccountHandler interface {
	GetBalance(ctx context.Context, req *emptypb.Empty) (*wrapperspb.StringValue, error)
	GetSaleStatus(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.StringValue, error)
}

type AccountServer struct {
	ledger service.LedgerService
	sales  service.SaleService
}

func NewAccountServer(ledger service.LedgerService, sales service.SaleService) *AccountServer {
	return &AccountServer{ledger: ledger, sales: sales}
}

// GetBalance returns the caller's balance formatted with two decimals.
func (s *AccountServer) GetBalance(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	accountID, err := AccountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bal, err := s.ledger.Balance(ctx, accountID)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(bal.StringFixed(2)), nil
}

// GetSaleStatus returns the status of a sale the caller is a party to.
func (s *AccountServer) GetSaleStatus(ctx context.Context, req *wrapperspb.Int64Value) (*wrapperspb.StringValue, error) {
	accountID, err := AccountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if req.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "sale id is required")
	}
	sale, err := s.sales.Get(ctx, accountID, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(string(sale.Status)), nil
}

var accountServiceDesc = grpc.ServiceDesc{
	ServiceName: accountServiceName,
	HandlerType: (*AccountHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBalance", Handler: getBalanceHandler},
		{MethodName: "GetSaleStatus", Handler: getSaleStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: accountServiceSource,
}

// RegisterAccountServer attaches h to s under adboard.v1.AccountService.
func RegisterAccountServer(s grpc.ServiceRegistrar, h AccountHandler) {
	s.RegisterService(&accountServiceDesc, h)
}

func getBalanceHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountHandler).GetBalance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetBalanceMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AccountHandler).GetBalance(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getSaleStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountHandler).GetSaleStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetSaleStatusMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AccountHandler).GetSaleStatus(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{domain.ErrNotFound, codes.NotFound},
	{domain.ErrAccountBanned, codes.PermissionDenied},
	{domain.ErrForbidden, codes.PermissionDenied},
	{domain.ErrValidation, codes.InvalidArgument},
}

func toStatus(err error) error {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return status.Error(e.code, err.Error())
		}
	}
	logger.Error("RPC failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
