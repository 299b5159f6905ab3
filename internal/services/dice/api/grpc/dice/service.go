// Package dice implements the dicebox.dice.v1.DiceService gRPC API. Messages
// travel as google.protobuf.Struct values so the service needs no generated
// code; messages.go holds the typed views of each payload.
package dice

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/louisbranch/dicebox/internal/platform/errors"
	"github.com/louisbranch/dicebox/internal/platform/grpc/pagination"
	"github.com/louisbranch/dicebox/internal/services/dice/filter"
	"github.com/louisbranch/dicebox/internal/services/dice/storage"
	"github.com/louisbranch/dicebox/internal/services/shared/roller"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "dicebox.dice.v1.DiceService"

// LocaleHeader selects the language of error details.
const LocaleHeader = "x-dicebox-locale"

var listRollsPageConfig = pagination.PageSizeConfig{Default: 20, Max: 100}

// DiceServer is the server API for DiceService.
type DiceServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Explain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOperators(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRoll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRolls(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyReceipt(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Service implements DiceServer.
type Service struct {
	roller *roller.Roller
	store  storage.RollStore
}

var _ DiceServer = (*Service)(nil)

// NewService returns the dice service. A nil store disables the history
// methods and persisted rolls.
func NewService(r *roller.Roller, store storage.RollStore) *Service {
	return &Service{roller: r, store: store}
}

// RegisterDiceServer registers srv on s.
func RegisterDiceServer(s grpc.ServiceRegistrar, srv DiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Evaluate rolls one expression.
func (s *Service) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := evaluateRequestFromProto(in)
	if err != nil {
		return nil, handleError(ctx, apperrors.Wrap(apperrors.CodeInvalidSeed, err.Error(), err))
	}
	if req.Persist && s.store == nil {
		req.Persist = false
	}
	out, err := s.roller.Roll(ctx, roller.Request{
		Expression: req.Expression,
		Seed:       req.Seed,
		HasSeed:    req.HasSeed,
		Persist:    req.Persist,
	})
	if err != nil {
		return nil, handleError(ctx, err)
	}
	return Roll{
		ID:         out.ID,
		Expression: out.Expression,
		Display:    out.Display,
		Text:       out.Text,
		Seed:       out.Seed,
		Receipt:    out.Receipt,
		CreatedAt:  out.CreatedAt,
	}.toProto()
}

// Explain returns the canonical parenthesized form of an expression.
func (s *Service) Explain(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	canonical, err := s.roller.Explain(ctx, stringField(in, "expression"))
	if err != nil {
		return nil, handleError(ctx, err)
	}
	return singleField("canonical", canonical), nil
}

// ListOperators returns the operator help text.
func (s *Service) ListOperators(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return singleField("operators", s.roller.Operators()), nil
}

// GetRoll returns one stored roll with a fresh receipt.
func (s *Service) GetRoll(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.store == nil {
		return nil, handleError(ctx, apperrors.New(apperrors.CodeNotFound, "roll history is disabled"))
	}
	rollID := strings.TrimSpace(stringField(in, "id"))
	if rollID == "" {
		return nil, handleError(ctx, apperrors.New(apperrors.CodeRollIDEmpty, "roll id is required"))
	}
	stored, err := s.store.GetRoll(ctx, rollID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = apperrors.Wrap(apperrors.CodeNotFound, "roll not found", err)
		}
		return nil, handleError(ctx, err)
	}
	roll := rollFromStorage(stored)
	if roll.Receipt, err = s.roller.Receipt(stored); err != nil {
		return nil, handleError(ctx, err)
	}
	return roll.toProto()
}

// ListRolls returns one page of stored rolls, newest first.
func (s *Service) ListRolls(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.store == nil {
		return ListRollsResponse{}.toProto()
	}
	req := listRollsRequestFromProto(in)
	before, err := pagination.DecodeToken(req.PageToken)
	if err != nil {
		return nil, handleError(ctx, apperrors.Wrap(apperrors.CodeInvalidPageToken, err.Error(), err))
	}
	where, err := filter.ParseRollFilter(req.Filter)
	if err != nil {
		return nil, handleError(ctx, apperrors.WrapWithMetadata(
			apperrors.CodeInvalidFilter, err.Error(), map[string]string{"Detail": err.Error()}, err,
		))
	}

	page, err := s.store.ListRolls(ctx, storage.RollQuery{
		PageSize:  pagination.ClampPageSize(req.PageSize, listRollsPageConfig),
		BeforeSeq: before,
		Where:     where,
	})
	if err != nil {
		return nil, handleError(ctx, err)
	}
	resp := ListRollsResponse{Rolls: make([]Roll, 0, len(page.Rolls))}
	for _, stored := range page.Rolls {
		resp.Rolls = append(resp.Rolls, rollFromStorage(stored))
	}
	if page.NextSeq > 0 {
		resp.NextPageToken = pagination.EncodeToken(page.NextSeq)
	}
	return resp.toProto()
}

// VerifyReceipt checks a receipt issued by this service.
func (s *Service) VerifyReceipt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	claims, err := s.roller.Verify(stringField(in, "receipt"))
	if err != nil {
		return nil, handleError(ctx, err)
	}
	return ReceiptClaims{
		RollID:     claims.RollID,
		Expression: claims.Expression,
		Display:    claims.Display,
		Seed:       claims.Seed,
		IssuedAt:   claims.IssuedAt,
	}.toProto()
}

func rollFromStorage(stored storage.Roll) Roll {
	return Roll{
		ID:         stored.ID,
		Expression: stored.Expression,
		Display:    stored.Display,
		Error:      stored.Error,
		Seed:       stored.Seed,
		CreatedAt:  stored.CreatedAt,
	}
}

func handleError(ctx context.Context, err error) error {
	return apperrors.HandleError(err, localeFromContext(ctx))
}

func localeFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(LocaleHeader); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func unaryHandler(method string, call func(DiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc is the grpc.ServiceDesc for DiceService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Evaluate", DiceServer.Evaluate),
		unaryHandler("Explain", DiceServer.Explain),
		unaryHandler("ListOperators", DiceServer.ListOperators),
		unaryHandler("GetRoll", DiceServer.GetRoll),
		unaryHandler("ListRolls", DiceServer.ListRolls),
		unaryHandler("VerifyReceipt", DiceServer.VerifyReceipt),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dicebox/dice/v1/dice.proto",
}
