package dice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls DiceService over a connection.
type Client struct {
	conn   grpc.ClientConnInterface
	locale string
}

// NewClient returns a client for conn. A non-empty locale is sent with every
// call so error details come back translated.
func NewClient(conn grpc.ClientConnInterface, locale string) *Client {
	return &Client{conn: conn, locale: locale}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	if c.locale != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, LocaleHeader, c.locale)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluate rolls one expression.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (Roll, error) {
	in, err := req.toProto()
	if err != nil {
		return Roll{}, err
	}
	out, err := c.invoke(ctx, "Evaluate", in)
	if err != nil {
		return Roll{}, err
	}
	return rollFromProto(out)
}

// Explain returns the canonical parenthesized form of expr.
func (c *Client) Explain(ctx context.Context, expr string) (string, error) {
	out, err := c.invoke(ctx, "Explain", singleField("expression", expr))
	if err != nil {
		return "", err
	}
	return stringField(out, "canonical"), nil
}

// ListOperators returns the operator help text.
func (c *Client) ListOperators(ctx context.Context) (string, error) {
	out, err := c.invoke(ctx, "ListOperators", &structpb.Struct{})
	if err != nil {
		return "", err
	}
	return stringField(out, "operators"), nil
}

// GetRoll returns one stored roll.
func (c *Client) GetRoll(ctx context.Context, rollID string) (Roll, error) {
	out, err := c.invoke(ctx, "GetRoll", singleField("id", rollID))
	if err != nil {
		return Roll{}, err
	}
	return rollFromProto(out)
}

// ListRolls returns one page of stored rolls.
func (c *Client) ListRolls(ctx context.Context, req ListRollsRequest) (ListRollsResponse, error) {
	in, err := req.toProto()
	if err != nil {
		return ListRollsResponse{}, err
	}
	out, err := c.invoke(ctx, "ListRolls", in)
	if err != nil {
		return ListRollsResponse{}, err
	}
	return listRollsResponseFromProto(out)
}

// VerifyReceipt checks a receipt and returns its claims.
func (c *Client) VerifyReceipt(ctx context.Context, token string) (ReceiptClaims, error) {
	out, err := c.invoke(ctx, "VerifyReceipt", singleField("receipt", token))
	if err != nil {
		return ReceiptClaims{}, err
	}
	return receiptClaimsFromProto(out)
}
