package dice

import (
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// EvaluateRequest asks the service to roll one expression.
type EvaluateRequest struct {
	Expression string
	// Seed is honored when HasSeed is set.
	Seed    int64
	HasSeed bool
	Persist bool
}

// Roll is a finished evaluation as seen by clients. Stored rolls carry an ID;
// failed stored rolls carry Error instead of Display.
type Roll struct {
	ID         string
	Expression string
	Display    string
	Text       string
	Error      string
	Seed       int64
	Receipt    string
	CreatedAt  time.Time
}

// ListRollsRequest selects one page of stored rolls.
type ListRollsRequest struct {
	PageSize  int32
	PageToken string
	Filter    string
}

// ListRollsResponse is one page of stored rolls, newest first.
type ListRollsResponse struct {
	Rolls         []Roll
	NextPageToken string
}

// ReceiptClaims are the verified contents of a roll receipt.
type ReceiptClaims struct {
	RollID     string
	Expression string
	Display    string
	Seed       int64
	IssuedAt   time.Time
}

// Seeds travel as decimal strings: struct numbers are doubles and would lose
// precision past 2^53.

func (r EvaluateRequest) toProto() (*structpb.Struct, error) {
	fields := map[string]any{
		"expression": r.Expression,
		"persist":    r.Persist,
	}
	if r.HasSeed {
		fields["seed"] = strconv.FormatInt(r.Seed, 10)
	}
	return structpb.NewStruct(fields)
}

func evaluateRequestFromProto(s *structpb.Struct) (EvaluateRequest, error) {
	req := EvaluateRequest{
		Expression: stringField(s, "expression"),
		Persist:    boolField(s, "persist"),
	}
	seed, ok, err := int64Field(s, "seed")
	if err != nil {
		return EvaluateRequest{}, err
	}
	req.Seed, req.HasSeed = seed, ok
	return req, nil
}

func (r Roll) fields() map[string]any {
	fields := map[string]any{
		"expression": r.Expression,
		"display":    r.Display,
		"seed":       strconv.FormatInt(r.Seed, 10),
	}
	optional := map[string]string{
		"id":      r.ID,
		"text":    r.Text,
		"error":   r.Error,
		"receipt": r.Receipt,
	}
	for key, value := range optional {
		if value != "" {
			fields[key] = value
		}
	}
	if !r.CreatedAt.IsZero() {
		fields["created_at"] = formatTime(r.CreatedAt)
	}
	return fields
}

func (r Roll) toProto() (*structpb.Struct, error) {
	return structpb.NewStruct(r.fields())
}

func rollFromProto(s *structpb.Struct) (Roll, error) {
	roll := Roll{
		ID:         stringField(s, "id"),
		Expression: stringField(s, "expression"),
		Display:    stringField(s, "display"),
		Text:       stringField(s, "text"),
		Error:      stringField(s, "error"),
		Receipt:    stringField(s, "receipt"),
	}
	var err error
	if roll.Seed, _, err = int64Field(s, "seed"); err != nil {
		return Roll{}, err
	}
	if roll.CreatedAt, err = timeField(s, "created_at"); err != nil {
		return Roll{}, err
	}
	return roll, nil
}

func (r ListRollsRequest) toProto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"page_size":  r.PageSize,
		"page_token": r.PageToken,
		"filter":     r.Filter,
	})
}

func listRollsRequestFromProto(s *structpb.Struct) ListRollsRequest {
	return ListRollsRequest{
		PageSize:  int32(s.GetFields()["page_size"].GetNumberValue()),
		PageToken: stringField(s, "page_token"),
		Filter:    stringField(s, "filter"),
	}
}

func (r ListRollsResponse) toProto() (*structpb.Struct, error) {
	rolls := make([]any, 0, len(r.Rolls))
	for _, roll := range r.Rolls {
		rolls = append(rolls, roll.fields())
	}
	return structpb.NewStruct(map[string]any{
		"rolls":           rolls,
		"next_page_token": r.NextPageToken,
	})
}

func listRollsResponseFromProto(s *structpb.Struct) (ListRollsResponse, error) {
	resp := ListRollsResponse{NextPageToken: stringField(s, "next_page_token")}
	for _, item := range s.GetFields()["rolls"].GetListValue().GetValues() {
		roll, err := rollFromProto(item.GetStructValue())
		if err != nil {
			return ListRollsResponse{}, err
		}
		resp.Rolls = append(resp.Rolls, roll)
	}
	return resp, nil
}

func (c ReceiptClaims) toProto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"roll_id":    c.RollID,
		"expression": c.Expression,
		"display":    c.Display,
		"seed":       strconv.FormatInt(c.Seed, 10),
		"issued_at":  formatTime(c.IssuedAt),
	})
}

func receiptClaimsFromProto(s *structpb.Struct) (ReceiptClaims, error) {
	claims := ReceiptClaims{
		RollID:     stringField(s, "roll_id"),
		Expression: stringField(s, "expression"),
		Display:    stringField(s, "display"),
	}
	var err error
	if claims.Seed, _, err = int64Field(s, "seed"); err != nil {
		return ReceiptClaims{}, err
	}
	if claims.IssuedAt, err = timeField(s, "issued_at"); err != nil {
		return ReceiptClaims{}, err
	}
	return claims, nil
}

func singleField(key, value string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		key: structpb.NewStringValue(value),
	}}
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func boolField(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

// int64Field reads a decimal string, or a whole number for hand-written
// clients.
func int64Field(s *structpb.Struct, key string) (int64, bool, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, false, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("field %s: %w", key, err)
		}
		return n, true, nil
	case *structpb.Value_NumberValue:
		return int64(kind.NumberValue), true, nil
	case *structpb.Value_NullValue:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("field %s: want integer, got %T", key, kind)
	}
}

// Times use the protobuf Timestamp JSON form.
func formatTime(t time.Time) string {
	return timestamppb.New(t).AsTime().Format(time.RFC3339Nano)
}

func timeField(s *structpb.Struct, key string) (time.Time, error) {
	raw := stringField(s, key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", key, err)
	}
	ts := timestamppb.New(t)
	if err := ts.CheckValid(); err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", key, err)
	}
	return ts.AsTime(), nil
}
