package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cafesync/internal/domain/order"
	"cafesync/internal/handler/dto/request"
	"cafesync/internal/handler/dto/response"
	"cafesync/internal/handler/httperr"
	"cafesync/internal/pkg/errs"
)

// Client talks to the order API. Status values in responses pass through
// NormalizeStatus at the decode boundary, so producer vocabulary never
// reaches the store even if the server starts echoing it.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, requestTimeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) ListOrders(ctx context.Context) ([]order.Order, error) {
	var res response.OrderListResponse
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &res); err != nil {
		return nil, err
	}
	orders := make([]order.Order, 0, len(res.Orders))
	for i := range res.Orders {
		o, err := decodeOrder(&res.Orders[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	var res response.OrderResponse
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+id, nil, &res); err != nil {
		return nil, err
	}
	return decodeOrder(&res)
}

func (c *Client) ChangeStatus(ctx context.Context, id string, to order.Status, estimatedReadyAt *time.Time) (*order.Order, error) {
	body := request.ChangeStatusRequest{Status: to.String(), EstimatedReadyAt: estimatedReadyAt}
	var res response.OrderResponse
	if err := c.do(ctx, http.MethodPut, "/api/orders/"+id+"/status", body, &res); err != nil {
		return nil, err
	}
	return decodeOrder(&res)
}

func (c *Client) VerifyPayment(ctx context.Context, id, verifiedBy string, method order.PaymentMethod) (*order.Order, bool, error) {
	body := request.VerifyPaymentRequest{VerifiedBy: verifiedBy, PaymentMethod: method.String()}
	var res response.VerifyPaymentResponse
	if err := c.do(ctx, http.MethodPost, "/api/orders/"+id+"/verify-payment", body, &res); err != nil {
		return nil, false, err
	}
	o, err := decodeOrder(&res.Order)
	if err != nil {
		return nil, false, err
	}
	return o, res.AlreadyVerified, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errs.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errs.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Mark(errs.Wrap(err, method+" "+path), ErrTransport)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Mark(errs.Wrap(err, "decode response"), ErrTransport)
	}
	return nil
}

// decodeAPIError maps the server's machine-readable codes back onto the
// session taxonomy. A body that is not the error contract (proxy page, 502)
// counts as a transport failure.
func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body httperr.Response
	if err := json.Unmarshal(raw, &body); err != nil || body.Error.Code == "" {
		return errs.Mark(errs.New(fmt.Sprintf("unexpected response %s", resp.Status)), ErrTransport)
	}

	base := errs.New(fmt.Sprintf("%s (%s)", body.Error.Message, body.Error.Code))
	switch body.Error.Code {
	case httperr.CodeOrderNotFound:
		return errs.Mark(base, ErrOrderNotFound)
	case httperr.CodeInvalidTransition:
		return errs.Mark(base, ErrInvalidTransition)
	case httperr.CodeInvalidMethod:
		return errs.Mark(base, ErrInvalidMethod)
	case httperr.CodeProofMissing:
		return errs.Mark(base, ErrProofMissing)
	default:
		return errs.Mark(base, ErrTransport)
	}
}

func decodeOrder(res *response.OrderResponse) (*order.Order, error) {
	st, err := order.NormalizeStatus(res.Status)
	if err != nil {
		return nil, errs.Wrap(err, "decode order "+res.ID)
	}
	payStatus, err := order.NormalizePaymentStatus(res.PaymentStatus)
	if err != nil {
		return nil, errs.Wrap(err, "decode order "+res.ID)
	}

	o := &order.Order{
		ID:               res.ID,
		CustomerName:     res.CustomerName,
		TableNumber:      res.TableNumber,
		Type:             order.Type(res.Type),
		TotalCents:       res.TotalCents,
		Note:             res.Note,
		Status:           st,
		PaymentStatus:    payStatus,
		PaymentMethod:    order.PaymentMethod(res.PaymentMethod),
		EstimatedReadyAt: res.EstimatedReadyAt,
		Version:          res.Version,
		PlacedAt:         res.PlacedAt,
		UpdatedAt:        res.UpdatedAt,
	}
	for _, it := range res.Items {
		o.Items = append(o.Items, order.LineItem(it))
	}
	return o, nil
}
