package odtuclass

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

const rpcPath = "/lib/ajax/service.php"

// RPCCall is one method invocation; several can share one request.
type RPCCall struct {
	Method string
	Args   any
}

type rpcEnvelope struct {
	Index      int    `json:"index"`
	MethodName string `json:"methodname"`
	Args       any    `json:"args"`
}

type rpcResult struct {
	// bool on most deployments, an error string on some
	Error     json.RawMessage `json:"error"`
	Exception *rpcException   `json:"exception"`
	Data      json.RawMessage `json:"data"`
}

type rpcException struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorcode"`
}

func (r rpcResult) failed() bool {
	flag := strings.TrimSpace(string(r.Error))
	return flag != "" && flag != "false" && flag != "null"
}

func (r rpcResult) errorMessage() string {
	if r.Exception != nil && r.Exception.Message != "" {
		return r.Exception.Message
	}
	var text string
	if json.Unmarshal(r.Error, &text) == nil && text != "" {
		return text
	}
	return "API call failed"
}

// Call invokes one remote method. An auth-classified failure triggers a
// full re-login from stored credentials and exactly one retry; if the
// re-login itself fails, the original error is surfaced.
func (c *Client) Call(ctx context.Context, method string, args any) (json.RawMessage, error) {
	out, err := c.callOnce(ctx, method, args)
	if err == nil {
		return out, nil
	}
	if !c.canRelogin() || !isAuthRelated(err) {
		return nil, err
	}

	slog.DebugContext(ctx, "re-login after auth-classified failure", "method", method, "err", err)
	if rerr := c.relogin(ctx); rerr != nil {
		return nil, err
	}
	return c.callOnce(ctx, method, args)
}

func (c *Client) callOnce(ctx context.Context, method string, args any) (json.RawMessage, error) {
	results, err := c.rpc(ctx, method, []rpcEnvelope{{Index: 0, MethodName: method, Args: args}})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &APIError{Message: "empty response from server"}
	}
	if results[0].failed() {
		return nil, &APIError{Message: results[0].errorMessage()}
	}
	return results[0].Data, nil
}

// BatchCall sends several envelopes in one physical request and returns
// the data payloads in request order, failing on the first element that
// carries an error. The same single re-login cycle applies.
func (c *Client) BatchCall(ctx context.Context, calls []RPCCall) ([]json.RawMessage, error) {
	out, err := c.batchOnce(ctx, calls)
	if err == nil {
		return out, nil
	}
	if !c.canRelogin() || !isAuthRelated(err) {
		return nil, err
	}
	if rerr := c.relogin(ctx); rerr != nil {
		return nil, err
	}
	return c.batchOnce(ctx, calls)
}

func (c *Client) batchOnce(ctx context.Context, calls []RPCCall) ([]json.RawMessage, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	methods := make([]string, len(calls))
	body := make([]rpcEnvelope, len(calls))
	for i, call := range calls {
		methods[i] = call.Method
		body[i] = rpcEnvelope{Index: i, MethodName: call.Method, Args: call.Args}
	}

	results, err := c.rpc(ctx, strings.Join(methods, ","), body)
	if err != nil {
		return nil, err
	}
	data := make([]json.RawMessage, len(results))
	for i, result := range results {
		if result.failed() {
			return nil, &APIError{Message: result.errorMessage()}
		}
		data[i] = result.Data
	}
	return data, nil
}

// rpc posts an envelope list to the AJAX endpoint with the sesskey and
// method names as query parameters and decodes the result array.
func (c *Client) rpc(ctx context.Context, info string, body []rpcEnvelope) ([]rpcResult, error) {
	ctx, span := tracer.Start(ctx, "client:rpc")
	defer span.End()

	res, _, err := c.execute(ctx, resty.MethodPost, c.baseUrl()+rpcPath, func(r *resty.Request) {
		r.SetQueryParam("sesskey", c.session.Sesskey)
		r.SetQueryParam("info", info)
		r.SetHeader("content-type", "application/json")
		r.SetBody(body)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rpc request failed")
		return nil, err
	}

	raw := bytes.TrimSpace(res.Body())
	if len(raw) == 0 || (raw[0] != '[' && raw[0] != '{') {
		// login or error pages come back as HTML, session dumps as strings
		span.SetStatus(codes.Error, "non-json rpc response")
		return nil, &APIError{Message: "unexpected response from server"}
	}
	if raw[0] == '{' {
		var envelope struct {
			Error   json.RawMessage `json:"error"`
			Message string          `json:"message"`
		}
		err := json.Unmarshal(raw, &envelope)
		if err != nil || len(envelope.Error) == 0 {
			return nil, &APIError{Message: "unexpected response from server"}
		}
		message := envelope.Message
		if message == "" {
			message = "unknown API error"
		}
		span.SetStatus(codes.Error, message)
		return nil, &APIError{Message: message}
	}

	var results []rpcResult
	err = json.Unmarshal(raw, &results)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode rpc response")
		return nil, &APIError{Message: "unexpected response from server"}
	}
	return results, nil
}
