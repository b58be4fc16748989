package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/apismoke/internal/jsonfield"
	"github.com/loykin/apismoke/internal/util"
)

// Paths and response fields of the inventory service contract.
const (
	pathRegister = "/register"
	pathLogin    = "/login"
	pathProducts = "/products"
	pathQuantity = "/products/{product_id}/quantity"

	fieldAccessToken = "access_token"
	fieldProductID   = "product_id"
	fieldProducts    = "products"
	fieldItemID      = "_id"
	fieldQuantity    = "quantity"
	fieldCurrentPage = "currentPage"
	fieldTotalPages  = "totalPages"
)

// exchange is one HTTP round trip as the steps see it.
type exchange struct {
	status int
	body   []byte
	err    error
}

type request struct {
	method     string
	path       string
	body       []byte
	pathParams map[string]string
	query      map[string]string
}

func (r *run) send(ctx context.Context, c *resty.Client, req request) exchange {
	rr := c.R().SetContext(ctx)
	if req.body != nil {
		rr.SetHeader("Content-Type", "application/json").SetBody(req.body)
	}
	if len(req.pathParams) > 0 {
		rr.SetPathParams(req.pathParams)
	}
	if len(req.query) > 0 {
		rr.SetQueryParams(req.query)
	}
	r.logger.WithRequest(req.method, util.JoinURL(r.out.BaseURL, req.path)).Debug("sending request", "body_size", len(req.body))
	resp, err := rr.Execute(req.method, req.path)
	if err != nil {
		return exchange{err: err}
	}
	return exchange{status: resp.StatusCode(), body: resp.Body()}
}

// begin starts a result and records the request body it will send.
func begin(l link, body []byte, expected string) StepResult {
	return StepResult{Name: l.name, State: l.state, RequestBody: body, Expected: expected}
}

func fail(res StepResult, kind FailureKind, got, detail string) StepResult {
	res.Passed = false
	res.Failure = kind
	if got != "" {
		res.Got = got
	}
	res.Detail = detail
	return res
}

func pass(res StepResult) StepResult {
	res.Passed = true
	res.Failure = FailureNone
	return res
}

// received copies the HTTP outcome into res. ok is false on transport errors.
func received(res StepResult, ex exchange) (StepResult, bool) {
	if ex.err != nil {
		return fail(res, FailureTransport, "no response", transportDetail(ex.err)), false
	}
	res.StatusCode = ex.status
	res.Got = strconv.Itoa(ex.status)
	res.ResponseBody = string(ex.body)
	return res, true
}

func transportDetail(err error) string {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return "request timed out: " + err.Error()
	}
	return "connection failed: " + err.Error()
}

func unexpectedStatus(res StepResult, accepted ...int) StepResult {
	return fail(res, FailureUnexpectedStatus, "", fmt.Sprintf("status %d not in %v", res.StatusCode, accepted))
}

// fieldFailure maps a jsonfield error onto the failure taxonomy.
func fieldFailure(res StepResult, err error) StepResult {
	var mf *jsonfield.MissingFieldError
	switch {
	case errors.Is(err, jsonfield.ErrMalformedBody):
		return fail(res, FailureMalformedBody, "", err.Error())
	case errors.As(err, &mf):
		return fail(res, FailureMissingField, "", mf.Error())
	default:
		return fail(res, FailureMalformedBody, "", err.Error())
	}
}

func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return b, nil
}

func (r *run) register(ctx context.Context, l link) StepResult {
	body, err := encode(r.fixture.Credentials)
	res := begin(l, body, "201 or 409")
	if err != nil {
		return fail(res, FailureRequestBuild, "", err.Error())
	}

	res, ok := received(res, r.send(ctx, r.plain, request{method: http.MethodPost, path: pathRegister, body: body}))
	if !ok {
		return res
	}
	if res.StatusCode != http.StatusCreated && res.StatusCode != http.StatusConflict {
		return unexpectedStatus(res, http.StatusCreated, http.StatusConflict)
	}
	return pass(res)
}

func (r *run) login(ctx context.Context, l link) StepResult {
	body, err := encode(r.fixture.Credentials)
	res := begin(l, body, "200 with access_token")
	if err != nil {
		return fail(res, FailureRequestBuild, "", err.Error())
	}

	res, ok := received(res, r.send(ctx, r.plain, request{method: http.MethodPost, path: pathLogin, body: body}))
	if !ok {
		return res
	}
	if res.StatusCode != http.StatusOK {
		return unexpectedStatus(res, http.StatusOK)
	}
	doc, err := jsonfield.Parse([]byte(res.ResponseBody))
	if err != nil {
		return fieldFailure(res, err)
	}
	token, err := doc.String(fieldAccessToken)
	if err != nil {
		return fieldFailure(res, err)
	}
	r.setToken(ctx, token)
	return pass(res)
}

func (r *run) addProduct(ctx context.Context, l link) StepResult {
	body, err := encode(r.fixture.productFor(r.out.RunID))
	res := begin(l, body, "201 with product_id")
	if err != nil {
		return fail(res, FailureRequestBuild, "", err.Error())
	}

	res, ok := received(res, r.send(ctx, r.authed, request{method: http.MethodPost, path: pathProducts, body: body}))
	if !ok {
		return res
	}
	if res.StatusCode != http.StatusCreated {
		return unexpectedStatus(res, http.StatusCreated)
	}
	doc, err := jsonfield.Parse([]byte(res.ResponseBody))
	if err != nil {
		return fieldFailure(res, err)
	}
	id, err := doc.String(fieldProductID)
	if err != nil {
		return fieldFailure(res, err)
	}
	r.session.ProductID = id
	return pass(res)
}

func (r *run) updateQuantity(ctx context.Context, l link) StepResult {
	body, err := encode(map[string]int{fieldQuantity: r.fixture.UpdateQuantity})
	res := begin(l, body, strconv.Itoa(http.StatusOK))
	if err != nil {
		return fail(res, FailureRequestBuild, "", err.Error())
	}

	res, ok := received(res, r.send(ctx, r.authed, request{
		method:     http.MethodPut,
		path:       pathQuantity,
		body:       body,
		pathParams: map[string]string{"product_id": r.session.ProductID},
	}))
	if !ok {
		return res
	}
	if res.StatusCode != http.StatusOK {
		return unexpectedStatus(res, http.StatusOK)
	}
	return pass(res)
}

func (r *run) listProducts(ctx context.Context, l link) StepResult {
	want := r.fixture.UpdateQuantity
	res := begin(l, nil, strconv.Itoa(http.StatusOK))

	query := map[string]string{}
	if r.fixture.List.Page > 0 {
		query["page"] = strconv.Itoa(r.fixture.List.Page)
	}
	if r.fixture.List.Limit > 0 {
		query["limit"] = strconv.Itoa(r.fixture.List.Limit)
	}

	res, ok := received(res, r.send(ctx, r.authed, request{method: http.MethodGet, path: pathProducts, query: query}))
	if !ok {
		return res
	}
	if res.StatusCode != http.StatusOK {
		return unexpectedStatus(res, http.StatusOK)
	}

	doc, err := jsonfield.Parse([]byte(res.ResponseBody))
	if err != nil {
		res.Expected = "Valid JSON response"
		return fieldFailure(res, err)
	}
	item, found, err := doc.Find(fieldProducts, fieldItemID, r.session.ProductID)
	if err != nil {
		res.Expected = "Valid JSON response"
		return fieldFailure(res, err)
	}
	if !found {
		res.Expected = fmt.Sprintf("Product with id %s to be found", r.session.ProductID)
		detail := fmt.Sprintf("no entry in %s with %s %s", fieldProducts, fieldItemID, r.session.ProductID)
		if hint := pageHint(doc); hint != "" {
			detail += "; " + hint
		}
		return fail(res, FailureNotFound, "Not Found", detail)
	}

	res.Expected = fmt.Sprintf("Quantity %d", want)
	got, present, isInt := jsonfield.Int(item, fieldQuantity)
	switch {
	case !present:
		return fail(res, FailureMissingField, "Quantity <missing>", fmt.Sprintf("field %q is missing on product %s", fieldQuantity, r.session.ProductID))
	case !isInt || got != int64(want):
		raw := item.Get(fieldQuantity).Raw
		return fail(res, FailureValueMismatch, "Quantity "+raw, fmt.Sprintf("quantity %s does not equal %d", raw, want))
	}
	res.Got = fmt.Sprintf("Quantity %d", got)
	return pass(res)
}

// pageHint flags a listing whose pagination metadata says more pages exist,
// so a NotFound may only mean the product sits on another page.
func pageHint(doc jsonfield.Document) string {
	total, _, ok := jsonfield.Int(doc.Root(), fieldTotalPages)
	if !ok {
		return ""
	}
	current, _, ok := jsonfield.Int(doc.Root(), fieldCurrentPage)
	if !ok {
		current = 1
	}
	if total > current {
		return fmt.Sprintf("listing reports page %d of %d, the product may be on a later page", current, total)
	}
	return ""
}

// elapsed stamps the duration on a result.
func elapsed(res StepResult, start time.Time) StepResult {
	res.Duration = time.Since(start)
	return res
}
