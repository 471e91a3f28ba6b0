package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	billdomain "github.com/smallbiznis/bursary/internal/demandbill/domain"
	paymentdomain "github.com/smallbiznis/bursary/internal/feepayment/domain"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePaymentService struct {
	paymentdomain.Service

	collectCalls int
	lastCollect  paymentdomain.CollectRequest
	lastActor    string
	collectErr   error
}

func (f *fakePaymentService) Collect(ctx context.Context, req paymentdomain.CollectRequest) (paymentdomain.FeeTransaction, error) {
	f.collectCalls++
	f.lastCollect = req
	f.lastActor = tenantcontext.ActorFromContext(ctx)
	if f.collectErr != nil {
		return paymentdomain.FeeTransaction{}, f.collectErr
	}
	return paymentdomain.FeeTransaction{
		TransactionID: "01HZY0000000000000000000",
		Amount:        req.Amount,
	}, nil
}

type fakeBillService struct {
	billdomain.Service

	err error
}

func (f *fakeBillService) Get(ctx context.Context, billNo string) (billdomain.DemandBill, error) {
	if f.err != nil {
		return billdomain.DemandBill{}, f.err
	}
	return billdomain.DemandBill{BillNo: billNo}, nil
}

func newTestRouter(srv *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	api := router.Group("/api/v1", TenantContext())
	api.POST("/payments", srv.CollectPayment)
	api.GET("/bills/:billNo", srv.GetBill)
	return router
}

func doRequest(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error
}

var tenantHeaders = map[string]string{HeaderTenant: "42", HeaderActor: "cashier@school"}

const validCollectBody = `{
	"student_id": "1001",
	"session_id": "2001",
	"amount": "1000.00",
	"payment_mode": "cash",
	"details": [
		{"fee_type_id": "3001", "amount": "1500", "discount_amount": "500"}
	]
}`

func TestTenantContextRejectsMissingTenant(t *testing.T) {
	payments := &fakePaymentService{}
	router := newTestRouter(&Server{paymentSvc: payments})

	resp := doRequest(router, http.MethodPost, "/api/v1/payments", validCollectBody, nil)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_tenant", decodeError(t, resp).Code)
	assert.Zero(t, payments.collectCalls)
}

func TestCollectPaymentPassesDecodedRequest(t *testing.T) {
	payments := &fakePaymentService{}
	router := newTestRouter(&Server{paymentSvc: payments})

	resp := doRequest(router, http.MethodPost, "/api/v1/payments", validCollectBody, tenantHeaders)

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.Equal(t, 1, payments.collectCalls)
	assert.Equal(t, "cash", payments.lastCollect.PaymentMode)
	assert.True(t, payments.lastCollect.Amount.Equal(decimal.NewFromInt(1000)))
	require.Len(t, payments.lastCollect.Details, 1)
	assert.True(t, payments.lastCollect.Details[0].DiscountAmount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "cashier@school", payments.lastActor)
}

func TestCollectPaymentRejectsUnknownField(t *testing.T) {
	payments := &fakePaymentService{}
	router := newTestRouter(&Server{paymentSvc: payments})

	body := `{"student_id":"1001","session_id":"2001","amount":"10","payment_mode":"cash","details":[{"fee_type_id":"3001","amount":"10"}],"tip":"5"}`
	resp := doRequest(router, http.MethodPost, "/api/v1/payments", body, tenantHeaders)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "tip", payload.Errors[0].Field)
	assert.Equal(t, "unknown_field", payload.Errors[0].Code)
	assert.Zero(t, payments.collectCalls)
}

func TestCollectPaymentRejectsMissingDetails(t *testing.T) {
	payments := &fakePaymentService{}
	router := newTestRouter(&Server{paymentSvc: payments})

	body := `{"student_id":"1001","session_id":"2001","amount":"10","payment_mode":"cash","details":[]}`
	resp := doRequest(router, http.MethodPost, "/api/v1/payments", body, tenantHeaders)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	require.NotEmpty(t, payload.Errors)
	assert.Equal(t, "details", payload.Errors[0].Field)
	assert.Zero(t, payments.collectCalls)
}

func TestCollectPaymentMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", paymentdomain.ErrDetailSumMismatch, http.StatusBadRequest, "detail_sum_mismatch"},
		{"precondition", paymentdomain.ErrBillAlreadyPaid, http.StatusPreconditionFailed, "bill_already_paid"},
		{"not found", apperr.NotFound("student_not_found"), http.StatusNotFound, "student_not_found"},
		{"conflict", paymentdomain.ErrAlreadyReversed, http.StatusConflict, "already_reversed"},
		{"rate limited", apperr.RateLimited("batch_rate_limited"), http.StatusTooManyRequests, "batch_rate_limited"},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, "cancelled"},
		{"internal", errors.New("pq: connection reset"), http.StatusInternalServerError, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payments := &fakePaymentService{collectErr: tc.err}
			router := newTestRouter(&Server{paymentSvc: payments})

			resp := doRequest(router, http.MethodPost, "/api/v1/payments", validCollectBody, tenantHeaders)

			assert.Equal(t, tc.status, resp.Code)
			payload := decodeError(t, resp)
			assert.Equal(t, tc.code, payload.Code)
			assert.NotContains(t, resp.Body.String(), "pq:")
		})
	}
}

func TestGetBillNotFound(t *testing.T) {
	router := newTestRouter(&Server{billSvc: &fakeBillService{err: billdomain.ErrNotFound}})

	resp := doRequest(router, http.MethodGet, "/api/v1/bills/BILL-202404-1", "", tenantHeaders)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "bill_not_found", decodeError(t, resp).Code)
}

func TestGetBillReturnsData(t *testing.T) {
	router := newTestRouter(&Server{billSvc: &fakeBillService{}})

	resp := doRequest(router, http.MethodGet, "/api/v1/bills/BILL-202404-1", "", tenantHeaders)

	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Data billdomain.DemandBill `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "BILL-202404-1", body.Data.BillNo)
}
