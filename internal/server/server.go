package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/bursary/internal/academicsession"
	sessiondomain "github.com/smallbiznis/bursary/internal/academicsession/domain"
	"github.com/smallbiznis/bursary/internal/audit"
	auditdomain "github.com/smallbiznis/bursary/internal/audit/domain"
	"github.com/smallbiznis/bursary/internal/batchlock"
	"github.com/smallbiznis/bursary/internal/config"
	"github.com/smallbiznis/bursary/internal/dashboard"
	dashboarddomain "github.com/smallbiznis/bursary/internal/dashboard/domain"
	"github.com/smallbiznis/bursary/internal/demandbill"
	billdomain "github.com/smallbiznis/bursary/internal/demandbill/domain"
	"github.com/smallbiznis/bursary/internal/discount"
	discountdomain "github.com/smallbiznis/bursary/internal/discount/domain"
	"github.com/smallbiznis/bursary/internal/feepayment"
	paymentdomain "github.com/smallbiznis/bursary/internal/feepayment/domain"
	"github.com/smallbiznis/bursary/internal/feestructure"
	structuredomain "github.com/smallbiznis/bursary/internal/feestructure/domain"
	"github.com/smallbiznis/bursary/internal/feetype"
	feetypedomain "github.com/smallbiznis/bursary/internal/feetype/domain"
	"github.com/smallbiznis/bursary/internal/ledger"
	"github.com/smallbiznis/bursary/internal/observability"
	obsmiddleware "github.com/smallbiznis/bursary/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/bursary/internal/observability/metrics"
	obstracing "github.com/smallbiznis/bursary/internal/observability/tracing"
	"github.com/smallbiznis/bursary/internal/promotion"
	promotiondomain "github.com/smallbiznis/bursary/internal/promotion/domain"
	"github.com/smallbiznis/bursary/internal/ratelimit"
	"github.com/smallbiznis/bursary/internal/reference"
	"github.com/smallbiznis/bursary/internal/schoolclass"
	classdomain "github.com/smallbiznis/bursary/internal/schoolclass/domain"
	"github.com/smallbiznis/bursary/internal/student"
	studentdomain "github.com/smallbiznis/bursary/internal/student/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	reference.Module,
	audit.Module,
	ledger.Module,
	batchlock.Module,
	ratelimit.Module,
	academicsession.Module,
	schoolclass.Module,
	student.Module,
	feetype.Module,
	feestructure.Module,
	discount.Module,
	demandbill.Module,
	feepayment.Module,
	promotion.Module,
	dashboard.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	feeTypeSvc   feetypedomain.Service
	classSvc     classdomain.Service
	sessionSvc   sessiondomain.Service
	studentSvc   studentdomain.Service
	structureSvc structuredomain.Service
	discountSvc  discountdomain.Service
	billSvc      billdomain.Service
	paymentSvc   paymentdomain.Service
	promotionSvc promotiondomain.Service
	dashboardSvc dashboarddomain.Service
	auditSvc     auditdomain.Service
	limiter      *ratelimit.BatchLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	FeeTypeSvc   feetypedomain.Service
	ClassSvc     classdomain.Service
	SessionSvc   sessiondomain.Service
	StudentSvc   studentdomain.Service
	StructureSvc structuredomain.Service
	DiscountSvc  discountdomain.Service
	BillSvc      billdomain.Service
	PaymentSvc   paymentdomain.Service
	PromotionSvc promotiondomain.Service
	DashboardSvc dashboarddomain.Service
	AuditSvc     auditdomain.Service
	Limiter      *ratelimit.BatchLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		feeTypeSvc:   p.FeeTypeSvc,
		classSvc:     p.ClassSvc,
		sessionSvc:   p.SessionSvc,
		studentSvc:   p.StudentSvc,
		structureSvc: p.StructureSvc,
		discountSvc:  p.DiscountSvc,
		billSvc:      p.BillSvc,
		paymentSvc:   p.PaymentSvc,
		promotionSvc: p.PromotionSvc,
		dashboardSvc: p.DashboardSvc,
		auditSvc:     p.AuditSvc,
		limiter:      p.Limiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", TenantContext())

	// -------- Fee Types --------
	api.GET("/fee-types", s.ListFeeTypes)
	api.POST("/fee-types", s.CreateFeeType)
	api.POST("/fee-types/seed", s.SeedFeeTypes)
	api.GET("/fee-types/:id", s.GetFeeType)
	api.PATCH("/fee-types/:id", s.UpdateFeeType)
	api.POST("/fee-types/:id/activate", s.ActivateFeeType)
	api.POST("/fee-types/:id/deactivate", s.DeactivateFeeType)
	api.DELETE("/fee-types/:id", s.DeleteFeeType)

	// -------- Classes --------
	api.GET("/classes", s.ListClasses)
	api.POST("/classes", s.CreateClass)
	api.GET("/classes/:name", s.GetClass)
	api.DELETE("/classes/:name", s.DeleteClass)

	// -------- Academic Sessions --------
	api.GET("/sessions", s.ListSessions)
	api.POST("/sessions", s.CreateSession)
	api.GET("/sessions/active", s.GetActiveSession)
	api.GET("/sessions/:id", s.GetSession)
	api.POST("/sessions/:id/activate", s.ActivateSession)
	api.DELETE("/sessions/:id", s.DeleteSession)

	// -------- Students --------
	api.GET("/students", s.ListStudents)
	api.POST("/students", s.AdmitStudent)
	api.GET("/students/:id", s.GetStudent)
	api.GET("/students/:id/history", s.GetStudentHistory)
	api.GET("/students/:id/discounts", s.ListStudentDiscounts)
	api.GET("/students/:id/statement", s.GetStudentStatement)

	// -------- Fee Structures --------
	api.GET("/fee-structures", s.ListFeeStructures)
	api.GET("/fee-structures/resolve", s.ResolveFeeStructure)
	api.PUT("/fee-structures", s.UpsertFeeStructure)
	api.POST("/fee-structures/copy", s.CopyFeeStructures)
	api.DELETE("/fee-structures", s.DeleteFeeStructure)

	// -------- Discounts --------
	api.POST("/discounts", s.CreateDiscount)
	api.PATCH("/discounts/:id", s.UpdateDiscount)
	api.DELETE("/discounts/:id", s.DeleteDiscount)

	// -------- Demand Bills --------
	api.POST("/bills/generate", s.BatchRateLimit("bills.generate"), s.GenerateBills)
	api.POST("/bills/overdue-sweep", s.BatchRateLimit("bills.overdue_sweep"), s.SweepOverdueBills)
	api.GET("/bills", s.ListBills)
	api.GET("/bills/:billNo", s.GetBill)
	api.POST("/bills/:billNo/send", s.SendBill)
	api.POST("/bills/:billNo/cancel", s.CancelBill)

	// -------- Payments --------
	api.POST("/payments", s.CollectPayment)
	api.GET("/payments", s.ListPayments)
	api.GET("/payments/:transactionId", s.GetPayment)
	api.POST("/payments/:transactionId/reverse", s.ReversePayment)

	// -------- Promotions --------
	api.GET("/promotions/preview", s.PreviewPromotion)
	api.POST("/promotions/execute", s.BatchRateLimit("promotions.execute"), s.ExecutePromotion)

	// -------- Reporting --------
	api.GET("/dashboard", s.GetDashboard)
	api.GET("/audit-logs", s.ListAuditLogs)
}
