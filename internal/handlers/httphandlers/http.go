package httphandlers

import (
	"net/url"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/TitanInd/escrow-bridge/internal/config"
	"gitlab.com/TitanInd/escrow-bridge/internal/interfaces"
	"gitlab.com/TitanInd/escrow-bridge/internal/notifier"
	"gitlab.com/TitanInd/escrow-bridge/internal/repositories/contracts"
)

type Sanitizable interface {
	GetSanitized() interface{}
}

type HTTPHandler struct {
	contracts *contracts.Factory
	notifier  *notifier.Notifier
	config    Sanitizable
	publicUrl *url.URL
	testRun   bool
	startedAt time.Time
	log       interfaces.ILogger
}

func NewHTTPHandler(factory *contracts.Factory, notif *notifier.Notifier, cfg Sanitizable, publicUrl *url.URL, testRun bool, log interfaces.ILogger) *gin.Engine {
	handl := &HTTPHandler{
		contracts: factory,
		notifier:  notif,
		config:    cfg,
		publicUrl: publicUrl,
		testRun:   testRun,
		startedAt: time.Now(),
		log:       log,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), handl.requestLogger)

	r.GET("/healthcheck", handl.HealthCheck)
	r.GET("/config", handl.GetConfig)

	api := r.Group("/api")
	api.GET("/wallet-address", handl.GetWalletAddress)
	api.GET("/check-balances/:address", handl.CheckBalances)
	api.GET("/contract-status/:address", handl.GetContractStatus)
	api.GET("/tasks/:id", handl.GetTask)

	api.POST("/deploy-contract", handl.DeployContract)
	api.POST("/update-completed-work", handl.UpdateCompletedWork)
	api.POST("/force-finalize", handl.ForceFinalize)
	api.POST("/credit-account", handl.CreditAccount)

	if testRun {
		api.POST("/_activateContract", handl.ActivateContract)
		api.POST("/_scoreWork", handl.ScoreWork)
		api.POST("/_finalizeContract", handl.FinalizeContract)
		api.POST("/_test-callback", handl.TestCallback)
		log.Warn("test run endpoints are enabled")
	}

	err := r.SetTrustedProxies(nil)
	if err != nil {
		panic(err)
	}

	return r
}

func (h *HTTPHandler) requestLogger(ctx *gin.Context) {
	start := time.Now()
	ctx.Next()
	h.log.Debugf("%s %s %d %s", ctx.Request.Method, ctx.Request.URL.Path, ctx.Writer.Status(), time.Since(start))
}

func (h *HTTPHandler) HealthCheck(ctx *gin.Context) {
	ctx.JSON(200, gin.H{
		"status":  "healthy",
		"version": config.BuildVersion,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	})
}

func (h *HTTPHandler) GetConfig(ctx *gin.Context) {
	ctx.JSON(200, ConfigResponse{
		Version: config.BuildVersion,
		Config:  h.config.GetSanitized(),
	})
}

func (h *HTTPHandler) GetTask(ctx *gin.Context) {
	task, ok := h.notifier.Task(ctx.Param("id"))
	if !ok {
		ctx.JSON(404, ErrorResponse{Message: "task not found"})
		return
	}
	ctx.JSON(200, mapTask(task))
}

// startTask replies with the task id, the outcome goes to the callback
func (h *HTTPHandler) startTask(ctx *gin.Context, callback string, run notifier.RunFunc) {
	taskID := h.notifier.Notify(callback, run)

	statusURL := *h.publicUrl
	statusURL.Path = path.Join(statusURL.Path, "/api/tasks", taskID)

	ctx.JSON(200, TaskResponse{
		TaskID: taskID,
		Status: statusURL.String(),
	})
}
