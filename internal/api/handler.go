package api

import (
	"net/http"
	"strconv"
	"time"

	"bookstore-service/internal/models"
	"bookstore-service/internal/service"
	"bookstore-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	users    *service.UserService
	sellers  *service.SellerService
	orders   *service.OrderService
	payments *service.PaymentService
	search   *service.SearchService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	users *service.UserService,
	sellers *service.SellerService,
	orders *service.OrderService,
	payments *service.PaymentService,
	search *service.SearchService,
) *Handler {
	return &Handler{
		users:    users,
		sellers:  sellers,
		orders:   orders,
		payments: payments,
		search:   search,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.POST("/logout", h.logout)
		auth.POST("/password", h.changePassword)
		auth.POST("/unregister", h.unregister)
	}

	seller := router.Group("/seller")
	{
		seller.POST("/create_store", h.createStore)
		seller.POST("/add_book", h.addBook)
		seller.POST("/add_stock_level", h.addStockLevel)
		seller.POST("/ship_books", h.shipBooks)
		seller.GET("/orders", h.queryStoreOrders)
	}

	buyer := router.Group("/buyer")
	{
		buyer.POST("/new_order", h.newOrder)
		buyer.POST("/payment", h.payment)
		buyer.POST("/add_funds", h.addFunds)
		buyer.POST("/cancel_order", h.cancelOrder)
		buyer.POST("/receive_books", h.receiveBooks)
		buyer.GET("/orders", h.queryOrders)
	}

	router.GET("/search", h.searchBooks)
}

// writeError surfaces the domain error code as the HTTP status, which
// is the wire contract clients rely on
func writeError(c *gin.Context, err error) {
	de := models.AsError(err)
	c.JSON(de.Code, gin.H{"message": de.Message})
}

func ok(c *gin.Context, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["message"] = "ok"
	c.JSON(http.StatusOK, body)
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Unix()})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready", "time": time.Now().Unix()})
}

type credentialsRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	if err := h.users.Register(c.Request.Context(), req.UserID, req.Password); err != nil {
		writeError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		UserID   string `json:"user_id" binding:"required"`
		Password string `json:"password" binding:"required"`
		Terminal string `json:"terminal" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	token, err := h.users.Login(c.Request.Context(), req.UserID, req.Password, req.Terminal)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"token": token})
}

func (h *Handler) logout(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
		Token  string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	if err := h.users.Logout(c.Request.Context(), req.UserID, req.Token); err != nil {
		writeError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) changePassword(c *gin.Context) {
	var req struct {
		UserID      string `json:"user_id" binding:"required"`
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), req.UserID, req.OldPassword, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) unregister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	if err := h.users.Unregister(c.Request.Context(), req.UserID, req.Password); err != nil {
		writeError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) createStore(c *gin.Context) {
	var req struct {
		UserID  string `json:"user_id" binding:"required"`
		StoreID string `json:"store_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	if err := h.sellers.CreateStore(c.Request.Context(), req.UserID, req.StoreID); err != nil {
		writeError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) addBook(c *gin.Context) {
	var req service.AddBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	if err := h.sellers.AddBook(c.Request.Context(), &req); err != nil {
		writeError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) addStockLevel(c *gin.Context) {
	var req struct {
		UserID        string `json:"user_id" binding:"required"`
		StoreID       string `json:"store_id" binding:"required"`
		BookID        string `json:"book_id" binding:"required"`
		AddStockLevel int    `json:"add_stock_level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	if err := h.sellers.AddStockLevel(c.Request.Context(), req.UserID, req.StoreID, req.BookID, req.AddStockLevel); err != nil {
		writeError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) shipBooks(c *gin.Context) {
	var req struct {
		UserID  string `json:"user_id" binding:"required"`
		StoreID string `json:"store_id" binding:"required"`
		OrderID string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	if err := h.sellers.Ship(c.Request.Context(), req.UserID, req.StoreID, req.OrderID); err != nil {
		writeError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) newOrder(c *gin.Context) {
	var req service.NewOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	orderID, err := h.orders.NewOrder(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"order_id": orderID})
}

func (h *Handler) payment(c *gin.Context) {
	var req struct {
		UserID   string `json:"user_id" binding:"required"`
		Password string `json:"password" binding:"required"`
		OrderID  string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	if err := h.payments.Pay(c.Request.Context(), req.UserID, req.Password, req.OrderID); err != nil {
		writeError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) addFunds(c *gin.Context) {
	var req struct {
		UserID   string `json:"user_id" binding:"required"`
		Password string `json:"password" binding:"required"`
		AddValue int64  `json:"add_value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	if err := h.payments.AddFunds(c.Request.Context(), req.UserID, req.Password, req.AddValue); err != nil {
		writeError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	var req struct {
		UserID  string `json:"user_id" binding:"required"`
		OrderID string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	if err := h.orders.Cancel(c.Request.Context(), req.UserID, req.OrderID); err != nil {
		writeError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) receiveBooks(c *gin.Context) {
	var req struct {
		UserID  string `json:"user_id" binding:"required"`
		OrderID string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.ErrInvalidParameter(err.Error()))
		return
	}
	if err := h.orders.Receive(c.Request.Context(), req.UserID, req.OrderID); err != nil {
		writeError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) queryOrders(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		writeError(c, models.ErrInvalidParameter("user_id"))
		return
	}
	status := models.Status(c.Query("status"))

	views, err := h.orders.QueryOrders(c.Request.Context(), userID, status)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"orders": views})
}

func (h *Handler) queryStoreOrders(c *gin.Context) {
	userID := c.Query("user_id")
	storeID := c.Query("store_id")
	if userID == "" || storeID == "" {
		writeError(c, models.ErrInvalidParameter("user_id/store_id"))
		return
	}
	status := models.Status(c.Query("status"))

	views, err := h.orders.QueryStoreOrders(c.Request.Context(), userID, storeID, status)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"orders": views})
}

func (h *Handler) searchBooks(c *gin.Context) {
	keyword := c.Query("keyword")
	storeID := c.Query("store_id")

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		writeError(c, models.ErrPagination("page"))
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil {
		writeError(c, models.ErrPagination("page_size"))
		return
	}

	results, err := h.search.Search(c.Request.Context(), keyword, storeID, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"results": results, "count": len(results)})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
