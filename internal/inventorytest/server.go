// Package inventorytest runs an in-memory inventory service that speaks the
// same HTTP contract apismoke drives: register, login, products, quantity.
// Tests start it with New and point the scenario at its URL.
package inventorytest

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultPageSize = 10

// Product is a stored catalogue entry.
type Product struct {
	ID          string
	Name        string
	Type        string
	SKU         string
	ImageURL    string
	Description string
	Quantity    any
	Price       any
}

func (p Product) toJSON() map[string]any {
	return map[string]any{
		"_id":         p.ID,
		"name":        p.Name,
		"type":        p.Type,
		"sku":         p.SKU,
		"image_url":   p.ImageURL,
		"description": p.Description,
		"quantity":    p.Quantity,
		"price":       p.Price,
	}
}

// Response is a canned reply installed with Override.
type Response struct {
	Status int
	Body   string
}

// ListingHook can rewrite the products array before a listing is sent.
type ListingHook func(items []map[string]any) []map[string]any

// Server is the running service.
type Server struct {
	*httptest.Server

	secret   []byte
	pageSize int

	mu          sync.Mutex
	users       map[string]string
	products    []Product
	overrides   map[string]Response
	authHeaders []string
	listingHook ListingHook
}

// Option configures a Server.
type Option func(*Server)

// WithPageSize sets the default listing page size.
func WithPageSize(n int) Option {
	return func(s *Server) { s.pageSize = n }
}

// WithUser pre-registers a user.
func WithUser(username, password string) Option {
	return func(s *Server) { s.users[username] = password }
}

// WithSecret sets the HS256 signing key for access tokens.
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

// New starts a Server. Callers must Close it.
func New(opts ...Option) *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		secret:    []byte("inventorytest-secret"),
		pageSize:  defaultPageSize,
		users:     map[string]string{},
		overrides: map[string]Response{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(s.Handler())
	return s
}

// Handler returns the gin engine serving the contract.
func (s *Server) Handler() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.overrideMiddleware())

	engine.POST("/register", s.register)
	engine.POST("/login", s.login)

	products := engine.Group("/products", s.protect())
	products.POST("", s.addProduct)
	products.PUT("/:id/quantity", s.updateQuantity)
	products.GET("", s.listProducts)
	return engine
}

// Override makes route (gin pattern, e.g. "/products/:id/quantity") reply
// with resp instead of running its handler.
func (s *Server) Override(method, route string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+route] = resp
}

// SetListingHook installs h for subsequent listings; nil removes it.
func (s *Server) SetListingHook(h ListingHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listingHook = h
}

// AuthHeaders returns the Authorization header of every protected request, in order.
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authHeaders...)
}

// Product returns the stored product with id.
func (s *Server) Product(id string) (Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// ProductCount returns how many products are stored.
func (s *Server) ProductCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

// AddProduct stores p directly, assigning an id when empty.
func (s *Server) AddProduct(p Product) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = newObjectID()
	}
	s.products = append(s.products, p)
	return p.ID
}

func (s *Server) overrideMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		resp, ok := s.overrides[c.Request.Method+" "+c.FullPath()]
		s.mu.Unlock()
		if !ok {
			c.Next()
			return
		}
		c.Data(resp.Status, "application/json; charset=utf-8", []byte(resp.Body))
		c.Abort()
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide both username and password"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Username]; exists {
		c.JSON(http.StatusConflict, gin.H{"message": "User already exists"})
		return
	}
	s.users[req.Username] = req.Password
	c.JSON(http.StatusCreated, gin.H{
		"message":  "User registered successfully",
		"userId":   newObjectID(),
		"username": req.Username,
	})
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide both username and password"})
		return
	}
	s.mu.Lock()
	stored, ok := s.users[req.Username]
	s.mu.Unlock()
	if !ok || stored != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
		return
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   req.Username,
		"role": "user",
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "access_token": signed})
}

func (s *Server) protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		s.mu.Lock()
		s.authHeaders = append(s.authHeaders, header)
		s.mu.Unlock()

		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, no token"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")
		_, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
			return
		}
		c.Next()
	}
}

type productRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	SKU         string `json:"sku"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
	Quantity    any    `json:"quantity"`
	Price       any    `json:"price"`
}

func (s *Server) addProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid product data"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.SKU == req.SKU {
			c.JSON(http.StatusConflict, gin.H{"message": "Product with this SKU already exists"})
			return
		}
	}
	p := Product{
		ID:          newObjectID(),
		Name:        req.Name,
		Type:        req.Type,
		SKU:         req.SKU,
		ImageURL:    req.ImageURL,
		Description: req.Description,
		Quantity:    req.Quantity,
		Price:       req.Price,
	}
	s.products = append(s.products, p)
	c.JSON(http.StatusCreated, gin.H{"message": "Product added successfully", "product_id": p.ID})
}

func (s *Server) updateQuantity(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Quantity must be a number"})
		return
	}
	q, ok := req["quantity"].(float64)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Quantity must be a number"})
		return
	}
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products[i].Quantity = q
			c.JSON(http.StatusOK, gin.H{"message": "Quantity updated successfully", "product": s.products[i].toJSON()})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
}

func (s *Server) listProducts(c *gin.Context) {
	page := atoiDefault(c.Query("page"), 1)
	limit := atoiDefault(c.Query("limit"), s.pageSize)
	skip := (page - 1) * limit

	s.mu.Lock()
	total := len(s.products)
	items := make([]map[string]any, 0, limit)
	for i := skip; i < total && i < skip+limit; i++ {
		items = append(items, s.products[i].toJSON())
	}
	hook := s.listingHook
	s.mu.Unlock()

	if hook != nil {
		items = hook(items)
	}
	c.JSON(http.StatusOK, gin.H{
		"currentPage":   page,
		"totalPages":    int(math.Ceil(float64(total) / float64(limit))),
		"totalProducts": total,
		"products":      items,
	})
}

// atoiDefault parses a positive integer, falling back to def.
func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// newObjectID returns a 24 hex character id shaped like a MongoDB ObjectID.
func newObjectID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
