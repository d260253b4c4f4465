package httpapi

import (
	"github.com/gin-gonic/gin"

	"library-lending/internal/logging"
)

// RouterConfig carries the router's dependencies.
type RouterConfig struct {
	Store   Store
	Logger  logging.Logger
	Version string
}

// NewRouter builds the gin engine with every API route registered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(AccessLogMiddleware(log))
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Store, cfg.Version)
	router.GET("/health", health.Status)

	books := NewBooksController(cfg.Store, log)
	users := NewUsersController(cfg.Store, log)
	lendings := NewLendingsController(cfg.Store, log)

	api := router.Group("/api")
	{
		api.GET("/books", books.List)
		api.POST("/books", books.Create)
		api.GET("/books/:id", books.Get)
		api.PUT("/books/:id", books.Update)
		api.DELETE("/books/:id", books.Delete)
		api.POST("/books/:id/borrow", books.Borrow)
		api.POST("/books/:id/return", books.Return)

		api.GET("/users", users.List)
		api.POST("/users", users.Create)
		api.GET("/users/:id", users.Get)
		api.PUT("/users/:id", users.Update)
		api.DELETE("/users/:id", users.Delete)
		api.PUT("/users/:id/ban", users.SetBan)
		api.GET("/users/:id/lendings", users.Lendings)
		api.GET("/users/:id/books", users.Books)

		api.GET("/lendings", lendings.List)
	}

	return router
}
