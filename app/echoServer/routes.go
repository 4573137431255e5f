package echoServer

import (
	"net/http"

	"bookswap/app/echoServer/controller/auth"
	"bookswap/app/echoServer/controller/book"
	"bookswap/app/echoServer/controller/stats"
	"bookswap/app/echoServer/controller/swap"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Auth  *auth.Controller
	Book  *book.Controller
	Swap  *swap.Controller
	Stats *stats.Controller

	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Auth
	authed := e.Group("/v1")
	authed.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(c.JWTSecret),

		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	// user_id extraction from the verified token
	authed.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tok, ok := ctx.Get("user").(*jwt.Token)
			if !ok || tok == nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			sub, ok := claims["sub"].(float64)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", int64(sub))
			return next(ctx)
		}
	})

	// Books (catalog; availability itself is owned by the swap core)
	authed.GET("/books", c.Book.Browse)
	authed.GET("/books/my", c.Book.Mine)
	authed.GET("/books/:id", c.Book.Detail)
	authed.POST("/books", c.Book.Add)

	// Swaps
	authed.POST("/swaps", c.Swap.Create)
	authed.GET("/swaps/incoming", c.Swap.Incoming)
	authed.GET("/swaps/outgoing", c.Swap.Outgoing)
	authed.GET("/swaps/:id", c.Swap.Get)
	authed.POST("/swaps/:id/counter-offer", c.Swap.CounterOffer)
	authed.POST("/swaps/:id/accept", c.Swap.Accept)
	authed.POST("/swaps/:id/cancel", c.Swap.Cancel)
	authed.POST("/swaps/:id/complete", c.Swap.Complete)
	authed.POST("/swaps/:id/rating", c.Swap.AttachRating)

	// Stats (read-only dashboard surface)
	authed.GET("/users/:id/stats", c.Stats.ForUser)
}
