package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	_ "time/tzdata"

	"github.com/go-co-op/gocron/v2"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/quillmarket/order-service/config"
	"github.com/quillmarket/order-service/internal/controller"
	circuitbreaker "github.com/quillmarket/order-service/internal/infrastructure/circuit-breaker"
	"github.com/quillmarket/order-service/internal/infrastructure/database/postgres"
	"github.com/quillmarket/order-service/internal/infrastructure/message-queue/kafka"
	paymentgateway "github.com/quillmarket/order-service/internal/infrastructure/payment-gateway"
	"github.com/quillmarket/order-service/internal/infrastructure/tracing"
	localmiddleware "github.com/quillmarket/order-service/internal/middleware"
	"github.com/quillmarket/order-service/internal/repository"
	"github.com/quillmarket/order-service/internal/service"
	"github.com/quillmarket/order-service/pkg/dto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = logger

	config := config.CreateNewConfig()

	if config.SystemActorID == 0 {
		log.Fatal().Msg("SYSTEM_ACTOR_ID must be configured")
	}

	midtransGateway := paymentgateway.CreateMidtransGateway(config)
	mobileMoneyGateway := paymentgateway.CreateMobileMoneyGateway(config)

	kafkaProducer := kafka.CreateKafkaProducer(config)

	db, err := postgres.GetDBInstance(config.PostgreSQLConfig.DBUsername, config.PostgreSQLConfig.DBPassword, config.PostgreSQLConfig.DBHost, config.PostgreSQLConfig.DBPort, config.PostgreSQLConfig.DBName)
	if err != nil {
		panic(err)
	}

	traceProvider, err := tracing.InitTracing(config.TracingConfig.CollectorHost)
	if err != nil {
		fmt.Println(err)
	}

	defer func() {
		if err := traceProvider.Shutdown(context.Background()); err != nil {
			fmt.Println(err)
		}
	}()

	tracer := traceProvider.Tracer("order-service")

	e := echo.New()
	g := e.Group("/api/v1")

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), fmt.Sprintf("[%s] %s", c.Request().Method, c.Path()))
			defer span.End()

			req := c.Request()
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	})

	// Used empty string so that metrics are not prefixed with the service name making it easier to aggregate across services
	e.Use(echoprometheus.NewMiddleware(""))
	go func() {
		metrics := echo.New()
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(fmt.Sprintf(":%s", config.MetricsPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start metrics server")
		}
	}()

	e.Use(localmiddleware.Logger)

	g.GET("/ping", func(c echo.Context) error {
		return dto.WriteSuccessResponse(c, "pong", nil)
	})

	cb := circuitbreaker.CreateCircuitBreaker[string]("order-service")

	orderRepo := repository.CreateOrderRepository(db)
	orderSvc := service.CreateOrderService(orderRepo, kafkaProducer, config)
	paymentSvc := service.CreatePaymentService(orderRepo, midtransGateway, mobileMoneyGateway, midtransGateway, kafkaProducer, cb, config)

	isLoggedIn := localmiddleware.IsLoggedIn(config.JWTSecret)
	controller.CreateOrderController(g, orderSvc, paymentSvc, isLoggedIn)

	s, err := gocron.NewScheduler()
	if err != nil {
		panic(err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(
			config.PaymentConfig.ConfirmTimeout,
		),
		gocron.NewTask(
			paymentSvc.SweepExpiredPayments,
		),
	)
	if err != nil {
		panic(err)
	}

	s.Start()

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%s", config.ServicePort)))
}
