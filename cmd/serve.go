package cmd

import (
	"context"
	"net"
	"time"

	"github.com/lumeo-studio/site-auth/app/controller"
	"github.com/lumeo-studio/site-auth/app/middleware"
	"github.com/lumeo-studio/site-auth/app/repository"
	"github.com/lumeo-studio/site-auth/app/service"
	"github.com/lumeo-studio/site-auth/config"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP (Echo) server for the authentication service.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	client, db, err := connectMongo(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()

	userRepo := repository.NewUserRepository(db)
	disabledRepo := repository.NewDisabledAccountRepository(db)

	tokenService, err := service.NewTokenService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create token service")
	}
	emailSender := service.NewEmailSender(cfg)
	authService := service.NewAuthService(userRepo, disabledRepo, tokenService, emailSender, cfg)
	resetService := service.NewResetService(userRepo, emailSender, cfg)
	accountService := service.NewAccountService(userRepo, disabledRepo, emailSender, cfg)

	startHTTPServer(cfg, tokenService, authService, resetService, accountService)
}

func connectMongo(cfg *config.Config) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}

	return client, client.Database(cfg.MongoDatabase), nil
}

func startHTTPServer(
	cfg *config.Config,
	tokenService *service.TokenService,
	authService *service.AuthService,
	resetService *service.ResetService,
	accountService *service.AccountService,
) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	routeGate := middleware.NewRouteGate([]middleware.GateRule{
		{Prefix: "/dashboard", Class: middleware.RouteProtected},
		{Prefix: "/profile", Class: middleware.RouteProtected},
		{Prefix: "/messages", Class: middleware.RouteProtected},
		{Prefix: "/meetings", Class: middleware.RouteProtected},
		{Prefix: "/admin", Class: middleware.RouteProtected},
		{Prefix: "/login", Class: middleware.RouteAnonymousOnly},
		{Prefix: "/signup", Class: middleware.RouteAnonymousOnly},
	})
	e.Use(routeGate.Middleware)

	authController := controller.NewAuthController(authService, resetService, tokenService, cfg)
	accountController := controller.NewAccountController(accountService)
	authMiddleware := middleware.NewAuthMiddleware(tokenService, accountService)

	auth := e.Group("/auth")
	auth.POST("/register", authController.Register)
	auth.POST("/login", authController.Login)
	auth.POST("/logout", authController.Logout)
	auth.GET("/verify", authController.Verify)
	auth.POST("/forgot-password", authController.ForgotPassword)
	auth.POST("/validate-reset-token", authController.ValidateResetToken)
	auth.POST("/reset-password", authController.ResetPassword)

	authProtected := auth.Group("")
	authProtected.Use(authMiddleware.RequireAuth)
	authProtected.POST("/video-token", authController.VideoToken)

	// Password and email changes re-check live account state.
	authSensitive := auth.Group("")
	authSensitive.Use(authMiddleware.RequireAuth, authMiddleware.RequireActiveAccount)
	authSensitive.POST("/change-password", authController.ChangePassword)
	authSensitive.POST("/update-email", authController.UpdateEmail)

	authAdmin := auth.Group("")
	authAdmin.Use(authMiddleware.RequireAuth, authMiddleware.RequireAdmin)
	authAdmin.POST("/disable-account", accountController.DisableAccount)
	authAdmin.POST("/enable-account", accountController.EnableAccount)
	authAdmin.GET("/disabled-accounts", accountController.DisabledAccounts)

	if cfg.S3Bucket != "" {
		mediaController, err := newMediaController(cfg)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to configure media storage")
		}
		media := e.Group("/media")
		media.Use(authMiddleware.RequireAuth, authMiddleware.RequireActiveAccount)
		media.POST("/upload-url", mediaController.UploadURL)
	} else {
		logrus.Warn("S3_BUCKET not set, media upload endpoint disabled")
	}

	httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}

func newMediaController(cfg *config.Config) (*controller.MediaController, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	presigner := s3.NewPresignClient(s3.NewFromConfig(awsCfg))
	mediaService := service.NewMediaService(presigner, cfg)
	return controller.NewMediaController(mediaService), nil
}
