package cmd

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/meinhoongagan/medicnote/config"
	"github.com/meinhoongagan/medicnote/controllers"
	"github.com/meinhoongagan/medicnote/logger"
	"github.com/meinhoongagan/medicnote/middleware"
	"github.com/meinhoongagan/medicnote/realtime"
	"github.com/meinhoongagan/medicnote/repository"
	"github.com/meinhoongagan/medicnote/routes"
	"github.com/meinhoongagan/medicnote/services"
	"github.com/meinhoongagan/medicnote/utils"
)

// Services is every domain service, built over one store and feed.
type Services struct {
	Audit         *services.AuditService
	Accounts      *services.AccountService
	Notifications *services.NotificationService
	Prescriptions *services.PrescriptionService
	Pharmacies    *services.PharmacyService
	Messaging     *services.MessagingService
	Appointments  *services.AppointmentService
	HealthRecords *services.HealthRecordService
	Analytics     *services.AnalyticsService
}

func NewServices(cfg *config.Config, store *repository.Store, feed realtime.Feed, uploader utils.Uploader, mailer utils.Mailer) *Services {
	audit := services.NewAuditService(store.SystemLogs)
	notifications := services.NewNotificationService(store.Notifications, feed, cfg.CoalesceWindow)
	return &Services{
		Audit:         audit,
		Accounts:      services.NewAccountService(store.Profiles, audit, cfg.Secret(), cfg.TokenTTL),
		Notifications: notifications,
		Prescriptions: services.NewPrescriptionService(services.PrescriptionDeps{
			Store:         store,
			Notifications: notifications,
			Audit:         audit,
			Uploader:      uploader,
			Mailer:        mailer,
			Feed:          feed,
		}),
		Pharmacies:    services.NewPharmacyService(store, audit, feed),
		Messaging:     services.NewMessagingService(store, feed, cfg.CoalesceWindow),
		Appointments:  services.NewAppointmentService(store, notifications, feed),
		HealthRecords: services.NewHealthRecordService(store.HealthRecords, uploader, feed),
		Analytics:     services.NewAnalyticsService(store),
	}
}

// NewApp builds the Fiber application with middleware and every route.
func NewApp(cfg *config.Config, svc *Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "medicnote",
		BodyLimit:    20 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.IsDevelopment()}))
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(logger.Log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	routes.Setup(app, cfg.Secret(), routes.Handlers{
		Auth:          controllers.NewAuthController(svc.Accounts),
		Prescriptions: controllers.NewPrescriptionController(svc.Prescriptions),
		Fulfillment:   controllers.NewFulfillmentController(svc.Pharmacies, svc.Prescriptions),
		Messages:      controllers.NewMessageController(svc.Messaging),
		Notifications: controllers.NewNotificationController(svc.Notifications),
		Appointments:  controllers.NewAppointmentController(svc.Appointments),
		HealthRecords: controllers.NewHealthRecordController(svc.HealthRecords),
		Admin:         controllers.NewAdminController(svc.Analytics),
	})
	return app
}

// errorHandler renders errors that escape a handler, like unmatched
// routes, in the same shape as handler errors.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		logger.Log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	}
	return c.Status(code).JSON(utils.ErrorResponse{
		Message: "Request failed",
		Error:   err.Error(),
	})
}
