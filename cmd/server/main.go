package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"eltro-backend/internal/accounting"
	"eltro-backend/internal/admin"
	"eltro-backend/internal/archive"
	"eltro-backend/internal/audit"
	"eltro-backend/internal/auth"
	"eltro-backend/internal/calendar"
	"eltro-backend/internal/config"
	"eltro-backend/internal/creditnote"
	"eltro-backend/internal/logger"
	"eltro-backend/internal/order"
	"eltro-backend/internal/price"
	"eltro-backend/internal/store"
	"eltro-backend/internal/transfer"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log := logger.WithComponent("main")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("cannot create data directory")
	}

	ar := archive.New(cfg.UploadDir)
	if err := ar.EnsureLayout(); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("cannot create upload directories")
	}

	stores := store.Open(cfg.DataDir)

	auditPath := cfg.AuditDBPath
	if auditPath == "" {
		auditPath = filepath.Join(cfg.DataDir, "audit.db")
	}
	rec, err := audit.Open(auditPath)
	if err != nil {
		// The audit trail is best effort, the server still runs without it.
		log.Warn().Err(err).Str("path", auditPath).Msg("audit trail disabled")
	}

	sessions := auth.NewService(cfg.SectionPasswords)

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			log.Error().Err(err).Str("path", c.Path()).Msg("unexpected error")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "서버 오류가 발생했습니다.",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(corsOrigins, ","),
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
	}))
	app.Use(logger.RequestLogger())
	app.Use(auth.Annotate(sessions))
	app.Use(auth.PageGuard(sessions))

	app.Static("/", cfg.StaticDir)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "message": "Server is running"})
	})
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "message": "EltroKorea API Server"})
	})

	api := app.Group("/api")

	// Auth
	api.Post("/login", auth.LoginHandler(sessions))
	api.Post("/logout", auth.LogoutHandler(sessions))
	api.Get("/auth/status", auth.StatusHandler(sessions))

	// Prices
	api.Get("/price", price.GetPriceBookHandler(stores.Prices))
	api.Post("/price", price.SavePriceHandler(stores.Prices, rec))

	// Orders
	api.Get("/orders", order.ListOrdersHandler(stores.Orders))
	api.Delete("/orders", order.DeleteOrderHandler(stores.Orders, rec))
	api.Post("/saveOrder", order.SaveOrderHandler(stores.Orders, rec))
	api.Post("/updateOrder", order.UpdateOrderHandler(stores.Orders, rec))
	api.Post("/split", order.SplitItemHandler(stores.Orders, rec))
	api.Post("/syncRowNumbers", order.SyncRowNumbersHandler(stores.Orders, rec))
	api.Delete("/deleteItem", order.DeleteItemHandler(stores.Orders, rec))
	api.Post("/deletedeliveryNo", order.ClearDeliveryHandler(stores.Orders, rec))

	// Credit notes
	api.Get("/creditnote", creditnote.ListHandler(stores.CreditNotes))
	api.Post("/creditnote", creditnote.SaveHandler(stores.CreditNotes, rec))

	// Calendar
	api.Get("/loadCalendar", calendar.LoadHandler(stores.Calendar))
	api.Post("/saveCalendar", calendar.SaveHandler(stores.Calendar, rec))
	api.Delete("/deleteCalendarEvent", calendar.DeleteEventHandler(stores.Calendar, rec))

	// Transfers
	api.Get("/transfers", transfer.ListHandler(stores.Transfers))
	api.Post("/transfers", transfer.SaveHandler(stores.Transfers, rec))
	api.Delete("/transfers", transfer.DeleteHandler(stores.Transfers, rec))

	// Accounting
	api.Get("/accounting", accounting.GetHandler(stores.Accounting))
	api.Post("/accounting", accounting.SaveHandler(stores.Accounting, rec))
	api.Delete("/accounting/delete-by-date", accounting.DeleteByDateHandler(stores.Accounting, rec))
	api.Delete("/accounting", accounting.DeleteHandler(stores.Accounting, rec))

	// File archive
	api.Post("/uploadFile", archive.UploadHandler(ar, rec))
	api.Post("/copyAnalysisFiles", archive.CopyAnalysisHandler(ar, stores.Orders, rec))
	api.Get("/downloadAnalysisFolder/:mode/:deliveryNo", archive.DownloadAnalysisHandler(ar))
	registerFileRoutes(api, ar, rec)

	// Admin
	adminRoutes := api.Group("/admin")
	adminRoutes.Post("/save-json", admin.SaveJSONHandler(stores, rec))
	adminRoutes.Post("/upload-json", admin.UploadJSONHandler(stores, rec))
	adminRoutes.Post("/import-prices", price.ImportPricesHandler(stores.Prices, rec))
	adminRoutes.Post("/restart", admin.RestartHandler())
	adminRoutes.Get("/explore-uploads", admin.ExploreUploadsHandler(ar))
	adminRoutes.Delete("/delete-upload-file", admin.DeleteUploadFileHandler(ar, rec))
	adminRoutes.Get("/preview-upload-file", admin.PreviewUploadFileHandler(ar))

	// Audit trail
	api.Get("/audit-logs", audit.ListEntriesHandler(rec))

	if cfg.WatchDataDir {
		watcher, err := store.Watch(cfg.DataDir, stores.Reloadables())
		if err != nil {
			log.Warn().Err(err).Msg("data directory watcher disabled")
		} else {
			defer watcher.Close()
		}
	}

	log.Info().Str("port", cfg.HTTPPort).Msg("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// registerFileRoutes wires the four upload trees. Literal-segment routes
// go first so tax/OrderNO/DeliveryNO paths are not captured by the
// generic OrderID routes.
func registerFileRoutes(api fiber.Router, ar *archive.Archive, rec *audit.Recorder) {
	// Tax documents
	api.Get("/listFiles/tax/:year/:headerName/:rowName", archive.ListFilesHandler(ar, archive.TaxPath))
	api.Get("/previewFile/tax/:year/:headerName/:rowName/:filename", archive.PreviewFileHandler(ar, archive.TaxPath))
	api.Get("/downloadFile/tax/:year/:headerName/:rowName/:filename", archive.DownloadFileHandler(ar, archive.TaxPath))
	api.Delete("/deleteFile/tax/:year/:headerName/:rowName/:filename", archive.DeleteFileHandler(ar, rec, archive.TaxPath))

	// Production files per order item
	api.Get("/listFiles/:mode/OrderNO/:orderNo/:itemNo", archive.ListFilesHandler(ar, archive.OrderNoPath))
	api.Get("/previewFile/:mode/OrderNO/:orderNo/:itemNo/:filename", archive.PreviewFileHandler(ar, archive.OrderNoPath))
	api.Get("/downloadFile/:mode/OrderNO/:orderNo/:itemNo/:filename", archive.DownloadFileHandler(ar, archive.OrderNoPath))
	api.Delete("/deleteFile/:mode/OrderNO/:orderNo/:itemNo/:filename", archive.DeleteFileHandler(ar, rec, archive.OrderNoPath))

	// Shipment files per delivery
	api.Get("/listFiles/:mode/DeliveryNO/:deliveryNo/:fileType", archive.ListDeliveryFilesHandler(ar))
	api.Get("/previewFile/:mode/DeliveryNO/:deliveryNo/:fileType/:filename", archive.SendFileHandler(ar, archive.DeliveryNoPath))
	api.Get("/downloadFile/:mode/DeliveryNO/:deliveryNo/:fileType/:filename", archive.DownloadFileHandler(ar, archive.DeliveryNoPath))
	api.Delete("/deleteFile/:mode/DeliveryNO/:deliveryNo/:fileType/:filename", archive.DeleteFileHandler(ar, rec, archive.DeliveryNoPath))

	// Order archive
	api.Get("/listFiles/:mode/:orderId/:fileType", archive.ListFilesHandler(ar, archive.OrderIDPath))
	api.Get("/previewFile/:mode/:orderId/:fileType/:filename", archive.PreviewFileHandler(ar, archive.OrderIDPath))
	api.Get("/downloadFile/:mode/:orderId/:fileType/:filename", archive.DownloadFileHandler(ar, archive.OrderIDPath))
	api.Delete("/deleteFile/:mode/:orderId/:fileType/:filename", archive.DeleteFileHandler(ar, rec, archive.OrderIDPath))
}
