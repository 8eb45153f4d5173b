package main

import (
	"context"
	"errors"

	"github.com/courier-next/internal/config"
	"github.com/courier-next/internal/constants"
	"github.com/courier-next/internal/geo"
	"github.com/courier-next/internal/logger"
	"github.com/courier-next/internal/models"
	"github.com/courier-next/internal/provider"
	"github.com/courier-next/internal/service"
)

const (
	demoSenderEmail    = "sender@courier.local"
	demoSenderPassword = "sender12345"
	demoReceiverEmail  = "receiver@courier.local"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions(cfg.App.Name))
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitDefaultAdmin(cfg.App.AdminEmail, cfg.App.AdminPassword); err != nil {
		stdLog.Fatalf("Failed to init admin: %v", err)
	}

	// 种子数据不直接投递通知，事件留在发件箱由 worker 中继
	container := provider.NewContainerWith(cfg, provider.Infrastructure{Geocoder: geo.Disabled{}})
	ctx := context.Background()

	admins, err := container.UserRepo.ListByRole(constants.RoleAdmin)
	if err != nil || len(admins) == 0 {
		stdLog.Fatalf("Failed to load admin: %v", err)
	}
	admin := admins[0]
	adminCaller := service.Caller{ID: admin.ID, Email: admin.Email, Role: admin.Role}

	sender, err := container.AuthService.Register(ctx, service.RegisterInput{
		Email:       demoSenderEmail,
		Password:    demoSenderPassword,
		DisplayName: "Demo Sender",
	})
	if errors.Is(err, service.ErrEmailExists) {
		logger.Infow("seed_skipped", "reason", "demo sender exists")
		return
	}
	if err != nil {
		stdLog.Fatalf("Failed to create sender: %v", err)
	}
	senderCaller := service.Caller{ID: sender.ID, Email: sender.Email, Role: sender.Role}

	// 一条待审批申请
	if _, err := container.ParcelRequestService.Submit(ctx, senderCaller, service.SubmitParcelRequestInput{
		ReceiverEmail:       demoReceiverEmail,
		Description:         "Books",
		Weight:              2.5,
		PickupLocation:      "1 Market St, San Francisco",
		DestinationLocation: "350 5th Ave, New York",
	}); err != nil {
		stdLog.Fatalf("Failed to submit request: %v", err)
	}

	// 一条已审批并转换为包裹的申请
	approved, err := container.ParcelRequestService.Submit(ctx, senderCaller, service.SubmitParcelRequestInput{
		ReceiverEmail:       demoReceiverEmail,
		Description:         "Laptop",
		Weight:              7,
		PickupLocation:      "500 Howard St, San Francisco",
		DestinationLocation: "233 S Wacker Dr, Chicago",
	})
	if err != nil {
		stdLog.Fatalf("Failed to submit request: %v", err)
	}
	decision, err := container.ParcelRequestService.SetStatus(ctx, adminCaller, approved.ID, service.SetRequestStatusInput{
		Status:     string(constants.RequestStatusApproved),
		AdminNotes: "seed",
	})
	if err != nil {
		stdLog.Fatalf("Failed to approve request: %v", err)
	}

	// 推进到运输中
	if decision.Parcel != nil {
		for _, status := range []constants.ParcelStatus{constants.ParcelStatusPickedUp, constants.ParcelStatusInTransit} {
			if _, err := container.ParcelService.UpdateStatus(ctx, adminCaller, decision.Parcel.ID, service.UpdateParcelStatusInput{
				Status: string(status),
			}); err != nil {
				stdLog.Fatalf("Failed to update parcel: %v", err)
			}
		}
		logger.Infow("seed_parcel_created", "tracking_number", decision.Parcel.TrackingNumber)
	}

	logger.Infow("seed_completed", "sender", demoSenderEmail)
}
